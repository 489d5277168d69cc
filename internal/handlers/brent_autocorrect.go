package handlers

import (
	"fmt"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/opmodel/lmctl/internal/descriptor"
	"github.com/opmodel/lmctl/internal/tree"
	"github.com/opmodel/lmctl/internal/validation"
)

const (
	keySelector           = "selector"
	keyInfrastructureType = "infrastructure-type"
	keyDrivers            = "drivers"
	keyTemplate           = "template"
	keyDiscover           = "discover"
	keyFile               = "file"
	keyTemplateType       = "template-type"

	backupSuffix = ".bak"
)

type lifecycleManifestFile struct {
	Types []struct {
		LifecycleType      string `yaml:"lifecycle_type"`
		InfrastructureType string `yaml:"infrastructure_type"`
	} `yaml:"types"`
}

type manifestTemplate struct {
	File               string `yaml:"file"`
	InfrastructureType string `yaml:"infrastructure_type"`
	TemplateType       string `yaml:"template_type"`
}

type infrastructureManifestFile struct {
	Templates []manifestTemplate `yaml:"templates"`
	Discover  []manifestTemplate `yaml:"discover"`
}

// autocorrector finds Resource sources written in formats the Brent resource
// manager no longer accepts. Each finding is an error unless autocorrect is
// enabled, in which case the descriptor is rewritten in place.
type autocorrector struct {
	v          *validation.Validator
	descriptor string
	// retire is set once the infrastructure directory holds nothing the
	// descriptor still needs.
	retire bool
}

// correction is one superseded format and its rewrite.
type correction struct {
	found       string
	unsupported string
	failed      string
	// fix rewrites d and returns the source files to rename with backupSuffix
	// once the rewritten descriptor is in place.
	fix func(d *descriptor.Descriptor) ([]string, error)
}

func (a *autocorrector) run() {
	a.lifecycleManifest()
	a.infrastructureManifest()
	a.infrastructureEntries()
	if a.retire {
		a.retireInfrastructure()
	}
	a.selectors()
}

// manifests only merges the side manifests into the descriptor.
func (a *autocorrector) manifests() {
	a.infrastructureManifest()
	a.lifecycleManifest()
}

func (a *autocorrector) apply(c correction) bool {
	if !a.v.Options.Autocorrect {
		a.v.Error(a.descriptor, "%s", c.unsupported)
		return false
	}
	a.v.Journal.Event("%s", c.found)
	if err := a.rewrite(c.fix); err != nil {
		a.v.Error(a.descriptor, "%s (autocorrect error=%v)", c.failed, err)
		return false
	}
	return true
}

// rewrite applies fix to a fresh copy of the descriptor. The result is
// written next to the descriptor and renamed over it, so a failed rewrite
// leaves the original untouched.
func (a *autocorrector) rewrite(fix func(d *descriptor.Descriptor) ([]string, error)) error {
	src := a.v.Source
	d, err := descriptor.Load(src, a.descriptor)
	if err != nil {
		return err
	}
	backups, err := fix(d)
	if err != nil {
		return err
	}
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	tmp := a.descriptor + ".tmp"
	if err := src.WriteFile(tmp, data); err != nil {
		_ = src.RemoveAll(tmp)
		return err
	}
	if err := src.Rename(tmp, a.descriptor); err != nil {
		_ = src.RemoveAll(tmp)
		return err
	}
	for _, rel := range backups {
		if err := src.Rename(rel, rel+backupSuffix); err != nil {
			return err
		}
	}
	return nil
}

// load returns the descriptor when it can be read. Parse failures have
// already been reported by descriptor validation.
func (a *autocorrector) load() (*descriptor.Descriptor, bool) {
	if !a.v.Source.IsFile(a.descriptor) {
		return nil, false
	}
	d, err := descriptor.Load(a.v.Source, a.descriptor)
	return d, err == nil
}

func (a *autocorrector) lifecycleManifest() {
	src := a.v.Source
	if !src.IsFile(lifecycleManifest) || !src.IsFile(a.descriptor) {
		return
	}
	full := src.Path(lifecycleManifest)
	a.apply(correction{
		found:       fmt.Sprintf("Found unsupported lifecycle manifest [%s], attempting to autocorrect by moving contents to Resource descriptor", full),
		unsupported: fmt.Sprintf("Found lifecycle manifest [%s]: this file is no longer supported by the Brent Resource Manager. Add this information to the Resource descriptor instead or enable the autocorrect option", full),
		failed:      fmt.Sprintf("Found lifecycle manifest [%s]: this file is no longer supported by the Brent Resource Manager. Unable to autocorrect this issue, please add this information to the Resource descriptor manually instead", full),
		fix: func(d *descriptor.Descriptor) ([]string, error) {
			var manifest lifecycleManifestFile
			if err := readYAML(src, lifecycleManifest, &manifest); err != nil {
				return nil, err
			}
			for _, t := range manifest.Types {
				if t.LifecycleType != "" && t.InfrastructureType != "" {
					addDefaultDriver(d, t.LifecycleType, t.InfrastructureType)
				}
			}
			return []string{lifecycleManifest}, nil
		},
	})
}

func (a *autocorrector) infrastructureManifest() {
	src := a.v.Source
	if !src.IsFile(infrastructureManifest) || !src.IsFile(a.descriptor) {
		return
	}
	full := src.Path(infrastructureManifest)
	ok := a.apply(correction{
		found:       fmt.Sprintf("Found unsupported infrastructure manifest [%s], attempting to autocorrect by moving contents to Resource descriptor", full),
		unsupported: fmt.Sprintf("Found infrastructure manifest [%s]: this file is no longer supported by the Brent Resource Manager. Add this information to the Resource descriptor instead or enable the autocorrect option", full),
		failed:      fmt.Sprintf("Found infrastructure manifest [%s]: this file is no longer supported by the Brent Resource Manager. Unable to autocorrect this issue, please add this information to the Resource descriptor manually instead", full),
		fix: func(d *descriptor.Descriptor) ([]string, error) {
			var manifest infrastructureManifestFile
			if err := readYAML(src, infrastructureManifest, &manifest); err != nil {
				return nil, err
			}
			for _, t := range manifest.Templates {
				if t.InfrastructureType != "" {
					d.InsertInfrastructureTemplate(t.InfrastructureType, t.File, t.TemplateType)
				}
			}
			for _, t := range manifest.Discover {
				if t.InfrastructureType != "" {
					d.InsertInfrastructureDiscover(t.InfrastructureType, t.File, t.TemplateType)
				}
			}
			return []string{infrastructureManifest}, nil
		},
	})
	if ok {
		a.retire = true
	}
}

func readYAML(t *tree.Tree, rel string, out any) error {
	data, err := t.ReadFile(rel)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", t.Path(rel), err)
	}
	return nil
}

// addDefaultDriver selects driver for infrastructureType, extending an
// existing default-driver entry when there is one.
func addDefaultDriver(d *descriptor.Descriptor, driver, infrastructureType string) {
	defaults, ok := d.Map.Map(descriptor.KeyDefaultDriver)
	if !ok {
		d.InsertDefaultDriver(driver, []string{infrastructureType})
		return
	}
	entry, ok := defaults.Map(driver)
	if !ok {
		d.InsertDefaultDriver(driver, []string{infrastructureType})
		return
	}
	var seq *yaml.Node
	if n, ok := entry.Get(keyInfrastructureType); ok && n.Kind == yaml.SequenceNode {
		seq = n
	} else {
		seq = entry.EnsureMap(keySelector).EnsureSeq(keyInfrastructureType)
	}
	appendUnique(seq, infrastructureType)
}

func appendUnique(seq *yaml.Node, value string) {
	if !descriptor.SeqContains(seq, value) {
		seq.Content = append(seq.Content, descriptor.Scalar(value))
	}
}

// templateEntries lists the infrastructure types whose entry still points at
// template or discover files.
func templateEntries(d *descriptor.Descriptor) []string {
	inf, ok := d.Map.Map(descriptor.KeyInfrastructure)
	if !ok {
		return nil
	}
	var types []string
	inf.Range(func(key string, value *yaml.Node) {
		if entry, ok := descriptor.AsMap(value); ok && (entry.Has(keyTemplate) || entry.Has(keyDiscover)) {
			types = append(types, key)
		}
	})
	return types
}

func (a *autocorrector) infrastructureEntries() {
	d, ok := a.load()
	if !ok || len(templateEntries(d)) == 0 {
		return
	}
	full := a.v.Source.Path(a.descriptor)
	ok = a.apply(correction{
		found:       fmt.Sprintf("Found unsupported infrastructure entries referencing templates [%s], attempting to autocorrect by moving contents to Create/Delete/queries entries in descriptor", full),
		unsupported: fmt.Sprintf("Found infrastructure entries referencing templates [%s]: this format is no longer supported by the Brent Resource Manager. Add this information to the Create/Delete lifecycle and/or queries instead or enable the autocorrect option", full),
		failed:      fmt.Sprintf("Found unsupported infrastructure entries referencing templates [%s]: this format is no longer supported by the Brent Resource Manager. Unable to autocorrect this issue, please add this information to the Create/Delete lifecycle and/or queries manually instead", full),
		fix:         a.moveInfrastructureEntries,
	})
	if ok {
		a.retire = true
	}
}

// driverType maps an infrastructure type to the driver that now handles it.
func driverType(infrastructureType string) string {
	switch infrastructureType {
	case "Openstack":
		return "openstack"
	case "Kubernetes":
		return "kubernetes"
	default:
		return infrastructureType
	}
}

func (a *autocorrector) moveInfrastructureEntries(d *descriptor.Descriptor) ([]string, error) {
	inf, _ := d.Map.Map(descriptor.KeyInfrastructure)
	var backups []string
	for _, infType := range templateEntries(d) {
		entry, _ := inf.Map(infType)
		driver := driverType(infType)

		if tmpl, ok := entry.Map(keyTemplate); ok {
			templateType := tmpl.String(keyTemplateType)
			target := path.Base(tmpl.String(keyFile))
			if infType == "Openstack" {
				target = "heat.yaml"
				if templateType == "TOSCA" {
					target = "tosca.yaml"
				}
			}
			moved, err := a.moveTemplate(tmpl.String(keyFile), driver, target)
			if err != nil {
				return nil, err
			}
			backups = append(backups, moved...)

			var createProps map[string]any
			if infType == "Openstack" && templateType == "TOSCA" {
				createProps = map[string]any{keyTemplateType: map[string]any{"value": templateType}}
			}
			lifecycle := d.Lifecycle()
			if err := addDriver(lifecycle.EnsureMap("Create"), driver, infType, createProps); err != nil {
				return nil, err
			}
			if err := addDriver(lifecycle.EnsureMap("Delete"), driver, infType, nil); err != nil {
				return nil, err
			}
		}

		if disc, ok := entry.Map(keyDiscover); ok {
			target := path.Base(disc.String(keyFile))
			if infType == "Openstack" {
				target = "discover.yaml"
			}
			moved, err := a.moveTemplate(disc.String(keyFile), driver, target)
			if err != nil {
				return nil, err
			}
			backups = append(backups, moved...)
			if err := addDriver(d.EnsureMap(descriptor.KeyQueries), driver, infType, nil); err != nil {
				return nil, err
			}
		}

		inf.Set(infType, descriptor.NewMap().Node())
	}
	return backups, nil
}

// moveTemplate copies an infrastructure template into the lifecycle scripts
// of driver. It returns the original when it was copied.
func (a *autocorrector) moveTemplate(file, driver, target string) ([]string, error) {
	if file == "" {
		return nil, nil
	}
	src := path.Join(infrastructureDir, file)
	if !a.v.Source.IsFile(src) {
		return nil, nil
	}
	dst := path.Join(lifecycleDir, driver, target)
	if err := tree.CopyFile(a.v.Source, src, a.v.Source, dst); err != nil {
		return nil, err
	}
	return []string{src}, nil
}

// addDriver selects driver for infrastructureType in a lifecycle, operation
// or queries entry.
func addDriver(entry descriptor.Map, driver, infrastructureType string, properties map[string]any) error {
	drv := entry.EnsureMap(keyDrivers).EnsureMap(driver)
	appendUnique(drv.EnsureMap(keySelector).EnsureSeq(keyInfrastructureType), infrastructureType)
	if properties != nil && !drv.Has(descriptor.KeyProperties) {
		n, err := descriptor.Encode(properties)
		if err != nil {
			return err
		}
		drv.Set(descriptor.KeyProperties, n)
	}
	return nil
}

func (a *autocorrector) retireInfrastructure() {
	src := a.v.Source
	if !src.IsDir(infrastructureDir) {
		return
	}
	bak := infrastructureDir + "-bak"
	if err := src.Rename(infrastructureDir, bak); err != nil {
		a.v.Warning(infrastructureDir, "Failed to rename infrastructure directory %s to %s, this directory is no longer needed after correcting infrastructure validation errors, please remove. Rename error was: %v",
			src.Path(infrastructureDir), src.Path(bak), err)
	}
}

// missingSelectors returns the driver entries that carry infrastructure-type
// directly instead of under a selector.
func missingSelectors(d *descriptor.Descriptor) []descriptor.Map {
	var found []descriptor.Map
	collect := func(_ string, value *yaml.Node) {
		if drv, ok := descriptor.AsMap(value); ok && drv.Has(keyInfrastructureType) {
			found = append(found, drv)
		}
	}
	for _, section := range []string{descriptor.KeyLifecycle, descriptor.KeyOperations} {
		sec, ok := d.Map.Map(section)
		if !ok {
			continue
		}
		sec.Range(func(_ string, value *yaml.Node) {
			if entry, ok := descriptor.AsMap(value); ok {
				if drivers, ok := entry.Map(keyDrivers); ok {
					drivers.Range(collect)
				}
			}
		})
	}
	if defaults, ok := d.Map.Map(descriptor.KeyDefaultDriver); ok {
		defaults.Range(collect)
	}
	return found
}

func (a *autocorrector) selectors() {
	d, ok := a.load()
	if !ok || len(missingSelectors(d)) == 0 {
		return
	}
	full := a.v.Source.Path(a.descriptor)
	a.apply(correction{
		found:       fmt.Sprintf("Found lifecycle/operation/default-driver entries missing 'selector' key before 'infrastructure-type' [%s], attempting to autocorrect by moving contents under a selector key", full),
		unsupported: fmt.Sprintf("Found lifecycle/operation/default-driver entries missing 'selector' key before 'infrastructure-type' [%s]: this format is no longer supported by the Brent Resource Manager. Move infrastructure-type information under the selector key or enable the autocorrect option", full),
		failed:      fmt.Sprintf("Found lifecycle/operation/default-driver entries missing 'selector' key before 'infrastructure-type' [%s]: Unable to autocorrect this issue, please add this information to the Resource descriptor manually instead", full),
		fix: func(d *descriptor.Descriptor) ([]string, error) {
			for _, drv := range missingSelectors(d) {
				n, _ := drv.Get(keyInfrastructureType)
				drv.Delete(keyInfrastructureType)
				drv.EnsureMap(keySelector).Set(keyInfrastructureType, n)
			}
			return nil, nil
		},
	})
}
