package handlers

import (
	"github.com/opmodel/lmctl/internal/packaging"
	"github.com/opmodel/lmctl/internal/stage"
	"github.com/opmodel/lmctl/internal/validation"
)

// ETSI package layout shared by ETSI_NS and ETSI_VNF projects.
const (
	etsiManifest = "MRF.mf"
	etsiFilesDir = "Files"
)

func validateETSI(v *validation.Validator) {
	if !v.Source.IsFile(etsiManifest) {
		v.Warning(etsiManifest, "No ETSI manifest found at: %s", v.Source.Path(etsiManifest))
	}
	if !v.Source.IsDir(etsiFilesDir) {
		v.Warning(etsiFilesDir, "No Files directory found at: %s", v.Source.Path(etsiFilesDir))
	}
}

func stageETSI(s *stage.Stager) error {
	if s.Source.IsFile(etsiManifest) {
		s.Journal.Event("Staging ETSI manifest %s", s.Source.Path(etsiManifest))
		if err := s.StageFile(etsiManifest, etsiManifest, nil); err != nil {
			return err
		}
	}
	if s.Source.IsDir(etsiFilesDir) {
		s.Journal.Event("Staging directory %s", s.Source.Path(etsiFilesDir))
		return s.StageTree(etsiFilesDir, etsiFilesDir)
	}
	return nil
}

func compileETSI(c *packaging.Compiler) error {
	if c.Staged.IsFile(etsiManifest) {
		if err := c.CompileFile(etsiManifest, etsiManifest); err != nil {
			return err
		}
	}
	if c.Staged.IsDir(etsiFilesDir) {
		return c.CompileTree(etsiFilesDir, etsiFilesDir)
	}
	return nil
}
