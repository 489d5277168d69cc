package packaging

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/opmodel/lmctl/internal/journal"
	"github.com/opmodel/lmctl/internal/project"
	"github.com/opmodel/lmctl/internal/tree"
)

// Archive layout.
const (
	ContentDir = "content"

	legacyMetaFile   = "lmproject.yml"
	legacyContentTgz = "content.tgz"
)

// LargeFileThreshold is the size above which archiving a file is reported.
const LargeFileThreshold = 100000000

// ErrIllegalPath is returned when an archive entry would extract outside the
// target directory.
var ErrIllegalPath = errors.New("illegal path in package")

// Package archives the compiled content of p with freshly generated metadata
// into the build directory, then removes the compiled tree. It returns the
// archive path relative to build.
func Package(p *project.Project, compiled, build *tree.Tree, j *journal.Journal) (string, error) {
	j.Section("Finalise Package")
	if err := build.Clean(); err != nil {
		return "", &Error{Project: p.Config.Name, Err: err}
	}

	meta, err := NewMeta(p.Config, compiled)
	if err != nil {
		return "", &Error{Project: p.Config.Name, Err: err}
	}
	metaData, err := meta.Marshal()
	if err != nil {
		return "", &Error{Project: p.Config.Name, Err: err}
	}
	if err := build.WriteFile(MetaFile, metaData); err != nil {
		return "", &Error{Project: p.Config.Name, Err: err}
	}

	packaging := p.Config.EffectivePackaging()
	name := fmt.Sprintf("%s-%s.%s", p.Config.FullName(), p.Config.EffectiveVersion(), packaging)
	j.Event("Creating package at: %s", build.Path(name))

	err = writeArchive(build, name, func(w io.Writer) error {
		if packaging == project.PackagingCsar {
			return writeCsar(compiled, w, metaData, j)
		}
		return writeTgz(compiled, w, metaData, j)
	})
	if err != nil {
		return "", &Error{Project: p.Config.Name, Err: err}
	}
	if err := compiled.RemoveAll(""); err != nil {
		return "", &Error{Project: p.Config.Name, Err: err}
	}
	return name, nil
}

func noteLargeFile(j *journal.Journal, rel string, info os.FileInfo) {
	if info.Size() > LargeFileThreshold {
		j.Event("Processing large file %s (%.2f mb), this may take some time...", path.Base(rel), float64(info.Size())/1000000)
	}
}

// writeArchive writes the archive name in build through a temporary file
// that is renamed into place only once write succeeds.
func writeArchive(build *tree.Tree, name string, write func(w io.Writer) error) (err error) {
	tmp := name + ".tmp"
	f, err := build.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = build.RemoveAll(tmp)
		}
	}()
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return build.Rename(tmp, name)
}

func writeTgz(compiled *tree.Tree, w io.Writer, meta []byte, j *journal.Journal) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := compiled.WalkFiles("", func(rel string, info os.FileInfo) error {
		noteLargeFile(j, rel, info)
		return addTarFile(tw, compiled, rel, path.Join(ContentDir, rel), info)
	})
	if err != nil {
		return err
	}
	if err := addTarBytes(tw, MetaFile, meta); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func writeCsar(compiled *tree.Tree, w io.Writer, meta []byte, j *journal.Journal) error {
	zw := zip.NewWriter(w)
	err := compiled.WalkFiles("", func(rel string, info os.FileInfo) error {
		noteLargeFile(j, rel, info)
		return addZipFile(zw, compiled, rel, rel, info)
	})
	if err != nil {
		return err
	}
	mw, err := zw.Create(MetaFile)
	if err != nil {
		return err
	}
	if _, err := mw.Write(meta); err != nil {
		return err
	}
	return zw.Close()
}

func addTarFile(tw *tar.Writer, t *tree.Tree, rel, name string, info os.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	in, err := t.Open(rel)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(tw, in)
	return err
}

func addTarBytes(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}

func addZipFile(zw *zip.Writer, t *tree.Tree, rel, name string, info os.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	in, err := t.Open(rel)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(w, in)
	return err
}

// Archive is a built package.
type Archive struct {
	Tree *tree.Tree
	Path string
	Meta *Meta

	legacy bool
}

// Open reads the metadata of the package at rel within t.
func Open(t *tree.Tree, rel string) (*Archive, error) {
	a := &Archive{Tree: t, Path: rel}
	var metaData, legacyData []byte
	err := a.walk(func(name string, r io.Reader) error {
		var err error
		switch name {
		case MetaFile:
			metaData, err = io.ReadAll(r)
		case legacyMetaFile:
			legacyData, err = io.ReadAll(r)
		}
		return err
	})
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("reading %s: %w", t.Path(rel), err)}
	}

	switch {
	case metaData != nil:
		a.Meta, err = ParseMeta(metaData)
	case legacyData != nil:
		a.legacy = true
		a.Meta, err = parseLegacyMeta(legacyData)
	default:
		err = fmt.Errorf("could not find meta file %s in package: %s", MetaFile, t.Path(rel))
	}
	if err != nil {
		return nil, &Error{Err: err}
	}
	return a, nil
}

func (a *Archive) isZip() bool {
	ext := path.Ext(a.Path)
	return ext == ".csar" || ext == ".zip"
}

// Extract unpacks the package into dst, which is cleaned first, and returns
// the tree holding the root content.
func (a *Archive) Extract(dst *tree.Tree) (*tree.Tree, error) {
	if err := dst.Clean(); err != nil {
		return nil, &Error{Err: err}
	}
	err := a.walk(func(name string, r io.Reader) error {
		return writeEntry(dst, name, r)
	})
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("extracting %s: %w", a.Tree.Path(a.Path), err)}
	}
	if a.isZip() {
		return dst, nil
	}
	if a.legacy && dst.IsFile(legacyContentTgz) {
		nested := &Archive{Tree: dst, Path: legacyContentTgz}
		content := dst.Sub(ContentDir)
		err := nested.walk(func(name string, r io.Reader) error {
			return writeEntry(content, name, r)
		})
		if err != nil {
			return nil, &Error{Err: fmt.Errorf("extracting %s: %w", dst.Path(legacyContentTgz), err)}
		}
	}
	return dst.Sub(ContentDir), nil
}

func writeEntry(t *tree.Tree, name string, r io.Reader) error {
	out, err := t.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// walk calls fn for every regular file in the archive with its cleaned name.
func (a *Archive) walk(fn func(name string, r io.Reader) error) error {
	f, err := a.Tree.Open(a.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if a.isZip() {
		info, err := a.Tree.Stat(a.Path)
		if err != nil {
			return err
		}
		zr, err := zip.NewReader(f, info.Size())
		if err != nil {
			return err
		}
		for _, zf := range zr.File {
			if zf.FileInfo().IsDir() {
				continue
			}
			name, err := safeName(zf.Name)
			if err != nil {
				return err
			}
			rc, err := zf.Open()
			if err != nil {
				return err
			}
			err = fn(name, rc)
			_ = rc.Close()
			if err != nil {
				return err
			}
		}
		return nil
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := safeName(hdr.Name)
		if err != nil {
			return err
		}
		if err := fn(name, tr); err != nil {
			return err
		}
	}
}

func safeName(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrIllegalPath, name)
	}
	return clean, nil
}

// Project extracts the package into dst and pairs its configuration with the
// extracted content.
func (a *Archive) Project(dst *tree.Tree) (*project.Project, error) {
	content, err := a.Extract(dst)
	if err != nil {
		return nil, err
	}
	p, err := project.Bind(content, a.Meta.Config())
	if err != nil {
		return nil, &Error{Err: err}
	}
	return p, nil
}
