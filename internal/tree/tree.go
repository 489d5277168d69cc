// Package tree provides a rooted view over a billy filesystem. Handlers receive
// a Tree for their source, staging and compile directories instead of working
// with raw paths.
package tree

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ErrAmbiguous is returned by FindOne when more than one candidate exists.
var ErrAmbiguous = errors.New("more than one candidate found")

// Tree is a directory within a filesystem.
type Tree struct {
	fs   billy.Filesystem
	base string
}

// New returns a Tree rooted at base within fs.
func New(fs billy.Filesystem, base string) *Tree {
	return &Tree{fs: fs, base: filepath.ToSlash(filepath.Clean(base))}
}

// OS returns a Tree over the host filesystem rooted at dir.
func OS(dir string) (*Tree, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", dir, err)
	}
	return New(osfs.New("/"), abs), nil
}

// FS returns the underlying filesystem.
//
//nolint:ireturn // the billy interface is the abstraction being exposed.
func (t *Tree) FS() billy.Filesystem {
	return t.fs
}

// Root returns the base path of the tree.
func (t *Tree) Root() string {
	return t.base
}

// Path joins elem onto the tree root.
func (t *Tree) Path(elem ...string) string {
	return t.fs.Join(append([]string{t.base}, elem...)...)
}

// Sub returns a Tree rooted at a path below this one.
func (t *Tree) Sub(elem ...string) *Tree {
	return &Tree{fs: t.fs, base: t.Path(elem...)}
}

// Rel returns path relative to the tree root, using forward slashes.
func (t *Tree) Rel(path string) (string, error) {
	rel, err := filepath.Rel(t.base, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Exists reports whether rel exists.
func (t *Tree) Exists(rel string) (bool, error) {
	_, err := t.fs.Stat(t.Path(rel))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("stat %q: %w", t.Path(rel), err)
	}
}

// IsDir reports whether rel exists and is a directory.
func (t *Tree) IsDir(rel string) bool {
	info, err := t.fs.Stat(t.Path(rel))
	return err == nil && info.IsDir()
}

// IsFile reports whether rel exists and is a regular file.
func (t *Tree) IsFile(rel string) bool {
	info, err := t.fs.Stat(t.Path(rel))
	return err == nil && !info.IsDir()
}

// Stat returns file info for rel.
func (t *Tree) Stat(rel string) (os.FileInfo, error) {
	return t.fs.Stat(t.Path(rel))
}

// FindOne returns the single candidate that exists. It returns "" when none
// exist and ErrAmbiguous when more than one does.
func (t *Tree) FindOne(candidates ...string) (string, error) {
	var found []string
	for _, c := range candidates {
		ok, err := t.Exists(c)
		if err != nil {
			return "", err
		}
		if ok {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return "", nil
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, strings.Join(found, ", "))
	}
}

// ReadFile reads rel.
func (t *Tree) ReadFile(rel string) ([]byte, error) {
	data, err := util.ReadFile(t.fs, t.Path(rel))
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", t.Path(rel), err)
	}
	return data, nil
}

// WriteFile writes data to rel, creating parent directories.
func (t *Tree) WriteFile(rel string, data []byte) error {
	path := t.Path(rel)
	if err := t.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating parent of %q: %w", path, err)
	}
	if err := util.WriteFile(t.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

// Create opens rel for writing, creating parent directories.
//
//nolint:ireturn // billy.File is the only file abstraction available.
func (t *Tree) Create(rel string) (billy.File, error) {
	path := t.Path(rel)
	if err := t.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating parent of %q: %w", path, err)
	}
	return t.fs.Create(path)
}

// Open opens rel for reading.
//
//nolint:ireturn // billy.File is the only file abstraction available.
func (t *Tree) Open(rel string) (billy.File, error) {
	return t.fs.Open(t.Path(rel))
}

// MkdirAll creates rel and any missing parents.
func (t *Tree) MkdirAll(rel string) error {
	return t.fs.MkdirAll(t.Path(rel), 0o755)
}

// Rename moves from to to within the tree.
func (t *Tree) Rename(from, to string) error {
	if err := t.fs.Rename(t.Path(from), t.Path(to)); err != nil {
		return fmt.Errorf("renaming %q to %q: %w", from, to, err)
	}
	return nil
}

// RemoveAll removes rel and everything below it. A missing path is not an error.
func (t *Tree) RemoveAll(rel string) error {
	ok, err := t.Exists(rel)
	if err != nil || !ok {
		return err
	}
	return util.RemoveAll(t.fs, t.Path(rel))
}

// Clean removes the tree root and recreates it empty.
func (t *Tree) Clean() error {
	if err := t.RemoveAll(""); err != nil {
		return fmt.Errorf("cleaning %q: %w", t.base, err)
	}
	return t.MkdirAll("")
}

// ReadDir lists the entries of rel sorted by name.
func (t *Tree) ReadDir(rel string) ([]os.FileInfo, error) {
	entries, err := t.fs.ReadDir(t.Path(rel))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// WalkFiles calls fn for every regular file below rel in lexical order, passing
// the path relative to the tree root.
func (t *Tree) WalkFiles(rel string, fn func(rel string, info os.FileInfo) error) error {
	return util.Walk(t.fs, t.Path(rel), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		r, err := t.Rel(path)
		if err != nil {
			return err
		}
		return fn(r, info)
	})
}

// CopyFile copies a single file between trees, creating parent directories.
func CopyFile(src *Tree, srcRel string, dst *Tree, dstRel string) error {
	in, err := src.Open(srcRel)
	if err != nil {
		return fmt.Errorf("opening %q: %w", src.Path(srcRel), err)
	}
	defer in.Close()

	out, err := dst.Create(dstRel)
	if err != nil {
		return fmt.Errorf("creating %q: %w", dst.Path(dstRel), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying %q: %w", src.Path(srcRel), err)
	}
	return out.Close()
}

// CopyTree copies every file below srcRel into dstRel, preserving layout.
func CopyTree(src *Tree, srcRel string, dst *Tree, dstRel string) error {
	if err := dst.MkdirAll(dstRel); err != nil {
		return err
	}
	from := src.Sub(srcRel)
	return from.WalkFiles("", func(rel string, _ os.FileInfo) error {
		return CopyFile(from, rel, dst, joinRel(dstRel, rel))
	})
}

func joinRel(a, b string) string {
	if a == "" {
		return b
	}
	return a + "/" + b
}
