// Package vault is the file-system capability the rest of gtdvault is built
// on. Paths are slash separated and relative to the vault root so the core
// never has to care which OS it runs on.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TrashDir receives documents removed through Delete.
const TrashDir = ".trash"

var (
	// ErrExist is returned by Create when the destination already exists.
	ErrExist = errors.New("vault: document already exists")
	// ErrNotExist is returned when a path does not resolve.
	ErrNotExist = errors.New("vault: path does not exist")
	// ErrIO wraps every other failure reported by the host file system.
	ErrIO = errors.New("vault: io failure")
)

// Entry describes one child of a listed folder.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
}

// FS is the capability surface consumed from the host environment.
type FS interface {
	Read(p string) ([]byte, error)
	Write(p string, data []byte) error
	Create(p string, data []byte) error
	Rename(oldPath, newPath string) error
	Delete(p string) error
	List(dir string) ([]Entry, error)
	MkdirAll(dir string) error
	Exists(p string) bool
}

// OS implements FS on top of a real directory.
type OS struct {
	root string
	now  func() time.Time
}

// Option customizes an OS vault.
type Option func(*OS)

// WithClock overrides the clock used to stamp trashed file names.
func WithClock(clock func() time.Time) Option {
	return func(v *OS) {
		if clock != nil {
			v.now = clock
		}
	}
}

// NewOS roots a vault at dir.
func NewOS(dir string, opts ...Option) *OS {
	v := &OS{root: filepath.Clean(dir), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Root returns the absolute directory backing the vault.
func (v *OS) Root() string {
	return v.root
}

func (v *OS) abs(p string) string {
	return filepath.Join(v.root, filepath.FromSlash(Clean(p)))
}

// Read returns the document contents.
func (v *OS) Read(p string) ([]byte, error) {
	data, err := os.ReadFile(v.abs(p))
	if err != nil {
		return nil, wrap("read", p, err)
	}
	return data, nil
}

// Write replaces the document contents, creating parent folders as needed.
// Readers never observe a half-written document.
func (v *OS) Write(p string, data []byte) error {
	tmp, err := v.stage(p, data)
	if err != nil {
		return wrap("write", p, err)
	}
	if err := os.Rename(tmp, v.abs(p)); err != nil {
		os.Remove(tmp)
		return wrap("write", p, err)
	}
	return nil
}

// Create writes a new document and fails with ErrExist if p is taken. The
// document appears complete or not at all.
func (v *OS) Create(p string, data []byte) error {
	full := v.abs(p)
	tmp, err := v.stage(p, data)
	if err != nil {
		return wrap("create", p, err)
	}
	defer os.Remove(tmp)
	if err := os.Link(tmp, full); err != nil {
		return wrap("create", p, err)
	}
	return nil
}

// stage writes data to a hidden sibling of p and returns its host path.
func (v *OS) stage(p string, data []byte) (string, error) {
	dir := filepath.Dir(v.abs(p))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".write-*.tmp")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Rename moves a document. The destination must not exist.
func (v *OS) Rename(oldPath, newPath string) error {
	if v.Exists(newPath) {
		return wrap("rename", newPath, fs.ErrExist)
	}
	dst := v.abs(newPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return wrap("rename", newPath, err)
	}
	if err := os.Rename(v.abs(oldPath), dst); err != nil {
		return wrap("rename", oldPath, err)
	}
	return nil
}

// Delete moves the document into the vault's .trash folder so it can be
// recovered by hand.
func (v *OS) Delete(p string) error {
	if !v.Exists(p) {
		return wrap("delete", p, fs.ErrNotExist)
	}
	stamp := v.now().Format("20060102-150405")
	base := path.Base(Clean(p))
	ext := path.Ext(base)
	target := path.Join(TrashDir, fmt.Sprintf("%s.%s%s", strings.TrimSuffix(base, ext), stamp, ext))
	for i := 1; v.Exists(target); i++ {
		target = path.Join(TrashDir, fmt.Sprintf("%s.%s-%d%s", strings.TrimSuffix(base, ext), stamp, i, ext))
	}
	return v.Rename(p, target)
}

// List returns the direct children of dir sorted by name.
func (v *OS) List(dir string) ([]Entry, error) {
	items, err := os.ReadDir(v.abs(dir))
	if err != nil {
		return nil, wrap("list", dir, err)
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{
			Name:  item.Name(),
			Path:  path.Join(Clean(dir), item.Name()),
			IsDir: item.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// MkdirAll creates dir and its parents. Existing folders are fine.
func (v *OS) MkdirAll(dir string) error {
	if err := os.MkdirAll(v.abs(dir), 0o755); err != nil {
		return wrap("mkdir", dir, err)
	}
	return nil
}

// Exists reports whether p resolves to a file or folder.
func (v *OS) Exists(p string) bool {
	_, err := os.Stat(v.abs(p))
	return err == nil
}

// Clean normalizes a vault path: forward slashes, no leading slash, no dot
// segments. The vault root itself is "".
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Dir returns the parent folder of p in vault form.
func Dir(p string) string {
	return Clean(path.Dir(Clean(p)))
}

func wrap(op, p string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s %s", ErrNotExist, op, p)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s %s", ErrExist, op, p)
	default:
		return fmt.Errorf("%w: %s %s: %v", ErrIO, op, p, err)
	}
}
