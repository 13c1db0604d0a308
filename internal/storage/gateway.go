// Package storage owns every physical file operation on tasks and projects.
// A task's folder is a projection of its (status, completed) pair; every
// write path here re-derives it through LocationFor.
package storage

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/vault"
)

// Logger receives warnings about documents skipped or degraded while listing.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Layout names the task and project roots inside the vault.
type Layout struct {
	TaskRoot    string
	ProjectRoot string
}

// Gateway maps entities onto documents in a vault.
type Gateway struct {
	fs     vault.FS
	layout Layout
	now    func() time.Time
	logger Logger
}

// Option customizes a Gateway during construction.
type Option func(*Gateway)

// WithClock overrides the clock used for completion folders and fallbacks.
func WithClock(clock func() time.Time) Option {
	return func(g *Gateway) {
		if clock != nil {
			g.now = clock
		}
	}
}

// WithLogger routes listing warnings to logger.
func WithLogger(logger Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New builds a gateway over fsys.
func New(fsys vault.FS, layout Layout, opts ...Option) *Gateway {
	g := &Gateway{
		fs: fsys,
		layout: Layout{
			TaskRoot:    vault.Clean(layout.TaskRoot),
			ProjectRoot: vault.Clean(layout.ProjectRoot),
		},
		now:    time.Now,
		logger: nopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Layout returns the cleaned roots.
func (g *Gateway) Layout() Layout {
	return g.layout
}

// FS exposes the underlying capability for services that write auxiliary
// documents such as templates and reviews.
func (g *Gateway) FS() vault.FS {
	return g.fs
}

// EnsureRoots creates the task and project roots.
func (g *Gateway) EnsureRoots() error {
	for _, dir := range []string{g.layout.TaskRoot, g.layout.ProjectRoot} {
		if err := g.fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("storage: ensure %s: %w", dir, err)
		}
	}
	return nil
}

// CreateTask writes a new task document named after its title and records the
// final path on the task. Existing documents are never overwritten.
func (g *Gateway) CreateTask(t *gtd.Task) (string, error) {
	raw, err := t.Encode()
	if err != nil {
		return "", err
	}
	folder := LocationFor(g.layout.TaskRoot, t.Status, t.Completed, g.now())
	p, err := g.create(folder, Sanitize(t.Title), raw)
	if err != nil {
		return "", fmt.Errorf("storage: create task %q: %w", t.Title, err)
	}
	t.Path = p
	return p, nil
}

// CreateProject writes a new project document.
func (g *Gateway) CreateProject(p *gtd.Project) (string, error) {
	raw, err := p.Encode()
	if err != nil {
		return "", err
	}
	folder := g.layout.ProjectRoot
	if p.IsCompleted() {
		folder = ProjectArchive(g.layout.ProjectRoot, g.completedOn(p))
	}
	docPath, err := g.create(folder, Sanitize(p.Title), raw)
	if err != nil {
		return "", fmt.Errorf("storage: create project %q: %w", p.Title, err)
	}
	p.Path = docPath
	return docPath, nil
}

func (g *Gateway) create(folder, stem string, raw []byte) (string, error) {
	if err := g.fs.MkdirAll(folder); err != nil {
		return "", err
	}
	for {
		candidate, err := g.freePath(folder, stem, docExt)
		if err != nil {
			return "", err
		}
		err = g.fs.Create(candidate, raw)
		if err == nil {
			return candidate, nil
		}
		// Lost a race for the name; look for the next free one.
		if !errors.Is(err, vault.ErrExist) {
			return "", err
		}
	}
}

// UpdateTask rewrites the task in place, then moves it to the folder its
// state dictates. Trashed tasks are left where they are; Trash relocates
// them explicitly.
func (g *Gateway) UpdateTask(t *gtd.Task) error {
	if err := g.writeExisting("task", t.ID, t.Path, t.Broken, t.Encode); err != nil {
		return err
	}
	if t.Status == gtd.StatusTrash {
		return nil
	}
	target := g.taskTarget(t)
	if target == "" {
		return nil
	}
	moved, err := g.Move(t.Path, target)
	if err != nil {
		return fmt.Errorf("storage: relocate task %s: %w", t.ID, err)
	}
	t.Path = moved
	return nil
}

// taskTarget returns the folder t must move to, or "" if it already sits in
// an acceptable place. Completed tasks keep whichever dated folder they were
// first archived into.
func (g *Gateway) taskTarget(t *gtd.Task) string {
	root := g.layout.TaskRoot
	completedRoot := path.Join(root, CompletedDir)
	trashRoot := path.Join(root, TrashFolder)
	switch {
	case t.Completed && within(t.Path, completedRoot):
		return ""
	case t.Completed:
		return LocationFor(root, t.Status, true, g.now())
	case within(t.Path, completedRoot), within(t.Path, trashRoot), !within(t.Path, root):
		return LocationFor(root, t.Status, false, g.now())
	default:
		return ""
	}
}

// UpdateProject rewrites the project in place.
func (g *Gateway) UpdateProject(p *gtd.Project) error {
	return g.writeExisting("project", p.ID, p.Path, p.Broken, p.Encode)
}

func (g *Gateway) writeExisting(kind, id, docPath string, broken bool, encode func() ([]byte, error)) error {
	if broken {
		return fmt.Errorf("storage: %s %s is unreadable and must be fixed by hand: %w", kind, docPath, document.ErrMalformedDocument)
	}
	if docPath == "" || !g.fs.Exists(docPath) {
		return gtd.NotFound(kind, id)
	}
	raw, err := encode()
	if err != nil {
		return err
	}
	if err := g.fs.Write(docPath, raw); err != nil {
		return fmt.Errorf("storage: write %s %s: %w", kind, id, err)
	}
	return nil
}

// Move relocates a document into targetFolder, suffixing the name on
// collision. It is a no-op when the document already lives there.
func (g *Gateway) Move(docPath, targetFolder string) (string, error) {
	docPath, targetFolder = vault.Clean(docPath), vault.Clean(targetFolder)
	if vault.Dir(docPath) == targetFolder {
		return docPath, nil
	}
	if !g.fs.Exists(docPath) {
		return "", fmt.Errorf("storage: move %s: %w", docPath, vault.ErrNotExist)
	}
	if err := g.fs.MkdirAll(targetFolder); err != nil {
		return "", fmt.Errorf("storage: move %s: %w", docPath, err)
	}
	stem, ext := baseName(docPath)
	dest, err := g.freePath(targetFolder, stem, ext)
	if err != nil {
		return "", err
	}
	if dest == docPath {
		return docPath, nil
	}
	if err := g.fs.Rename(docPath, dest); err != nil {
		return "", fmt.Errorf("storage: move %s: %w", docPath, err)
	}
	return dest, nil
}

// TrashTask moves a trashed task into the trash folder.
func (g *Gateway) TrashTask(t *gtd.Task) error {
	moved, err := g.Move(t.Path, path.Join(g.layout.TaskRoot, TrashFolder))
	if err != nil {
		return err
	}
	t.Path = moved
	return nil
}

// ArchiveProject moves a completed project into its monthly archive unless
// it is already somewhere under the archive.
func (g *Gateway) ArchiveProject(p *gtd.Project) error {
	if within(p.Path, path.Join(g.layout.ProjectRoot, CompletedDir)) {
		return nil
	}
	moved, err := g.Move(p.Path, ProjectArchive(g.layout.ProjectRoot, g.completedOn(p)))
	if err != nil {
		return err
	}
	p.Path = moved
	return nil
}

func (g *Gateway) completedOn(p *gtd.Project) time.Time {
	if p.CompletedDate != nil {
		return *p.CompletedDate
	}
	return g.now()
}

// DeleteTask removes the task document recoverably.
func (g *Gateway) DeleteTask(id string) error {
	t, err := g.FindTask(id)
	if err != nil {
		return err
	}
	if err := g.fs.Delete(t.Path); err != nil {
		return fmt.Errorf("storage: delete task %s: %w", id, err)
	}
	return nil
}

// DeleteProject removes the project document recoverably.
func (g *Gateway) DeleteProject(id string) error {
	p, err := g.FindProject(id)
	if err != nil {
		return err
	}
	if err := g.fs.Delete(p.Path); err != nil {
		return fmt.Errorf("storage: delete project %s: %w", id, err)
	}
	return nil
}

// FindTask resolves a task by id.
func (g *Gateway) FindTask(id string) (*gtd.Task, error) {
	tasks, err := g.ListTasks()
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, gtd.NotFound("task", id)
}

// FindProject resolves a project by id or title.
func (g *Gateway) FindProject(key string) (*gtd.Project, error) {
	projects, err := g.ListProjects()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == key {
			return p, nil
		}
	}
	for _, p := range projects {
		if p.Title == key || p.Matches(key) {
			return p, nil
		}
	}
	return nil, gtd.NotFound("project", key)
}
