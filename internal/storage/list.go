package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/vault"
)

// unreadablePrefix marks placeholder titles for documents that failed to load.
const unreadablePrefix = "(unreadable) "

// ListTasks returns every task: the active root first, then the completed
// archive and trash. A missing root yields an empty list.
func (g *Gateway) ListTasks() ([]*gtd.Task, error) {
	root := g.layout.TaskRoot
	paths, err := g.listAll(root, CompletedDir, TrashFolder)
	if err != nil {
		return nil, err
	}
	for _, sub := range []string{CompletedDir, TrashFolder} {
		more, err := g.listAll(path.Join(root, sub))
		if err != nil {
			return nil, err
		}
		paths = append(paths, more...)
	}
	tasks := make([]*gtd.Task, 0, len(paths))
	for _, p := range paths {
		if t := g.loadTask(p); t != nil {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// ListProjects returns active projects followed by archived ones. Documents
// under the project root that are not tagged as projects are skipped.
func (g *Gateway) ListProjects() ([]*gtd.Project, error) {
	root := g.layout.ProjectRoot
	paths, err := g.listAll(root, CompletedDir)
	if err != nil {
		return nil, err
	}
	archived, err := g.listAll(path.Join(root, CompletedDir))
	if err != nil {
		return nil, err
	}
	paths = append(paths, archived...)
	projects := make([]*gtd.Project, 0, len(paths))
	for _, p := range paths {
		if project := g.loadProject(p); project != nil {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (g *Gateway) loadTask(p string) *gtd.Task {
	raw, err := g.fs.Read(p)
	if err != nil {
		g.logger.Printf("storage: skip task %s: %v", p, err)
		return nil
	}
	t, err := gtd.DecodeTask(raw, p, g.now())
	if err != nil {
		g.logger.Printf("storage: degrade task %s: %v", p, err)
		return placeholderTask(p)
	}
	if t.ID == "" {
		t.ID = gtd.NewID()
		g.backfill(p, t.Encode)
	}
	return t
}

func (g *Gateway) loadProject(p string) *gtd.Project {
	raw, err := g.fs.Read(p)
	if err != nil {
		g.logger.Printf("storage: skip project %s: %v", p, err)
		return nil
	}
	project, ok, err := gtd.DecodeProject(raw, p, g.now())
	if err != nil {
		g.logger.Printf("storage: degrade project %s: %v", p, err)
		return placeholderProject(p)
	}
	if !ok {
		return nil
	}
	if project.ID == "" {
		project.ID = gtd.NewID()
		g.backfill(p, project.Encode)
	}
	return project
}

// backfill persists a freshly generated id. Failure only costs a new id on
// the next listing, so it is logged rather than returned.
func (g *Gateway) backfill(p string, encode func() ([]byte, error)) {
	raw, err := encode()
	if err == nil {
		err = g.fs.Write(p, raw)
	}
	if err != nil {
		g.logger.Printf("storage: backfill id for %s: %v", p, err)
	}
}

func placeholderTask(p string) *gtd.Task {
	stem, _ := baseName(p)
	return &gtd.Task{
		ID:       p,
		Title:    unreadablePrefix + stem,
		Status:   gtd.StatusInbox,
		Priority: gtd.PriorityMedium,
		Path:     p,
		Broken:   true,
	}
}

func placeholderProject(p string) *gtd.Project {
	stem, _ := baseName(p)
	return &gtd.Project{
		ID:         p,
		Title:      unreadablePrefix + stem,
		Importance: gtd.DefaultImportance,
		Status:     gtd.ProjectNotStarted,
		Path:       p,
		Broken:     true,
	}
}

// listAll collects markdown documents below root, skipping the named direct
// subfolders, hidden folders, and reserved template names.
func (g *Gateway) listAll(root string, exclude ...string) ([]string, error) {
	root = vault.Clean(root)
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[path.Join(root, name)] = true
	}
	var out []string
	var walk func(dir string, top bool) error
	walk = func(dir string, top bool) error {
		entries, err := g.fs.List(dir)
		if err != nil {
			if top {
				return err
			}
			g.logger.Printf("storage: skip folder %s: %v", dir, err)
			return nil
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name, ".") {
				continue
			}
			if e.IsDir {
				if skip[e.Path] {
					continue
				}
				if err := walk(e.Path, false); err != nil {
					return err
				}
				continue
			}
			if path.Ext(e.Name) != docExt || TemplateNames[e.Name] {
				continue
			}
			out = append(out, e.Path)
		}
		return nil
	}
	if err := walk(root, true); err != nil {
		if errors.Is(err, vault.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list %s: %w", root, err)
	}
	return out, nil
}
