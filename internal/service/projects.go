package service

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/progress"
)

// ProjectInput carries the fields a caller may set when creating a project.
type ProjectInput struct {
	Title      string
	Importance int
	Deadline   *time.Time
	ActionPlan string
	Color      string
}

// ProjectService orchestrates project operations and owns progress
// persistence.
type ProjectService struct {
	*env
	templates *TemplateService
	// progressMu orders progress derivation: RecomputeAll passes and the
	// re-derivation in Update. Taken before any project lock.
	progressMu sync.Mutex
}

// List returns active and archived projects.
func (s *ProjectService) List() ([]*gtd.Project, error) {
	return s.store.ListProjects()
}

// Get resolves a project by id or title.
func (s *ProjectService) Get(key string) (*gtd.Project, error) {
	return s.store.FindProject(key)
}

// Create validates and writes a new project.
func (s *ProjectService) Create(in ProjectInput) (*gtd.Project, error) {
	p := gtd.NewProject(in.Title)
	if in.Importance != 0 {
		p.Importance = in.Importance
	}
	if in.Deadline != nil {
		d := *in.Deadline
		p.Deadline = &d
	}
	p.ActionPlan = in.ActionPlan
	if in.Color != "" {
		p.Color = in.Color
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.FindProject(p.Title); err == nil {
		return nil, &gtd.ValidationError{Entity: "project", Problems: []string{fmt.Sprintf("a project named %q already exists", p.Title)}}
	}
	p.Body = s.templates.Body(ProjectTemplate)
	if _, err := s.store.CreateProject(p); err != nil {
		return nil, err
	}
	s.journal.Info("created project %q", p.Title)
	return p, nil
}

// Update validates and persists a caller-edited project. Progress is
// re-derived rather than taken from the caller.
func (s *ProjectService) Update(p *gtd.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	unlock := s.locks.Lock(projectKey(p.ID))
	defer unlock()
	prev, err := s.store.FindProject(p.ID)
	if err != nil {
		return err
	}
	p.Path = prev.Path
	p.Progress = prev.Progress
	if p.IsCompleted() {
		p.Progress = 100
	} else if tasks, err := s.store.ListTasks(); err == nil {
		p.UpdateProgress(progress.Calculate(p, tasks))
	}
	return s.save(prev, p)
}

func (s *ProjectService) mutate(key string, change func(p *gtd.Project)) (*gtd.Project, error) {
	found, err := s.store.FindProject(key)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(projectKey(found.ID))
	defer unlock()
	prev, err := s.store.FindProject(found.ID)
	if err != nil {
		return nil, err
	}
	next := prev.Clone()
	change(next)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := s.save(prev, next); err != nil {
		return nil, err
	}
	return next, nil
}

// save writes next and archives it when it has just been completed. Callers
// hold the project lock.
func (s *ProjectService) save(prev, next *gtd.Project) error {
	if err := s.store.UpdateProject(next); err != nil {
		return err
	}
	if next.IsCompleted() {
		if !prev.IsCompleted() {
			s.journal.Info("completed project %q", next.Title)
		}
		// Archiving is cosmetic; progress and status are already durable.
		if err := s.store.ArchiveProject(next); err != nil {
			s.logger.Printf("service: archive project %s: %v", next.ID, err)
			s.journal.Warn("could not archive project %q: %v", next.Title, err)
		}
	}
	return nil
}

// Start moves a not-started project in progress.
func (s *ProjectService) Start(key string) (*gtd.Project, error) {
	return s.mutate(key, func(p *gtd.Project) { p.Start(s.now()) })
}

// Complete finishes the project and archives it on a best-effort basis.
func (s *ProjectService) Complete(key string) (*gtd.Project, error) {
	return s.mutate(key, func(p *gtd.Project) { p.Complete(s.now()) })
}

// ChangeStatus applies a status transition. Reopening a completed project
// leaves its document in the archive.
func (s *ProjectService) ChangeStatus(key string, status gtd.ProjectStatus) (*gtd.Project, error) {
	if !status.Valid() {
		return nil, &gtd.ValidationError{Entity: "project", Problems: []string{fmt.Sprintf("invalid status %q", status)}}
	}
	return s.mutate(key, func(p *gtd.Project) { p.ChangeStatus(status, s.now()) })
}

// Delete removes the project document recoverably. Tasks keep their link
// text; it simply stops resolving.
func (s *ProjectService) Delete(key string) error {
	p, err := s.store.FindProject(key)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(projectKey(p.ID))
	defer unlock()
	return s.store.DeleteProject(p.ID)
}

// Stats returns the member statistics of a project.
func (s *ProjectService) Stats(p *gtd.Project) (progress.Stats, error) {
	tasks, err := s.store.ListTasks()
	if err != nil {
		return progress.Stats{}, err
	}
	return progress.Statistics(p, tasks), nil
}

// RecomputeAll re-derives every open project's progress and persists the
// ones that changed, in parallel. It returns how many were written.
//
// Passes run one at a time. A pass lists tasks only after every earlier pass
// has written, so the last pass to run always stores values derived from the
// newest task state.
func (s *ProjectService) RecomputeAll() (int, error) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	projects, err := s.store.ListProjects()
	if err != nil {
		return 0, err
	}
	tasks, err := s.store.ListTasks()
	if err != nil {
		return 0, err
	}
	open := make([]*gtd.Project, 0, len(projects))
	for _, p := range projects {
		if !p.IsCompleted() && !p.Broken {
			open = append(open, p)
		}
	}
	var written atomic.Int32
	var g errgroup.Group
	for id, value := range progress.Changed(open, tasks) {
		id, value := id, value
		g.Go(func() error {
			unlock := s.locks.Lock(projectKey(id))
			defer unlock()
			fresh, err := s.store.FindProject(id)
			if err != nil {
				return err
			}
			if fresh.IsCompleted() || fresh.Progress == value {
				return nil
			}
			fresh.UpdateProgress(value)
			if err := s.store.UpdateProject(fresh); err != nil {
				return err
			}
			written.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("service: recompute progress: %w", err)
	}
	return int(written.Load()), nil
}

// recompute runs RecomputeAll after a task mutation. The task write already
// succeeded, so a failure here is logged rather than returned.
func (s *ProjectService) recompute() {
	if _, err := s.RecomputeAll(); err != nil {
		s.logger.Printf("%v", err)
	}
}

// link adds a backlink for the task document name to the project the link
// token points at. Unknown projects are ignored.
func (s *ProjectService) link(projectLink, name string) {
	s.editBody(projectLink, func(body string) string { return addBacklink(body, name) })
}

// unlink removes the backlink for name.
func (s *ProjectService) unlink(projectLink, name string) {
	s.editBody(projectLink, func(body string) string { return removeBacklink(body, name) })
}

func (s *ProjectService) editBody(projectLink string, edit func(string) string) {
	found, err := s.store.FindProject(gtd.LinkTarget(projectLink))
	if err != nil {
		s.logger.Printf("service: backlink target %s: %v", projectLink, err)
		return
	}
	unlock := s.locks.Lock(projectKey(found.ID))
	defer unlock()
	p, err := s.store.FindProject(found.ID)
	if err != nil {
		s.logger.Printf("service: backlink target %s: %v", projectLink, err)
		return
	}
	body := edit(p.Body)
	if body == p.Body {
		return
	}
	p.Body = body
	if err := s.store.UpdateProject(p); err != nil {
		s.logger.Printf("service: update backlinks of %s: %v", p.ID, err)
	}
}
