package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
)

// TaskInput carries the fields a caller may set when creating a task. Empty
// fields take defaults from settings.
type TaskInput struct {
	// ID preassigns the identifier; empty generates one.
	ID       string
	Title    string
	Status   gtd.TaskStatus
	Priority gtd.Priority
	// Project is a project title, id, or "[[link]]".
	Project string
	Date    *time.Time
	Tags    []string
	Notes   string
	Order   int
}

// TaskService orchestrates task operations.
type TaskService struct {
	*env
	projects  *ProjectService
	templates *TemplateService
	daily     *DailyNoteService
}

// List returns every task, including completed and trashed ones.
func (s *TaskService) List() ([]*gtd.Task, error) {
	return s.store.ListTasks()
}

// Get resolves a task by id.
func (s *TaskService) Get(id string) (*gtd.Task, error) {
	return s.store.FindTask(id)
}

// ByStatus returns tasks in status s.
func (s *TaskService) ByStatus(status gtd.TaskStatus) ([]*gtd.Task, error) {
	return s.filter(func(t *gtd.Task) bool { return t.Status == status })
}

// Today returns tasks scheduled today.
func (s *TaskService) Today() ([]*gtd.Task, error) {
	now := s.now()
	return s.filter(func(t *gtd.Task) bool { return t.IsToday(now) })
}

// Tomorrow returns tasks scheduled tomorrow.
func (s *TaskService) Tomorrow() ([]*gtd.Task, error) {
	now := s.now()
	return s.filter(func(t *gtd.Task) bool { return t.IsTomorrow(now) })
}

// ByProject returns the tasks linked to the named project.
func (s *TaskService) ByProject(name string) ([]*gtd.Task, error) {
	link := gtd.ProjectLink(name)
	return s.filter(func(t *gtd.Task) bool { return t.Project == link })
}

func (s *TaskService) filter(keep func(*gtd.Task) bool) ([]*gtd.Task, error) {
	tasks, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []*gtd.Task
	for _, t := range tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Create validates and writes a new task, then links it from its project.
func (s *TaskService) Create(in TaskInput) (*gtd.Task, error) {
	t := gtd.NewTask(in.Title)
	if in.ID != "" {
		t.ID = in.ID
	}
	if in.Priority != "" {
		t.Priority = in.Priority
	} else if p, err := gtd.ParsePriority(s.settings.DefaultPriority); err == nil {
		t.Priority = p
	}
	t.Tags = in.Tags
	t.Notes = in.Notes
	t.Order = in.Order
	if in.Date != nil {
		t.SetDate(*in.Date)
	}
	if in.Status != "" && in.Status != gtd.StatusInbox {
		t.Status = in.Status
		if in.Status == gtd.StatusToday && t.Date == nil {
			t.SetDate(s.now())
		}
	}
	if in.Project != "" {
		project, err := s.store.FindProject(gtd.LinkTarget(in.Project))
		if err != nil {
			return nil, err
		}
		t.AssignToProject(project.Title)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.Body = s.templates.Body(TaskTemplate)

	if _, err := s.store.CreateTask(t); err != nil {
		return nil, err
	}
	if t.Project != "" {
		s.projects.link(t.Project, documentName(t.Path))
		s.projects.recompute()
	}
	return t, nil
}

// Update validates and persists a caller-edited task. Backlinks follow any
// change to the project field.
func (s *TaskService) Update(t *gtd.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	unlock := s.locks.Lock(taskKey(t.ID))
	defer unlock()
	prev, err := s.store.FindTask(t.ID)
	if err != nil {
		return err
	}
	t.Path = prev.Path
	return s.save(prev, t)
}

// mutate loads the task, applies change under the task's lock and saves it.
func (s *TaskService) mutate(id string, change func(t *gtd.Task) error) (*gtd.Task, error) {
	unlock := s.locks.Lock(taskKey(id))
	defer unlock()
	prev, err := s.store.FindTask(id)
	if err != nil {
		return nil, err
	}
	next := prev.Clone()
	if err := change(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	if err := s.save(prev, next); err != nil {
		return nil, err
	}
	return next, nil
}

// save writes next and keeps the trash folder, backlinks and progress in
// step. Callers hold the task lock.
func (s *TaskService) save(prev, next *gtd.Task) error {
	if err := s.store.UpdateTask(next); err != nil {
		return err
	}
	if next.Status == gtd.StatusTrash {
		if err := s.store.TrashTask(next); err != nil {
			return err
		}
	}
	oldName, newName := documentName(prev.Path), documentName(next.Path)
	if prev.Project != next.Project || oldName != newName {
		if prev.Project != "" {
			s.projects.unlink(prev.Project, oldName)
		}
		if next.Project != "" {
			s.projects.link(next.Project, newName)
		}
	}
	if !prev.Completed && next.Completed {
		s.journal.Info("completed %q", next.Title)
		s.daily.autoWrite(next)
	}
	if prev.Project != next.Project || prev.Completed != next.Completed || prev.Status != next.Status {
		s.projects.recompute()
	}
	return nil
}

// ToggleComplete flips the completed flag.
func (s *TaskService) ToggleComplete(id string) (*gtd.Task, error) {
	return s.mutate(id, func(t *gtd.Task) error {
		if t.Completed {
			t.Uncomplete()
		} else {
			t.Complete()
		}
		return nil
	})
}

// SetCompleted marks the task done or reopens it.
func (s *TaskService) SetCompleted(id string, done bool) (*gtd.Task, error) {
	return s.mutate(id, func(t *gtd.Task) error {
		if done {
			t.Complete()
		} else {
			t.Uncomplete()
		}
		return nil
	})
}

// ChangeStatus moves the task into status, applying the bucket's side
// effects. Moving into trash also relocates the document.
func (s *TaskService) ChangeStatus(id string, status gtd.TaskStatus) (*gtd.Task, error) {
	if !status.Valid() {
		return nil, &gtd.ValidationError{Entity: "task", Problems: []string{fmt.Sprintf("invalid status %q", status)}}
	}
	return s.mutate(id, func(t *gtd.Task) error {
		t.ChangeStatus(status, s.now())
		return nil
	})
}

// MoveToToday schedules the task today and puts it in the today bucket.
func (s *TaskService) MoveToToday(id string) (*gtd.Task, error) {
	return s.mutate(id, func(t *gtd.Task) error {
		t.SetDate(s.now())
		t.ChangeStatus(gtd.StatusToday, s.now())
		return nil
	})
}

// MoveToTomorrow reschedules the task for tomorrow without changing its
// bucket.
func (s *TaskService) MoveToTomorrow(id string) (*gtd.Task, error) {
	return s.mutate(id, func(t *gtd.Task) error {
		t.SetDate(s.now().AddDate(0, 0, 1))
		return nil
	})
}

// SetDate schedules the task on day, or clears the date when day is nil.
func (s *TaskService) SetDate(id string, day *time.Time) (*gtd.Task, error) {
	return s.mutate(id, func(t *gtd.Task) error {
		if day == nil {
			t.ClearDate()
		} else {
			t.SetDate(*day)
		}
		return nil
	})
}

// Trash moves the task into the trash bucket and folder.
func (s *TaskService) Trash(id string) (*gtd.Task, error) {
	return s.ChangeStatus(id, gtd.StatusTrash)
}

// Restore brings a trashed task back to the inbox and the active folder.
func (s *TaskService) Restore(id string) (*gtd.Task, error) {
	return s.mutate(id, func(t *gtd.Task) error {
		if t.Status != gtd.StatusTrash {
			return &gtd.ValidationError{Entity: "task", Problems: []string{"task is not in the trash"}}
		}
		t.ChangeStatus(gtd.StatusInbox, s.now())
		return nil
	})
}

// Delete removes the document recoverably and drops its backlink.
func (s *TaskService) Delete(id string) error {
	unlock := s.locks.Lock(taskKey(id))
	defer unlock()
	t, err := s.store.FindTask(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(id); err != nil {
		return err
	}
	if t.Project != "" {
		s.projects.unlink(t.Project, documentName(t.Path))
	}
	s.projects.recompute()
	return nil
}

// Assign links the task to an existing project.
func (s *TaskService) Assign(id, project string) (*gtd.Task, error) {
	p, err := s.store.FindProject(gtd.LinkTarget(project))
	if err != nil {
		return nil, err
	}
	return s.mutate(id, func(t *gtd.Task) error {
		t.AssignToProject(p.Title)
		return nil
	})
}

// Unassign clears the task's project.
func (s *TaskService) Unassign(id string) (*gtd.Task, error) {
	return s.mutate(id, func(t *gtd.Task) error {
		t.Unassign()
		return nil
	})
}

// SetOrder stores the manual position of one task.
func (s *TaskService) SetOrder(id string, order int) (*gtd.Task, error) {
	return s.mutate(id, func(t *gtd.Task) error {
		t.Order = order
		return nil
	})
}

// Reorder persists the manual order of a group: ids[i] gets order i+1. The
// writes are independent documents and run in parallel.
func (s *TaskService) Reorder(ids []string) error {
	var g errgroup.Group
	for i, id := range ids {
		id, order := id, i+1
		g.Go(func() error {
			_, err := s.SetOrder(id, order)
			return err
		})
	}
	return g.Wait()
}

// RollOver re-dates incomplete today tasks whose date fell into the past.
// It returns the number of tasks corrected.
func (s *TaskService) RollOver() (int, error) {
	tasks, err := s.List()
	if err != nil {
		return 0, err
	}
	now := s.now()
	var stale []string
	for _, t := range tasks {
		if t.IsCarriedOver(now) {
			stale = append(stale, t.ID)
		}
	}
	var g errgroup.Group
	for _, id := range stale {
		id := id
		g.Go(func() error {
			_, err := s.mutate(id, func(t *gtd.Task) error {
				if t.IsCarriedOver(now) {
					t.SetDate(now)
				}
				return nil
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if len(stale) > 0 {
		s.journal.Info("rolled %d task(s) over to %s", len(stale), document.FormatDate(now))
	}
	return len(stale), nil
}

// Sort orders tasks for display: by the order field in manual mode,
// otherwise by priority then date then title.
func Sort(tasks []*gtd.Task, manual bool) {
	rank := map[gtd.Priority]int{gtd.PriorityHigh: 0, gtd.PriorityMedium: 1, gtd.PriorityLow: 2}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if manual && a.Order != b.Order {
			// Unordered tasks (0) go last.
			if a.Order == 0 || b.Order == 0 {
				return b.Order == 0
			}
			return a.Order < b.Order
		}
		if rank[a.Priority] != rank[b.Priority] {
			return rank[a.Priority] < rank[b.Priority]
		}
		switch {
		case a.Date != nil && b.Date != nil && !a.Date.Equal(*b.Date):
			return a.Date.Before(*b.Date)
		case a.Date != nil && b.Date == nil:
			return true
		case a.Date == nil && b.Date != nil:
			return false
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	})
}
