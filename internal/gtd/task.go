// Package gtd holds the task and project entities and the rules for moving
// them through the GTD workflow. Services never poke at raw fields; they call
// the transition methods defined here.
package gtd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/gtdvault/internal/document"
)

// TaskStatus is the GTD bucket a task currently occupies.
type TaskStatus string

const (
	StatusInbox      TaskStatus = "inbox"
	StatusNextAction TaskStatus = "next-action"
	StatusToday      TaskStatus = "today"
	StatusWaiting    TaskStatus = "waiting"
	StatusSomeday    TaskStatus = "someday"
	StatusTrash      TaskStatus = "trash"
)

// TaskStatuses lists every workflow status in board order.
var TaskStatuses = []TaskStatus{StatusInbox, StatusNextAction, StatusToday, StatusWaiting, StatusSomeday, StatusTrash}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// preExecution buckets hold work that has not started yet.
func (s TaskStatus) preExecution() bool {
	switch s {
	case StatusInbox, StatusNextAction, StatusWaiting, StatusSomeday:
		return true
	}
	return false
}

// ParseTaskStatus accepts a status name, tolerating case and underscores.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "_", "-"))
	if s == "next" {
		s = StatusNextAction
	}
	if !s.Valid() {
		return "", fmt.Errorf("gtd: unknown task status %q", raw)
	}
	return s, nil
}

// Priority ranks tasks within a bucket.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority accepts a priority name.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("gtd: unknown priority %q", raw)
	}
	return p, nil
}

// Task is one actionable item.
type Task struct {
	ID        string
	Title     string
	Status    TaskStatus
	Completed bool
	// Project is a "[[Name]]" link token, empty when unassigned.
	Project  string
	Date     *time.Time
	Priority Priority
	Tags     []string
	Notes    string
	Body     string
	Order    int

	// Path is where the document currently lives. Only the storage gateway
	// writes it.
	Path string
	// Broken marks a placeholder built from a document that failed to load.
	Broken bool
	// Extra carries header keys this package does not model.
	Extra document.Header
}

// NewTask builds a task with a fresh id and defaults applied.
func NewTask(title string) *Task {
	return &Task{
		ID:       NewID(),
		Title:    strings.TrimSpace(title),
		Status:   StatusInbox,
		Priority: PriorityMedium,
	}
}

// NewID returns a random collision-resistant identifier.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy safe to mutate independently.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Date != nil {
		d := *t.Date
		c.Date = &d
	}
	if t.Tags != nil {
		c.Tags = append([]string{}, t.Tags...)
	}
	c.Extra = t.Extra.Clone()
	return &c
}

// Complete marks the task done. Calling it twice changes nothing.
func (t *Task) Complete() {
	t.Completed = true
}

// Uncomplete reopens the task.
func (t *Task) Uncomplete() {
	t.Completed = false
}

// ChangeStatus moves the task into s and applies the bucket's side effects:
// pre-execution buckets and trash clear the date and reopen the task, today
// gets a date if it has none.
func (t *Task) ChangeStatus(s TaskStatus, today time.Time) {
	t.Status = s
	switch {
	case s.preExecution(), s == StatusTrash:
		t.Date = nil
		t.Completed = false
	case s == StatusToday:
		if t.Date == nil {
			t.SetDate(today)
		}
	}
}

// SetDate schedules the task on the calendar day of d.
func (t *Task) SetDate(d time.Time) {
	day := document.StartOfDay(d)
	t.Date = &day
}

// ClearDate unschedules the task.
func (t *Task) ClearDate() {
	t.Date = nil
}

// AssignToProject links the task to the named project.
func (t *Task) AssignToProject(name string) {
	t.Project = ProjectLink(name)
}

// Unassign removes any project link.
func (t *Task) Unassign() {
	t.Project = ""
}

// ProjectName returns the link target without brackets.
func (t *Task) ProjectName() string {
	return LinkTarget(t.Project)
}

// IsToday reports whether the task is scheduled on now's calendar day.
func (t *Task) IsToday(now time.Time) bool {
	return t.Date != nil && sameDay(*t.Date, now)
}

// IsTomorrow reports whether the task is scheduled the day after now.
func (t *Task) IsTomorrow(now time.Time) bool {
	return t.Date != nil && sameDay(*t.Date, now.AddDate(0, 0, 1))
}

// IsOverdue reports an incomplete task whose date is before today.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Date == nil || t.Completed {
		return false
	}
	return t.Date.Before(document.StartOfDay(now))
}

// IsCarriedOver reports an incomplete today task whose date silently fell
// into the past when the day rolled over.
func (t *Task) IsCarriedOver(now time.Time) bool {
	return t.Status == StatusToday && t.IsOverdue(now)
}

// Validate checks the fields a write requires.
func (t *Task) Validate() error {
	var problems []string
	if strings.TrimSpace(t.Title) == "" {
		problems = append(problems, "title is empty")
	}
	if !t.Status.Valid() {
		problems = append(problems, fmt.Sprintf("invalid status %q", t.Status))
	}
	if !t.Priority.Valid() {
		problems = append(problems, fmt.Sprintf("invalid priority %q", t.Priority))
	}
	if len(problems) > 0 {
		return &ValidationError{Entity: "task", Problems: problems}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
