package gtd

import (
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/gtdvault/internal/document"
)

// ProjectStatus tracks a project from idea to done.
type ProjectStatus string

const (
	ProjectNotStarted ProjectStatus = "not-started"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectNotStarted, ProjectInProgress, ProjectCompleted:
		return true
	}
	return false
}

// ParseProjectStatus accepts a project status name.
func ParseProjectStatus(raw string) (ProjectStatus, error) {
	s := ProjectStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("gtd: unknown project status %q", raw)
	}
	return s, nil
}

const (
	MinImportance     = 1
	MaxImportance     = 5
	DefaultImportance = 3
	DefaultColor      = "#3b82f6"
)

// Project groups tasks. It never stores its tasks; membership comes from each
// task's Project link.
type Project struct {
	ID            string
	Title         string
	Importance    int
	Deadline      *time.Time
	Status        ProjectStatus
	ActionPlan    string
	Color         string
	StartedDate   *time.Time
	CompletedDate *time.Time
	// Progress is derived from backlinked tasks and never authored by hand.
	Progress int
	Body     string

	Path   string
	Broken bool
	Extra  document.Header
}

// NewProject builds a not-started project with a fresh id.
func NewProject(title string) *Project {
	return &Project{
		ID:         NewID(),
		Title:      strings.TrimSpace(title),
		Importance: DefaultImportance,
		Status:     ProjectNotStarted,
		Color:      DefaultColor,
	}
}

// Clone returns a deep copy.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.Deadline = cloneTime(p.Deadline)
	c.StartedDate = cloneTime(p.StartedDate)
	c.CompletedDate = cloneTime(p.CompletedDate)
	c.Extra = p.Extra.Clone()
	return &c
}

// Link is the token tasks use to reference this project.
func (p *Project) Link() string {
	return ProjectLink(p.Title)
}

// Matches reports whether a task's project link points at p, either by title
// or by id.
func (p *Project) Matches(link string) bool {
	if link == "" {
		return false
	}
	target := LinkTarget(link)
	return target == p.Title || (p.ID != "" && target == p.ID)
}

// Start moves a not-started project in progress. StartedDate is only ever
// set once.
func (p *Project) Start(now time.Time) {
	if p.Status != ProjectNotStarted {
		return
	}
	p.Status = ProjectInProgress
	if p.StartedDate == nil {
		day := document.StartOfDay(now)
		p.StartedDate = &day
	}
}

// Complete finishes the project. CompletedDate keeps its first value on
// repeated calls.
func (p *Project) Complete(now time.Time) {
	p.Status = ProjectCompleted
	p.Progress = 100
	if p.CompletedDate == nil {
		day := document.StartOfDay(now)
		p.CompletedDate = &day
	}
}

// ChangeStatus routes to Start/Complete so their one-shot dates are honoured.
func (p *Project) ChangeStatus(s ProjectStatus, now time.Time) {
	switch s {
	case ProjectInProgress:
		if p.Status == ProjectNotStarted {
			p.Start(now)
			return
		}
		p.Status = ProjectInProgress
	case ProjectCompleted:
		p.Complete(now)
	default:
		p.Status = s
	}
}

// UpdateProgress stores a recomputed percentage clamped to [0,100].
func (p *Project) UpdateProgress(progress int) {
	p.Progress = max(0, min(100, progress))
}

// IsCompleted reports whether the project is done.
func (p *Project) IsCompleted() bool {
	return p.Status == ProjectCompleted
}

// IsOverdue reports an unfinished project past its deadline.
func (p *Project) IsOverdue(now time.Time) bool {
	if p.Deadline == nil || p.IsCompleted() {
		return false
	}
	return p.Deadline.Before(document.StartOfDay(now))
}

// Validate checks the fields a write requires.
func (p *Project) Validate() error {
	var problems []string
	if strings.TrimSpace(p.Title) == "" {
		problems = append(problems, "title is empty")
	}
	if strings.ContainsAny(p.Title, "[]") {
		problems = append(problems, "title may not contain brackets")
	}
	if p.Importance < MinImportance || p.Importance > MaxImportance {
		problems = append(problems, fmt.Sprintf("importance %d out of range %d-%d", p.Importance, MinImportance, MaxImportance))
	}
	if !p.Status.Valid() {
		problems = append(problems, fmt.Sprintf("invalid status %q", p.Status))
	}
	if len(problems) > 0 {
		return &ValidationError{Entity: "project", Problems: problems}
	}
	return nil
}

// ProjectLink wraps a name as a "[[name]]" link token. Already-wrapped names
// are returned unchanged.
func ProjectLink(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "[[" + LinkTarget(name) + "]]"
}

// LinkTarget strips the brackets from a link token.
func LinkTarget(link string) string {
	link = strings.TrimSpace(link)
	link = strings.TrimPrefix(link, "[[")
	link = strings.TrimSuffix(link, "]]")
	if i := strings.Index(link, "|"); i >= 0 {
		link = link[:i]
	}
	return strings.TrimSpace(link)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
