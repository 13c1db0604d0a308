package gtd

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kingrea/gtdvault/internal/document"
)

// Header keys used on disk.
const (
	keyID            = "id"
	keyType          = "type"
	keyTitle         = "title"
	keyStatus        = "status"
	keyProject       = "project"
	keyDate          = "date"
	keyCompleted     = "completed"
	keyPriority      = "priority"
	keyTags          = "tags"
	keyNotes         = "notes"
	keyOrder         = "order"
	keyImportance    = "importance"
	keyDeadline      = "deadline"
	keyActionPlan    = "action-plan"
	keyProgress      = "progress"
	keyStartedDate   = "started-date"
	keyCompletedDate = "completed-date"
	keyColor         = "color"

	// ProjectType tags project documents so stray notes in the project
	// folder are ignored.
	ProjectType = "project"

	UntitledTask    = "Untitled task"
	UntitledProject = "Untitled project"
)

var taskKeys = []string{keyID, keyTitle, keyStatus, keyProject, keyDate, keyCompleted, keyPriority, keyTags, keyNotes, keyOrder}

var projectKeys = []string{keyID, keyType, keyTitle, keyImportance, keyDeadline, keyStatus, keyActionPlan, keyProgress, keyStartedDate, keyCompletedDate, keyColor}

// DecodeTask parses a task document. now is the fallback for unparseable
// dates.
func DecodeTask(raw []byte, docPath string, now time.Time) (*Task, error) {
	header, body, err := document.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("gtd: decode task %s: %w", docPath, err)
	}
	return TaskFromHeader(header, body, docPath, now), nil
}

// TaskFromHeader maps a decoded header onto a Task, applying defaults.
func TaskFromHeader(header document.Header, body, docPath string, now time.Time) *Task {
	t := &Task{
		ID:        strings.TrimSpace(header.String(keyID)),
		Title:     strings.TrimSpace(header.String(keyTitle)),
		Status:    TaskStatus(header.String(keyStatus)),
		Completed: header.Bool(keyCompleted),
		Project:   strings.TrimSpace(header.String(keyProject)),
		Date:      header.Date(keyDate, now),
		Priority:  Priority(header.String(keyPriority)),
		Tags:      header.Strings(keyTags),
		Notes:     header.String(keyNotes),
		Body:      body,
		Order:     header.Int(keyOrder),
		Path:      docPath,
		Extra:     header.Without(taskKeys...),
	}
	if t.Title == "" {
		t.Title = UntitledTask
	}
	if !t.Status.Valid() {
		t.Status = StatusInbox
	}
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	return t
}

// Header renders the task's front matter. Known keys come first in a fixed
// order, followed by any preserved unknown keys.
func (t *Task) Header() (document.Header, error) {
	var h document.Header
	set := func(key string, value any) error { return h.Set(key, value) }
	for _, kv := range []struct {
		key   string
		value any
	}{
		{keyID, t.ID},
		{keyTitle, t.Title},
		{keyStatus, string(t.Status)},
		{keyProject, t.Project},
	} {
		if err := set(kv.key, kv.value); err != nil {
			return document.Header{}, err
		}
	}
	h.SetDate(keyDate, t.Date)
	// Medium is the decoded default, so it is left implicit.
	priority := string(t.Priority)
	if t.Priority == PriorityMedium {
		priority = ""
	}
	for _, kv := range []struct {
		key   string
		value any
	}{
		{keyCompleted, t.Completed},
		{keyPriority, priority},
		{keyTags, t.Tags},
		{keyNotes, t.Notes},
		{keyOrder, t.Order},
	} {
		if err := set(kv.key, kv.value); err != nil {
			return document.Header{}, err
		}
	}
	h.Merge(t.Extra)
	return h, nil
}

// Encode renders the full task document.
func (t *Task) Encode() ([]byte, error) {
	h, err := t.Header()
	if err != nil {
		return nil, fmt.Errorf("gtd: encode task %s: %w", t.ID, err)
	}
	return document.Encode(h, t.Body)
}

// DecodeProject parses a project document. ok is false when the document is
// not tagged as a project.
func DecodeProject(raw []byte, docPath string, now time.Time) (p *Project, ok bool, err error) {
	header, body, err := document.Decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("gtd: decode project %s: %w", docPath, err)
	}
	if header.String(keyType) != ProjectType {
		return nil, false, nil
	}
	return ProjectFromHeader(header, body, docPath, now), true, nil
}

// ProjectFromHeader maps a decoded header onto a Project, applying defaults.
func ProjectFromHeader(header document.Header, body, docPath string, now time.Time) *Project {
	p := &Project{
		ID:            strings.TrimSpace(header.String(keyID)),
		Title:         strings.TrimSpace(header.String(keyTitle)),
		Importance:    header.Int(keyImportance),
		Deadline:      header.Date(keyDeadline, now),
		Status:        ProjectStatus(header.String(keyStatus)),
		ActionPlan:    header.String(keyActionPlan),
		Color:         strings.TrimSpace(header.String(keyColor)),
		StartedDate:   header.Date(keyStartedDate, now),
		CompletedDate: header.Date(keyCompletedDate, now),
		Body:          body,
		Path:          docPath,
		Extra:         header.Without(projectKeys...),
	}
	p.UpdateProgress(header.Int(keyProgress))
	if p.Title == "" {
		p.Title = strings.TrimSuffix(path.Base(docPath), path.Ext(docPath))
		if p.Title == "" || p.Title == "." {
			p.Title = UntitledProject
		}
	}
	if p.Importance == 0 {
		p.Importance = DefaultImportance
	}
	p.Importance = max(MinImportance, min(MaxImportance, p.Importance))
	if !p.Status.Valid() {
		p.Status = ProjectNotStarted
	}
	return p
}

// Header renders the project's front matter.
func (p *Project) Header() (document.Header, error) {
	var h document.Header
	if err := h.Set(keyID, p.ID); err != nil {
		return document.Header{}, err
	}
	if err := h.Set(keyType, ProjectType); err != nil {
		return document.Header{}, err
	}
	if err := h.Set(keyTitle, p.Title); err != nil {
		return document.Header{}, err
	}
	if err := h.Set(keyImportance, p.Importance); err != nil {
		return document.Header{}, err
	}
	h.SetDate(keyDeadline, p.Deadline)
	if err := h.Set(keyStatus, string(p.Status)); err != nil {
		return document.Header{}, err
	}
	if err := h.Set(keyActionPlan, p.ActionPlan); err != nil {
		return document.Header{}, err
	}
	if err := h.Set(keyProgress, p.Progress); err != nil {
		return document.Header{}, err
	}
	h.SetDate(keyStartedDate, p.StartedDate)
	h.SetDate(keyCompletedDate, p.CompletedDate)
	if err := h.Set(keyColor, p.Color); err != nil {
		return document.Header{}, err
	}
	h.Merge(p.Extra)
	return h, nil
}

// Encode renders the full project document.
func (p *Project) Encode() ([]byte, error) {
	h, err := p.Header()
	if err != nil {
		return nil, fmt.Errorf("gtd: encode project %s: %w", p.ID, err)
	}
	return document.Encode(h, p.Body)
}

// HasID reports whether a raw document header already carries an id.
func HasID(raw []byte) bool {
	header, _, err := document.Decode(raw)
	return err == nil && strings.TrimSpace(header.String(keyID)) != ""
}
