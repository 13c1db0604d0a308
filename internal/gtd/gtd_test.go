package gtd

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/gtdvault/internal/document"
)

var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func TestChangeStatusSideEffects(t *testing.T) {
	for _, status := range []TaskStatus{StatusInbox, StatusNextAction, StatusWaiting, StatusSomeday, StatusTrash} {
		task := NewTask("Write report")
		task.Date = day(2026, 10, 1)
		task.Completed = true
		task.ChangeStatus(status, testNow)
		if task.Status != status {
			t.Fatalf("status = %s, want %s", task.Status, status)
		}
		if task.Date != nil || task.Completed {
			t.Fatalf("%s: date=%v completed=%v, want cleared", status, task.Date, task.Completed)
		}
	}

	task := NewTask("Call bank")
	task.ChangeStatus(StatusToday, testNow)
	if task.Date == nil || document.FormatDate(*task.Date) != "2026-10-18" {
		t.Fatalf("today without date should get today, got %v", task.Date)
	}

	task = NewTask("Dentist")
	task.Date = day(2026, 10, 25)
	task.ChangeStatus(StatusToday, testNow)
	if document.FormatDate(*task.Date) != "2026-10-25" {
		t.Fatalf("today must keep an existing date, got %v", task.Date)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	task := NewTask("Ship")
	task.Complete()
	task.Complete()
	if !task.Completed {
		t.Fatalf("expected completed")
	}
	task.Uncomplete()
	if task.Completed {
		t.Fatalf("expected reopened")
	}
}

func TestDatePredicates(t *testing.T) {
	task := NewTask("x")
	task.Status = StatusToday
	task.Date = day(2026, 10, 17)
	if !task.IsOverdue(testNow) || !task.IsCarriedOver(testNow) {
		t.Fatalf("yesterday's task should be overdue and carried over")
	}
	task.Complete()
	if task.IsOverdue(testNow) {
		t.Fatalf("completed tasks are never overdue")
	}
	task.Date = day(2026, 10, 19)
	if !task.IsTomorrow(testNow) || task.IsToday(testNow) {
		t.Fatalf("tomorrow predicates wrong")
	}
}

func TestValidate(t *testing.T) {
	task := &Task{Title: " ", Status: "bogus", Priority: "urgent"}
	err := task.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Problems) != 3 {
		t.Fatalf("problems = %v", verr.Problems)
	}
	if err := NewTask("ok").Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}
	project := NewProject("Bad [[name]]")
	project.Importance = 9
	if !IsValidation(project.Validate()) {
		t.Fatalf("expected project validation error")
	}
}

func TestProjectDatesSetOnce(t *testing.T) {
	p := NewProject("Launch")
	p.Start(testNow)
	if p.Status != ProjectInProgress || p.StartedDate == nil {
		t.Fatalf("start did not take effect: %+v", p)
	}
	first := *p.StartedDate
	p.Status = ProjectNotStarted
	p.Start(testNow.AddDate(0, 0, 3))
	if !p.StartedDate.Equal(first) {
		t.Fatalf("started date changed to %v", p.StartedDate)
	}

	p.Complete(testNow)
	if p.Progress != 100 || p.CompletedDate == nil {
		t.Fatalf("complete did not take effect: %+v", p)
	}
	done := *p.CompletedDate
	p.Complete(testNow.AddDate(0, 1, 0))
	if !p.CompletedDate.Equal(done) {
		t.Fatalf("completed date changed to %v", p.CompletedDate)
	}
}

func TestLinks(t *testing.T) {
	if got := ProjectLink("Launch"); got != "[[Launch]]" {
		t.Fatalf("link = %q", got)
	}
	if got := ProjectLink("[[Launch]]"); got != "[[Launch]]" {
		t.Fatalf("wrapped link = %q", got)
	}
	if got := LinkTarget("[[Launch|the launch]]"); got != "Launch" {
		t.Fatalf("target = %q", got)
	}
	p := NewProject("Launch")
	if !p.Matches("[[Launch]]") || !p.Matches("[["+p.ID+"]]") || p.Matches("[[Other]]") || p.Matches("") {
		t.Fatalf("Matches misbehaves")
	}
}

func TestTaskRoundTrip(t *testing.T) {
	task := NewTask("Draft: report")
	task.Status = StatusToday
	task.Date = day(2026, 10, 18)
	task.Priority = PriorityHigh
	task.Tags = []string{"work", "writing"}
	task.Notes = "first line\nsecond line"
	task.Order = 3
	task.AssignToProject("Launch")
	task.Body = "Some body text"
	task.Path = "GTD/Tasks/Draft_ report.md"

	raw, err := task.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeTask(raw, task.Path, testNow)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, task) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v\n%s", got, task, raw)
	}
	if !strings.Contains(string(raw), "project: '[[Launch]]'") {
		t.Fatalf("project link not quoted:\n%s", raw)
	}
}

func TestTaskKeepsUnknownKeys(t *testing.T) {
	raw := "---\nid: abc\ntitle: Keep me\nmood: calm\nstatus: waiting\n---\n"
	task, err := DecodeTask([]byte(raw), "GTD/Tasks/Keep me.md", testNow)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Status != StatusWaiting || task.Priority != PriorityMedium {
		t.Fatalf("unexpected task %+v", task)
	}
	if !reflect.DeepEqual(task.Extra.Keys(), []string{"mood"}) {
		t.Fatalf("extra keys = %v", task.Extra.Keys())
	}
	out, err := task.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "---\nid: abc\ntitle: Keep me\nstatus: waiting\nmood: calm\n---\n"
	if string(out) != want {
		t.Fatalf("encoded:\n%s\nwant:\n%s", out, want)
	}
}

func TestMediumPriorityIsImplicit(t *testing.T) {
	task := NewTask("Water plants")
	task.Path = "GTD/Tasks/Water plants.md"
	raw, err := task.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(string(raw), "priority") {
		t.Fatalf("default priority written:\n%s", raw)
	}
	got, err := DecodeTask(raw, task.Path, testNow)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Priority != PriorityMedium {
		t.Fatalf("priority = %q", got.Priority)
	}

	task.Priority = PriorityLow
	raw, _ = task.Encode()
	if !strings.Contains(string(raw), "priority: low") {
		t.Fatalf("explicit priority dropped:\n%s", raw)
	}
}

func TestDecodeTaskDefaults(t *testing.T) {
	task, err := DecodeTask([]byte("plain notes"), "GTD/Tasks/plain.md", testNow)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Title != UntitledTask || task.Status != StatusInbox || task.Body != "plain notes" {
		t.Fatalf("defaults not applied: %+v", task)
	}
	if _, err := DecodeTask([]byte("---\ntitle: [\n---\n"), "x.md", testNow); !errors.Is(err, document.ErrMalformedDocument) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	p := NewProject("Launch")
	p.Deadline = day(2026, 12, 1)
	p.ActionPlan = "ship it"
	p.Start(testNow)
	p.UpdateProgress(40)
	p.Body = "## Tasks\n\n- [[Draft report]]"
	p.Path = "GTD/Projects/Launch.md"

	raw, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, ok, err := DecodeProject(raw, p.Path, testNow)
	if err != nil || !ok {
		t.Fatalf("decode: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, p) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v\n%s", got, p, raw)
	}
}

func TestDecodeProjectSkipsOtherDocuments(t *testing.T) {
	_, ok, err := DecodeProject([]byte("---\ntitle: Meeting notes\n---\n"), "GTD/Projects/notes.md", testNow)
	if err != nil || ok {
		t.Fatalf("non-project document accepted: ok=%v err=%v", ok, err)
	}
}
