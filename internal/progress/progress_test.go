package progress

import (
	"testing"

	"github.com/kingrea/gtdvault/internal/gtd"
)

func member(project string, status gtd.TaskStatus, done bool) *gtd.Task {
	t := gtd.NewTask("task")
	t.Status = status
	t.Completed = done
	t.Project = project
	return t
}

func TestCalculateRoundsHalfUp(t *testing.T) {
	p := gtd.NewProject("Launch")
	tasks := []*gtd.Task{
		member("[[Launch]]", gtd.StatusToday, true),
		member("[[Launch]]", gtd.StatusInbox, false),
		member("[["+p.ID+"]]", gtd.StatusNextAction, true),
		member("[[Other]]", gtd.StatusToday, true),
	}
	if got := Calculate(p, tasks); got != 67 {
		t.Fatalf("progress = %d, want 67", got)
	}
	half := []*gtd.Task{
		member("[[Launch]]", gtd.StatusToday, true),
		member("[[Launch]]", gtd.StatusToday, false),
	}
	if got := Calculate(p, half); got != 50 {
		t.Fatalf("progress = %d, want 50", got)
	}
	eighth := []*gtd.Task{member("[[Launch]]", gtd.StatusInbox, true)}
	for i := 0; i < 7; i++ {
		eighth = append(eighth, member("[[Launch]]", gtd.StatusInbox, false))
	}
	if got := Calculate(p, eighth); got != 13 {
		t.Fatalf("1/8 = %d, want 13", got)
	}
}

func TestCalculateEmptyProject(t *testing.T) {
	if got := Calculate(gtd.NewProject("Empty"), nil); got != 0 {
		t.Fatalf("progress = %d, want 0", got)
	}
}

func TestTrashedTasksStayMembers(t *testing.T) {
	p := gtd.NewProject("Launch")
	tasks := []*gtd.Task{
		member("[[Launch]]", gtd.StatusToday, true),
		member("[[Launch]]", gtd.StatusTrash, false),
	}
	if got := Calculate(p, tasks); got != 50 {
		t.Fatalf("progress = %d, want 50", got)
	}
	want := Stats{Total: 2, Completed: 1, Progress: 50}
	if got := Statistics(p, tasks); got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestStatistics(t *testing.T) {
	p := gtd.NewProject("Launch")
	tasks := []*gtd.Task{
		member("[[Launch]]", gtd.StatusToday, true),
		member("[[Launch]]", gtd.StatusToday, false),
		member("[[Launch]]", gtd.StatusNextAction, false),
		member("[[Launch]]", gtd.StatusInbox, false),
		member("[[Launch]]", gtd.StatusSomeday, false),
		member("[[Launch]]", gtd.StatusWaiting, false),
	}
	got := Statistics(p, tasks)
	want := Stats{Total: 6, Completed: 1, InProgress: 2, NotStarted: 2, Progress: 17}
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}

func TestChangedSkipsUpToDateProjects(t *testing.T) {
	a := gtd.NewProject("A")
	b := gtd.NewProject("B")
	b.Progress = 100
	tasks := []*gtd.Task{member("[[A]]", gtd.StatusToday, false), member("[[B]]", gtd.StatusToday, true)}
	changed := Changed([]*gtd.Project{a, b}, tasks)
	if len(changed) != 0 {
		t.Fatalf("expected no changes, got %v", changed)
	}
	tasks[0].Complete()
	changed = Changed([]*gtd.Project{a, b}, tasks)
	if len(changed) != 1 || changed[a.ID] != 100 {
		t.Fatalf("changed = %v", changed)
	}
	all := RecomputeAll([]*gtd.Project{a, b}, tasks)
	if all[a.ID] != 100 || all[b.ID] != 100 {
		t.Fatalf("recompute = %v", all)
	}
}
