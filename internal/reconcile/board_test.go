package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kingrea/gtdvault/internal/config"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/service"
	"github.com/kingrea/gtdvault/internal/storage"
	"github.com/kingrea/gtdvault/internal/vault"
)

var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)

var errDiskFull = errors.New("disk full")

// faultyFS fails writes whose path contains any armed fragment.
type faultyFS struct {
	vault.FS
	mu    sync.Mutex
	armed []string
}

func (f *faultyFS) arm(fragment string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = append(f.armed, fragment)
}

func (f *faultyFS) fails(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fragment := range f.armed {
		if strings.Contains(p, fragment) {
			return true
		}
	}
	return false
}

func (f *faultyFS) Write(p string, data []byte) error {
	if f.fails(p) {
		return fmt.Errorf("%w: write %s: %v", vault.ErrIO, p, errDiskFull)
	}
	return f.FS.Write(p, data)
}

func (f *faultyFS) Create(p string, data []byte) error {
	if f.fails(p) {
		return fmt.Errorf("%w: create %s: %v", vault.ErrIO, p, errDiskFull)
	}
	return f.FS.Create(p, data)
}

type recordingJournal struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingJournal) Info(format string, args ...any) {}

func (r *recordingJournal) Warn(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func (r *recordingJournal) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

type fixture struct {
	svc     *service.Services
	fs      *faultyFS
	board   *Board
	journal *recordingJournal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := func() time.Time { return testNow }
	settings := config.DefaultSettings()
	fsys := &faultyFS{FS: vault.NewOS(t.TempDir(), vault.WithClock(clock))}
	store := storage.New(fsys, storage.Layout{TaskRoot: settings.TaskFolder, ProjectRoot: settings.ProjectFolder}, storage.WithClock(clock))
	journal := &recordingJournal{}
	svc := service.New(store, settings, service.WithClock(clock), service.WithJournal(journal))
	b := New(svc, WithJournal(journal))
	return &fixture{svc: svc, fs: fsys, board: b, journal: journal}
}

// seed writes tasks through the services and loads the board.
func (f *fixture) seed(t *testing.T, inputs ...service.TaskInput) []*gtd.Task {
	t.Helper()
	var out []*gtd.Task
	for _, in := range inputs {
		task, err := f.svc.Tasks.Create(in)
		if err != nil {
			t.Fatalf("seed %q: %v", in.Title, err)
		}
		out = append(out, task)
	}
	if err := f.board.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return out
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func titles(tasks []*gtd.Task) string {
	var names []string
	for _, task := range tasks {
		names = append(names, task.Title)
	}
	return strings.Join(names, ",")
}

func TestToggleIsVisibleBeforeTheWriteLands(t *testing.T) {
	f := newFixture(t)
	tasks := f.seed(t, service.TaskInput{Title: "Draft report", Status: gtd.StatusToday})
	id := tasks[0].ID

	must(t, f.board.Toggle(id))
	if got, _ := f.board.Task(id); !got.Completed {
		t.Fatalf("toggle not applied in memory")
	}
	f.board.Wait()

	stored, err := f.svc.Tasks.Get(id)
	must(t, err)
	if !stored.Completed || stored.Path != "GTD/Tasks/completed/2026-10-18/Draft report.md" {
		t.Fatalf("stored completed=%v at %s", stored.Completed, stored.Path)
	}
	if got, _ := f.board.Task(id); got.Path != stored.Path {
		t.Fatalf("board path %s, vault path %s", got.Path, stored.Path)
	}
	if f.board.Pending() != 0 {
		t.Fatalf("writes still pending after Wait")
	}
}

func TestWritesForOneTaskApplyInOrder(t *testing.T) {
	f := newFixture(t)
	tasks := f.seed(t, service.TaskInput{Title: "Flip", Status: gtd.StatusNextAction})
	id := tasks[0].ID

	for i := 0; i < 5; i++ {
		must(t, f.board.Toggle(id))
	}
	must(t, f.board.Move(id, gtd.StatusWaiting))
	f.board.Wait()

	stored, err := f.svc.Tasks.Get(id)
	must(t, err)
	// Five toggles leave it completed; moving to waiting then reopens it.
	if stored.Completed || stored.Status != gtd.StatusWaiting {
		t.Fatalf("stored completed=%v status=%s", stored.Completed, stored.Status)
	}
	if got, _ := f.board.Task(id); got.Completed || got.Status != gtd.StatusWaiting {
		t.Fatalf("board diverged: completed=%v status=%s", got.Completed, got.Status)
	}
}

func TestFailedWriteTriggersReload(t *testing.T) {
	f := newFixture(t)
	tasks := f.seed(t,
		service.TaskInput{Title: "Doomed", Status: gtd.StatusToday},
		service.TaskInput{Title: "Fine", Status: gtd.StatusToday},
	)
	doomed, fine := tasks[0].ID, tasks[1].ID
	f.fs.arm("Doomed")

	must(t, f.board.Toggle(doomed))
	must(t, f.board.Toggle(fine))
	if got, _ := f.board.Task(doomed); !got.Completed {
		t.Fatalf("optimistic state missing")
	}
	f.board.Wait()

	if got, _ := f.board.Task(doomed); got.Completed {
		t.Fatalf("reload did not discard the failed toggle")
	}
	if got, _ := f.board.Task(fine); !got.Completed {
		t.Fatalf("reload lost the successful toggle")
	}

	var sawFailure, sawReload bool
	for len(f.board.Updates()) > 0 {
		u := <-f.board.Updates()
		if u.Failure != nil {
			sawFailure = true
			if u.Failure.Op != OpComplete || u.Failure.Entity != doomed || !errors.Is(u.Failure.Err, vault.ErrIO) {
				t.Fatalf("failure = %+v", u.Failure)
			}
		}
		sawReload = sawReload || u.Reloaded
	}
	if !sawFailure || !sawReload {
		t.Fatalf("updates: failure=%v reload=%v", sawFailure, sawReload)
	}
	lines := f.journal.all()
	if len(lines) != 1 || !strings.HasPrefix(lines[0], `complete "Doomed" failed:`) {
		t.Fatalf("journal = %v", lines)
	}
}

func TestFailedCreateDisappearsAfterReload(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	f.fs.arm("Ghost")
	created, err := f.board.Create(service.TaskInput{Title: "Ghost"})
	must(t, err)
	if _, ok := f.board.Task(created.ID); !ok {
		t.Fatalf("created task not shown")
	}
	f.board.Wait()
	if _, ok := f.board.Task(created.ID); ok {
		t.Fatalf("failed create still on the board")
	}
}

func TestCreateValidatesSynchronously(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	if _, err := f.board.Create(service.TaskInput{Title: " "}); !gtd.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.board.Create(service.TaskInput{Title: "x", Project: "Nowhere"}); !errors.Is(err, gtd.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.board.Pending() != 0 || len(f.board.Tasks()) != 0 {
		t.Fatalf("invalid create dispatched a write")
	}
}

func TestCreateThenEditKeepsOrder(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	created, err := f.board.Create(service.TaskInput{Title: "Quick", Status: gtd.StatusNextAction})
	must(t, err)
	must(t, f.board.Toggle(created.ID))
	f.board.Wait()
	stored, err := f.svc.Tasks.Get(created.ID)
	must(t, err)
	if !stored.Completed || stored.Status != gtd.StatusNextAction {
		t.Fatalf("stored %+v", stored)
	}
}

func TestOptimisticProjectProgress(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Projects.Create(service.ProjectInput{Title: "Launch"})
	must(t, err)
	tasks := f.seed(t,
		service.TaskInput{Title: "One", Project: "Launch"},
		service.TaskInput{Title: "Two", Project: "Launch"},
	)
	must(t, f.board.Toggle(tasks[0].ID))
	if p := f.board.Projects()[0]; p.Progress != 50 {
		t.Fatalf("in-memory progress = %d", p.Progress)
	}
	f.board.Wait()
	p, err := f.svc.Projects.Get("Launch")
	must(t, err)
	if p.Progress != 50 {
		t.Fatalf("stored progress = %d", p.Progress)
	}
}

func TestReorderAndShift(t *testing.T) {
	f := newFixture(t)
	f.seed(t,
		service.TaskInput{Title: "a", Status: gtd.StatusNextAction},
		service.TaskInput{Title: "b", Status: gtd.StatusNextAction},
		service.TaskInput{Title: "c", Status: gtd.StatusNextAction},
	)
	column := f.board.Column(gtd.StatusNextAction)
	ids := []string{column[0].ID, column[1].ID, column[2].ID}
	must(t, f.board.Reorder(ids))
	order := titles(f.board.Column(gtd.StatusNextAction))

	last := f.board.Column(gtd.StatusNextAction)[2]
	must(t, f.board.Shift(last.ID, -1))
	shifted := f.board.Column(gtd.StatusNextAction)
	if shifted[1].ID != last.ID {
		t.Fatalf("shift up: %s", titles(shifted))
	}
	must(t, f.board.Shift(shifted[0].ID, -1))
	f.board.Wait()

	stored, err := f.svc.Tasks.ByStatus(gtd.StatusNextAction)
	must(t, err)
	service.Sort(stored, true)
	if titles(stored) != titles(shifted) {
		t.Fatalf("vault order %s, board order %s (before shift %s)", titles(stored), titles(shifted), order)
	}
	for i, task := range stored {
		if task.Order != i+1 {
			t.Fatalf("%s has order %d", task.Title, task.Order)
		}
	}
}

func TestRollOver(t *testing.T) {
	f := newFixture(t)
	yesterday := testNow.AddDate(0, 0, -1)
	tasks := f.seed(t,
		service.TaskInput{Title: "Stale", Status: gtd.StatusToday, Date: &yesterday},
		service.TaskInput{Title: "Fresh", Status: gtd.StatusToday},
	)
	if n := f.board.RollOver(); n != 1 {
		t.Fatalf("rolled %d", n)
	}
	if got, _ := f.board.Task(tasks[0].ID); !got.IsToday(testNow) {
		t.Fatalf("in-memory date = %v", got.Date)
	}
	f.board.Wait()
	stored, err := f.svc.Tasks.Get(tasks[0].ID)
	must(t, err)
	if !stored.IsToday(testNow) {
		t.Fatalf("stored date = %v", stored.Date)
	}
	if n := f.board.RollOver(); n != 0 {
		t.Fatalf("second rollover moved %d", n)
	}
}

func TestTrashRestoreAndAssign(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Projects.Create(service.ProjectInput{Title: "Launch"})
	must(t, err)
	tasks := f.seed(t, service.TaskInput{Title: "Loose end", Status: gtd.StatusToday})
	id := tasks[0].ID

	if err := f.board.Restore(id); !gtd.IsValidation(err) {
		t.Fatalf("restore outside trash: %v", err)
	}
	must(t, f.board.Trash(id))
	if len(f.board.Column(gtd.StatusToday)) != 0 || len(f.board.Column(gtd.StatusTrash)) != 1 {
		t.Fatalf("trash not reflected in columns")
	}
	must(t, f.board.Restore(id))
	must(t, f.board.Assign(id, "[[Launch]]"))
	if err := f.board.Assign(id, "Nowhere"); !errors.Is(err, gtd.ErrNotFound) {
		t.Fatalf("assign to unknown project: %v", err)
	}
	f.board.Wait()

	stored, err := f.svc.Tasks.Get(id)
	must(t, err)
	if stored.Status != gtd.StatusInbox || stored.Project != "[[Launch]]" || stored.Path != "GTD/Tasks/Loose end.md" {
		t.Fatalf("stored %s %s at %s", stored.Status, stored.Project, stored.Path)
	}
	must(t, f.board.Unassign(id))
	f.board.Wait()
	stored, _ = f.svc.Tasks.Get(id)
	if stored.Project != "" {
		t.Fatalf("unassign not stored")
	}
}

func TestBrokenTasksAreReadOnly(t *testing.T) {
	f := newFixture(t)
	must(t, f.fs.Write("GTD/Tasks/bad.md", []byte("---\n: [\n---\n")))
	f.seed(t)
	inbox := f.board.Column(gtd.StatusInbox)
	if len(inbox) != 1 || !inbox[0].Broken {
		t.Fatalf("inbox = %+v", inbox)
	}
	if err := f.board.Toggle(inbox[0].ID); err == nil {
		t.Fatalf("toggled an unreadable document")
	}
}

func TestUnknownTask(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	if err := f.board.Toggle("missing"); !errors.Is(err, gtd.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.board.Move("missing", "later"); !gtd.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
