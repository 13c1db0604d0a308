package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/gtdvault/internal/config"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/reconcile"
	"github.com/kingrea/gtdvault/internal/service"
	"github.com/kingrea/gtdvault/internal/storage"
	"github.com/kingrea/gtdvault/internal/vault"
)

var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)

type stubJournal struct{ last string }

func (s *stubJournal) Info(format string, args ...any) {}
func (s *stubJournal) Last() string                    { return s.last }

func newTestApp(t *testing.T, seed ...service.TaskInput) (*App, *service.Services, *reconcile.Board) {
	t.Helper()
	clock := func() time.Time { return testNow }
	settings := config.DefaultSettings()
	fsys := vault.NewOS(t.TempDir(), vault.WithClock(clock))
	store := storage.New(fsys, storage.Layout{TaskRoot: settings.TaskFolder, ProjectRoot: settings.ProjectFolder}, storage.WithClock(clock))
	svc := service.New(store, settings, service.WithClock(clock))
	for _, in := range seed {
		if _, err := svc.Tasks.Create(in); err != nil {
			t.Fatalf("seed %q: %v", in.Title, err)
		}
	}
	board := reconcile.New(svc)
	if err := board.Load(); err != nil {
		t.Fatalf("load board: %v", err)
	}
	return NewApp(board, &stubJournal{last: "2026-10-18T09:00:00Z INFO session opened"}), svc, board
}

func press(t *testing.T, a *App, keys ...string) {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		a.Update(msg)
	}
}

func storedTask(t *testing.T, svc *service.Services, title string) *gtd.Task {
	t.Helper()
	tasks, err := svc.Tasks.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, task := range tasks {
		if task.Title == title {
			return task
		}
	}
	t.Fatalf("task %q not stored", title)
	return nil
}

func TestSpaceTogglesSelectedTask(t *testing.T) {
	a, svc, board := newTestApp(t, service.TaskInput{Title: "Draft report", Status: gtd.StatusToday})
	press(t, a, " ")
	if item := a.lists[0].SelectedItem().(taskItem); !item.task.Completed {
		t.Fatalf("column not refreshed after toggle")
	}
	board.Wait()
	if !storedTask(t, svc, "Draft report").Completed {
		t.Fatalf("toggle not written")
	}
}

func TestNumberKeysMoveBetweenColumns(t *testing.T) {
	a, svc, board := newTestApp(t, service.TaskInput{Title: "Call Sam", Status: gtd.StatusToday})
	press(t, a, "4")
	if len(a.lists[0].Items()) != 0 || len(a.lists[3].Items()) != 1 {
		t.Fatalf("task did not move to Waiting")
	}
	board.Wait()
	stored := storedTask(t, svc, "Call Sam")
	if stored.Status != gtd.StatusWaiting || stored.Date != nil {
		t.Fatalf("stored %s date %v", stored.Status, stored.Date)
	}
}

func TestQuickAddUsesFocusedColumn(t *testing.T) {
	a, svc, board := newTestApp(t)
	press(t, a, "tab", "a", "Buy milk", "enter")
	if a.adding {
		t.Fatalf("input still open")
	}
	if items := a.lists[1].Items(); len(items) != 1 || items[0].(taskItem).task.Title != "Buy milk" {
		t.Fatalf("next actions = %v", items)
	}
	board.Wait()
	if stored := storedTask(t, svc, "Buy milk"); stored.Status != gtd.StatusNextAction {
		t.Fatalf("stored status %s", stored.Status)
	}

	press(t, a, "a", "never mind", "esc")
	if len(board.Tasks()) != 1 {
		t.Fatalf("cancelled add created a task")
	}
}

func TestReorderKeysFollowSelection(t *testing.T) {
	a, svc, board := newTestApp(t,
		service.TaskInput{Title: "a", Status: gtd.StatusToday},
		service.TaskInput{Title: "b", Status: gtd.StatusToday},
	)
	press(t, a, "J")
	if item := a.lists[0].SelectedItem().(taskItem); item.task.Title != "a" || a.lists[0].Index() != 1 {
		t.Fatalf("selection did not follow the moved task")
	}
	board.Wait()
	if storedTask(t, svc, "a").Order != 2 || storedTask(t, svc, "b").Order != 1 {
		t.Fatalf("order not written")
	}
}

func TestTrashKeyHidesTask(t *testing.T) {
	a, svc, board := newTestApp(t, service.TaskInput{Title: "Junk", Status: gtd.StatusToday})
	press(t, a, "x")
	for i := range a.lists {
		if len(a.lists[i].Items()) != 0 {
			t.Fatalf("trashed task still shown in %s", boardColumns[i].title)
		}
	}
	board.Wait()
	if stored := storedTask(t, svc, "Junk"); stored.Path != "GTD/Tasks/trash/Junk.md" {
		t.Fatalf("stored at %s", stored.Path)
	}
}

func TestRolloverTickAfterDayChange(t *testing.T) {
	yesterday := testNow.AddDate(0, 0, -1)
	a, svc, board := newTestApp(t, service.TaskInput{Title: "Carry", Status: gtd.StatusToday, Date: &yesterday})

	_, cmd := a.Update(rolloverTickMsg(testNow))
	if cmd == nil {
		t.Fatalf("tick not rescheduled")
	}
	board.Wait()
	if storedTask(t, svc, "Carry").IsToday(testNow) {
		t.Fatalf("rolled over without a day change")
	}

	a.day = yesterday
	a.Update(rolloverTickMsg(testNow))
	if !strings.Contains(a.status, "Rolled 1 task(s)") {
		t.Fatalf("status = %q", a.status)
	}
	board.Wait()
	if !storedTask(t, svc, "Carry").IsToday(testNow) {
		t.Fatalf("rollover not written")
	}
}

func TestStatusLineShowsFailuresAndJournal(t *testing.T) {
	a, _, _ := newTestApp(t)
	if !strings.Contains(a.View(), "session opened") {
		t.Fatalf("journal line missing from view")
	}
	failure := &reconcile.Failure{Op: reconcile.OpComplete, Entity: "x", Label: "Draft report", Err: errors.New("disk full")}
	_, cmd := a.Update(boardUpdateMsg{Failure: failure})
	if cmd == nil {
		t.Fatalf("update listener not re-armed")
	}
	if view := a.View(); !strings.Contains(view, `complete "Draft report" failed: disk full`) {
		t.Fatalf("failure missing from view:\n%s", view)
	}
}

func TestViewShowsColumnsAndProjects(t *testing.T) {
	a, svc, board := newTestApp(t)
	if _, err := svc.Projects.Create(service.ProjectInput{Title: "Launch"}); err != nil {
		t.Fatal(err)
	}
	for _, title := range []string{"One", "Two"} {
		if _, err := svc.Tasks.Create(service.TaskInput{Title: title, Project: "Launch"}); err != nil {
			t.Fatal(err)
		}
	}
	press(t, a, "r")
	view := a.View()
	for _, col := range boardColumns {
		if !strings.Contains(view, col.title) {
			t.Fatalf("column %s missing", col.title)
		}
	}

	press(t, a, "tab", "tab", " ")
	board.Wait()
	press(t, a, "p")
	view = a.View()
	if !strings.Contains(view, "Launch") || !strings.Contains(view, " 50%") || !strings.Contains(view, "1/2 done") {
		t.Fatalf("projects pane:\n%s", view)
	}
}

func TestQuitKey(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
