// internal/tui/app.go
//
// The board is a bubbletea program over reconcile.Board. Every key mutates
// the board's in-memory snapshot and returns immediately; writes land in
// the background and failures come back as boardUpdateMsg.

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/reconcile"
	"github.com/kingrea/gtdvault/internal/service"
)

const rolloverInterval = time.Minute

// Journal is the user-facing event log shown in the status line.
type Journal interface {
	Info(format string, args ...any)
	Last() string
}

type nopJournal struct{}

func (nopJournal) Info(string, ...any) {}
func (nopJournal) Last() string        { return "" }

type boardUpdateMsg reconcile.Update

type rolloverTickMsg time.Time

// App is the board model.
type App struct {
	board   *reconcile.Board
	journal Journal
	keys    keyMap
	help    help.Model

	lists []list.Model
	focus int

	input  textinput.Model
	adding bool

	showProjects bool
	bar          progress.Model

	status string
	day    time.Time

	width  int
	height int
}

// NewApp builds the board view. The board must already be loaded.
func NewApp(board *reconcile.Board, journal Journal) *App {
	if journal == nil {
		journal = nopJournal{}
	}
	lists := make([]list.Model, len(boardColumns))
	for i, col := range boardColumns {
		l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
		l.Title = col.title
		l.SetShowStatusBar(false)
		l.SetFilteringEnabled(false)
		l.SetShowHelp(false)
		lists[i] = l
	}

	input := textinput.New()
	input.Placeholder = "New task title"
	input.CharLimit = 200
	input.Width = 40

	a := &App{
		board:   board,
		journal: journal,
		keys:    defaultKeyMap(),
		help:    help.New(),
		lists:   lists,
		input:   input,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		day:     board.Today(),
		width:   120,
		height:  30,
	}
	a.resize()
	a.refresh()
	return a
}

// Init starts listening for background updates and the rollover timer.
func (a *App) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(a.board.Updates()), tickRollover())
}

func waitForUpdate(updates <-chan reconcile.Update) tea.Cmd {
	return func() tea.Msg {
		return boardUpdateMsg(<-updates)
	}
}

func tickRollover() tea.Cmd {
	return tea.Tick(rolloverInterval, func(t time.Time) tea.Msg { return rolloverTickMsg(t) })
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()
		return a, nil

	case boardUpdateMsg:
		switch {
		case msg.Failure != nil:
			a.status = "⚠ " + msg.Failure.Summary()
		case msg.Err != nil:
			a.status = "⚠ " + msg.Err.Error()
		case msg.Reloaded:
			a.status = "Reloaded from the vault"
		}
		a.refresh()
		return a, waitForUpdate(a.board.Updates())

	case rolloverTickMsg:
		a.checkDay()
		return a, tickRollover()

	case tea.KeyMsg:
		if a.adding {
			return a.updateInput(msg)
		}
		return a.handleKey(msg)
	}
	return a, nil
}

// checkDay rolls stale today tasks forward once the date has changed.
func (a *App) checkDay() {
	today := a.board.Today()
	if !today.After(a.day) {
		return
	}
	a.day = today
	if n := a.board.RollOver(); n > 0 {
		a.status = fmt.Sprintf("Rolled %d task(s) over to today", n)
		a.refresh()
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	case key.Matches(msg, a.keys.Projects):
		a.showProjects = !a.showProjects
	case key.Matches(msg, a.keys.Reload):
		if err := a.board.Reload(); err != nil {
			a.status = "⚠ " + err.Error()
		} else {
			a.status = "Reloaded from the vault"
		}
		a.refresh()
	case a.showProjects:
		// The projects pane is read-only.
	case key.Matches(msg, a.keys.Add):
		a.adding = true
		a.input.Reset()
		return a, a.input.Focus()
	case key.Matches(msg, a.keys.NextColumn):
		a.focus = (a.focus + 1) % len(a.lists)
	case key.Matches(msg, a.keys.PrevColumn):
		a.focus = (a.focus + len(a.lists) - 1) % len(a.lists)
	case key.Matches(msg, a.keys.Toggle):
		a.apply(a.board.Toggle)
	case key.Matches(msg, a.keys.MoveTo):
		target := boardColumns[int(msg.String()[0]-'1')].status
		a.apply(func(id string) error { return a.board.Move(id, target) })
	case key.Matches(msg, a.keys.Trash):
		a.apply(a.board.Trash)
	case key.Matches(msg, a.keys.Up):
		a.shift(-1)
	case key.Matches(msg, a.keys.Down):
		a.shift(1)
	default:
		var cmd tea.Cmd
		a.lists[a.focus], cmd = a.lists[a.focus].Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) shift(delta int) {
	if !a.board.Manual() {
		a.status = "Reordering needs task_sort_mode: manual"
		return
	}
	a.apply(func(id string) error { return a.board.Shift(id, delta) })
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		title := strings.TrimSpace(a.input.Value())
		a.adding = false
		a.input.Blur()
		if title == "" {
			return a, nil
		}
		status := boardColumns[a.focus].status
		if _, err := a.board.Create(service.TaskInput{Title: title, Status: status}); err != nil {
			a.status = "⚠ " + err.Error()
		} else {
			a.status = fmt.Sprintf("Added %q", title)
		}
		a.refresh()
		return a, nil
	case tea.KeyEsc:
		a.adding = false
		a.input.Blur()
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// apply runs a board mutation on the selected task.
func (a *App) apply(mutate func(id string) error) {
	t := a.selected()
	if t == nil {
		return
	}
	if err := mutate(t.ID); err != nil {
		a.status = "⚠ " + err.Error()
	} else {
		a.status = ""
	}
	a.refresh()
}

func (a *App) selected() *gtd.Task {
	item, ok := a.lists[a.focus].SelectedItem().(taskItem)
	if !ok {
		return nil
	}
	return item.task
}

// refresh rebuilds every column from the board, keeping each column's
// selection on the same task when it is still there.
func (a *App) refresh() {
	for i, col := range boardColumns {
		l := &a.lists[i]
		selectedID := ""
		if item, ok := l.SelectedItem().(taskItem); ok {
			selectedID = item.task.ID
		}
		index := l.Index()

		tasks := a.board.Column(col.status)
		items := make([]list.Item, len(tasks))
		for j, t := range tasks {
			items[j] = taskItem{task: t}
			if t.ID == selectedID {
				index = j
			}
		}
		l.SetItems(items)
		if index >= len(items) {
			index = len(items) - 1
		}
		if index >= 0 {
			l.Select(index)
		}
	}
}

func (a *App) resize() {
	colWidth := max(24, a.width/len(a.lists))
	listHeight := max(6, a.height-9)
	for i := range a.lists {
		a.lists[i].SetSize(colWidth-4, listHeight)
	}
	a.bar.Width = max(10, min(40, a.width/3))
	a.help.Width = a.width
	a.input.Width = max(20, a.width-20)
}
