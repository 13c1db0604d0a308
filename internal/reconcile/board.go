// Package reconcile keeps the in-memory board the UI draws from in step with
// the vault. Mutations land in the snapshot synchronously; the matching
// service call runs on a goroutine. Writes for one entity apply in the order
// they were issued, and any failed write schedules a full reload once the
// queue drains.
package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/progress"
	"github.com/kingrea/gtdvault/internal/service"
)

// Op names the kind of write that was dispatched.
type Op string

const (
	OpCreate   Op = "create"
	OpComplete Op = "complete"
	OpMove     Op = "move"
	OpTrash    Op = "trash"
	OpRestore  Op = "restore"
	OpAssign   Op = "assign"
	OpUnassign Op = "unassign"
	OpReorder  Op = "reorder"
	OpRollOver Op = "rollover"
)

// Failure describes one write that did not reach the vault.
type Failure struct {
	Op     Op
	Entity string
	// Label is the entity's title when the write was issued.
	Label string
	Err   error
}

func (f Failure) Error() string {
	return f.Summary()
}

// Summary is the one-line text shown to the user.
func (f Failure) Summary() string {
	label := f.Label
	if label == "" {
		label = f.Entity
	}
	return fmt.Sprintf("%s %q failed: %v", f.Op, label, f.Err)
}

// Update tells the view that something changed behind its back.
type Update struct {
	Failure  *Failure
	Reloaded bool
	// Err is set when a reload itself failed.
	Err error
}

// Journal receives failure summaries.
type Journal interface {
	Warn(format string, args ...any)
}

type nopJournal struct{}

func (nopJournal) Warn(string, ...any) {}

// Option customizes a Board.
type Option func(*Board)

// WithJournal records failure summaries.
func WithJournal(j Journal) Option {
	return func(b *Board) {
		if j != nil {
			b.journal = j
		}
	}
}

// Board is the optimistic snapshot of every task and project.
type Board struct {
	svc     *service.Services
	journal Journal
	manual  bool

	mu       sync.Mutex
	tasks    map[string]*gtd.Task
	projects []*gtd.Project
	// gen counts optimistic mutations so a background reload can tell
	// whether the snapshot moved while it was listing.
	gen      uint64
	inflight int
	stale    bool
	tails    map[string]chan struct{}

	wg      sync.WaitGroup
	updates chan Update
}

// New builds an empty board over svc. Call Load before reading it.
func New(svc *service.Services, opts ...Option) *Board {
	b := &Board{
		svc:     svc,
		journal: nopJournal{},
		manual:  svc.Settings().ManualSort(),
		tasks:   make(map[string]*gtd.Task),
		tails:   make(map[string]chan struct{}),
		updates: make(chan Update, 16),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load reads the vault into the snapshot.
func (b *Board) Load() error {
	return b.Reload()
}

// Reload replaces the snapshot with what the vault currently holds.
func (b *Board) Reload() error {
	tasks, projects, err := b.list()
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.replace(tasks, projects)
	b.mu.Unlock()
	return nil
}

func (b *Board) list() ([]*gtd.Task, []*gtd.Project, error) {
	tasks, err := b.svc.Tasks.List()
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile: load tasks: %w", err)
	}
	projects, err := b.svc.Projects.List()
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile: load projects: %w", err)
	}
	return tasks, projects, nil
}

// replace installs a fresh listing. Callers hold mu.
func (b *Board) replace(tasks []*gtd.Task, projects []*gtd.Project) {
	b.tasks = make(map[string]*gtd.Task, len(tasks))
	for _, t := range tasks {
		b.tasks[t.ID] = t
	}
	b.projects = projects
	b.gen++
}

// Updates delivers failure and reload notices. Notices are dropped when
// nobody is reading.
func (b *Board) Updates() <-chan Update {
	return b.updates
}

// Wait blocks until every dispatched write and any reload it triggered
// has finished.
func (b *Board) Wait() {
	b.wg.Wait()
}

// Pending returns the number of writes still in flight.
func (b *Board) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inflight
}

// Manual reports whether columns follow the stored order.
func (b *Board) Manual() bool {
	return b.manual
}

// Task returns a copy of one task.
func (b *Board) Task(id string) (*gtd.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Tasks returns copies of every task in the snapshot.
func (b *Board) Tasks() []*gtd.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*gtd.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Column returns copies of the tasks in status, sorted for display.
func (b *Board) Column(status gtd.TaskStatus) []*gtd.Task {
	b.mu.Lock()
	var out []*gtd.Task
	for _, t := range b.tasks {
		if t.Status == status {
			out = append(out, t.Clone())
		}
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	service.Sort(out, b.manual)
	return out
}

// Projects returns copies of every project: open ones first, then by
// importance and title.
func (b *Board) Projects() []*gtd.Project {
	b.mu.Lock()
	out := make([]*gtd.Project, len(b.projects))
	for i, p := range b.projects {
		out[i] = p.Clone()
	}
	b.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.IsCompleted() != c.IsCompleted() {
			return !a.IsCompleted()
		}
		if a.Importance != c.Importance {
			return a.Importance > c.Importance
		}
		return strings.ToLower(a.Title) < strings.ToLower(c.Title)
	})
	return out
}

// Create validates in, shows the task at once and writes it in the
// background. Validation and unknown projects are reported synchronously.
func (b *Board) Create(in service.TaskInput) (*gtd.Task, error) {
	t := gtd.NewTask(in.Title)
	in.ID = t.ID
	now := b.svc.Now()
	if in.Priority != "" {
		t.Priority = in.Priority
	} else if p, err := gtd.ParsePriority(b.svc.Settings().DefaultPriority); err == nil {
		t.Priority = p
		in.Priority = p
	}
	t.Tags, t.Notes, t.Order = in.Tags, in.Notes, in.Order
	if in.Date != nil {
		t.SetDate(*in.Date)
	}
	if in.Status != "" && in.Status != gtd.StatusInbox {
		t.Status = in.Status
		if in.Status == gtd.StatusToday && t.Date == nil {
			t.SetDate(now)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if in.Project != "" {
		p := b.findProject(in.Project)
		if p == nil {
			return nil, gtd.NotFound("project", in.Project)
		}
		t.AssignToProject(p.Title)
		in.Project = p.Title
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	b.tasks[t.ID] = t
	b.touch()
	b.dispatch(OpCreate, t.ID, t.Title, func() error {
		created, err := b.svc.Tasks.Create(in)
		if err == nil {
			b.notePath(created)
		}
		return err
	})
	return t.Clone(), nil
}

// Toggle flips the completed flag.
func (b *Board) Toggle(id string) error {
	return b.mutate(id, OpComplete, func(t *gtd.Task) (func() (*gtd.Task, error), error) {
		if t.Completed {
			t.Uncomplete()
		} else {
			t.Complete()
		}
		done := t.Completed
		return func() (*gtd.Task, error) { return b.svc.Tasks.SetCompleted(id, done) }, nil
	})
}

// Move changes the task's status with the same side effects the service
// applies.
func (b *Board) Move(id string, status gtd.TaskStatus) error {
	if !status.Valid() {
		return &gtd.ValidationError{Entity: "task", Problems: []string{fmt.Sprintf("invalid status %q", status)}}
	}
	op := OpMove
	if status == gtd.StatusTrash {
		op = OpTrash
	}
	return b.mutate(id, op, func(t *gtd.Task) (func() (*gtd.Task, error), error) {
		t.ChangeStatus(status, b.svc.Now())
		return func() (*gtd.Task, error) { return b.svc.Tasks.ChangeStatus(id, status) }, nil
	})
}

// Trash moves the task to the trash.
func (b *Board) Trash(id string) error {
	return b.Move(id, gtd.StatusTrash)
}

// Restore brings a trashed task back to the inbox.
func (b *Board) Restore(id string) error {
	return b.mutate(id, OpRestore, func(t *gtd.Task) (func() (*gtd.Task, error), error) {
		if t.Status != gtd.StatusTrash {
			return nil, &gtd.ValidationError{Entity: "task", Problems: []string{"task is not in the trash"}}
		}
		t.ChangeStatus(gtd.StatusInbox, b.svc.Now())
		return func() (*gtd.Task, error) { return b.svc.Tasks.Restore(id) }, nil
	})
}

// Assign links the task to a project known to the board.
func (b *Board) Assign(id, project string) error {
	b.mu.Lock()
	p := b.findProject(project)
	b.mu.Unlock()
	if p == nil {
		return gtd.NotFound("project", project)
	}
	title := p.Title
	return b.mutate(id, OpAssign, func(t *gtd.Task) (func() (*gtd.Task, error), error) {
		t.AssignToProject(title)
		return func() (*gtd.Task, error) { return b.svc.Tasks.Assign(id, title) }, nil
	})
}

// Unassign clears the task's project.
func (b *Board) Unassign(id string) error {
	return b.mutate(id, OpUnassign, func(t *gtd.Task) (func() (*gtd.Task, error), error) {
		t.Unassign()
		return func() (*gtd.Task, error) { return b.svc.Tasks.Unassign(id) }, nil
	})
}

// Shift moves a task delta places within its column and renumbers the
// column. It is a no-op at either end.
func (b *Board) Shift(id string, delta int) error {
	t, ok := b.Task(id)
	if !ok {
		return gtd.NotFound("task", id)
	}
	column := b.Column(t.Status)
	at := -1
	for i, c := range column {
		if c.ID == id {
			at = i
		}
	}
	to := at + delta
	if at < 0 || to < 0 || to >= len(column) {
		return nil
	}
	column[at], column[to] = column[to], column[at]
	ids := make([]string, len(column))
	for i, c := range column {
		ids[i] = c.ID
	}
	return b.Reorder(ids)
}

// Reorder assigns ids[i] the manual order i+1 in memory, then writes every
// member whose order changed.
func (b *Board) Reorder(ids []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		if _, ok := b.tasks[id]; !ok {
			return gtd.NotFound("task", id)
		}
	}
	for i, id := range ids {
		id, order := id, i+1
		t := b.tasks[id]
		if t.Order == order {
			continue
		}
		t.Order = order
		b.dispatch(OpReorder, id, t.Title, func() error {
			_, err := b.svc.Tasks.SetOrder(id, order)
			return err
		})
	}
	b.touch()
	return nil
}

// RollOver re-dates stale today tasks in memory and persists the
// correction in the background. It returns how many tasks moved.
func (b *Board) RollOver() int {
	now := b.svc.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.tasks {
		if t.IsCarriedOver(now) {
			t.SetDate(now)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	b.touch()
	b.dispatch(OpRollOver, "rollover", document.FormatDate(now), func() error {
		_, err := b.svc.Tasks.RollOver()
		return err
	})
	return n
}

// mutate applies change to the snapshot copy of task id and dispatches the
// write it returns.
func (b *Board) mutate(id string, op Op, change func(t *gtd.Task) (func() (*gtd.Task, error), error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.tasks[id]
	if !ok {
		return gtd.NotFound("task", id)
	}
	if current.Broken {
		return fmt.Errorf("reconcile: %s is unreadable and must be fixed by hand: %w", current.Path, document.ErrMalformedDocument)
	}
	next := current.Clone()
	write, err := change(next)
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	b.tasks[id] = next
	b.touch()
	b.dispatch(op, id, next.Title, func() error {
		saved, err := write()
		if err == nil {
			b.notePath(saved)
		}
		return err
	})
	return nil
}

// touch records an optimistic mutation and re-derives project progress from
// the snapshot. Callers hold mu.
func (b *Board) touch() {
	b.gen++
	tasks := make([]*gtd.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		tasks = append(tasks, t)
	}
	for _, p := range b.projects {
		if !p.IsCompleted() && !p.Broken {
			p.UpdateProgress(progress.Calculate(p, tasks))
		}
	}
}

// notePath copies the document location a write settled on into the
// snapshot. Only the path is taken; the snapshot may already carry newer
// optimistic fields.
func (b *Board) notePath(saved *gtd.Task) {
	if saved == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.tasks[saved.ID]; ok {
		t.Path = saved.Path
	}
}

func (b *Board) findProject(key string) *gtd.Project {
	target := gtd.LinkTarget(key)
	for _, p := range b.projects {
		if p.ID == target || p.Title == target {
			return p
		}
	}
	return nil
}

// Today returns the start of the services' current day.
func (b *Board) Today() time.Time {
	return document.StartOfDay(b.svc.Now())
}
