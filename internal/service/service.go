// Package service implements the user-facing GTD operations on top of the
// storage gateway. Every mutation that can change project membership or
// completion ends with a progress recompute, and task↔project backlinks in
// project bodies are kept in step with each task's project field.
package service

import (
	"time"

	"github.com/kingrea/gtdvault/internal/config"
	"github.com/kingrea/gtdvault/internal/storage"
)

// Logger receives operational warnings (best-effort steps that failed).
type Logger interface {
	Printf(format string, args ...any)
}

// Journal receives user-facing events such as completions and archives.
type Journal interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type nopJournal struct{}

func (nopJournal) Info(string, ...any) {}
func (nopJournal) Warn(string, ...any) {}

// Option customizes the services during construction.
type Option func(*env)

// WithClock overrides the clock used for "today" and completion dates.
func WithClock(clock func() time.Time) Option {
	return func(e *env) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithLogger routes operational warnings to logger.
func WithLogger(logger Logger) Option {
	return func(e *env) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithJournal records user-facing events.
func WithJournal(journal Journal) Option {
	return func(e *env) {
		if journal != nil {
			e.journal = journal
		}
	}
}

// env is the state shared by every service.
type env struct {
	store    *storage.Gateway
	settings config.Settings
	now      func() time.Time
	logger   Logger
	journal  Journal
	locks    *keyedMutex
}

// Services bundles the task, project and auxiliary document services.
type Services struct {
	Tasks     *TaskService
	Projects  *ProjectService
	Templates *TemplateService
	Daily     *DailyNoteService
	Reviews   *ReviewService
	Samples   *SampleData
}

// New wires every service over one gateway and settings value.
func New(store *storage.Gateway, settings config.Settings, opts ...Option) *Services {
	e := &env{
		store:    store,
		settings: settings,
		now:      time.Now,
		logger:   nopLogger{},
		journal:  nopJournal{},
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	templates := &TemplateService{env: e}
	projects := &ProjectService{env: e, templates: templates}
	daily := &DailyNoteService{env: e}
	tasks := &TaskService{env: e, projects: projects, templates: templates, daily: daily}
	reviews := &ReviewService{env: e, templates: templates}
	return &Services{
		Tasks:     tasks,
		Projects:  projects,
		Templates: templates,
		Daily:     daily,
		Reviews:   reviews,
		Samples:   &SampleData{tasks: tasks, projects: projects},
	}
}

// Store exposes the gateway for read paths such as a full reload.
func (s *Services) Store() *storage.Gateway {
	return s.Tasks.store
}

// Settings returns the settings the services were built with.
func (s *Services) Settings() config.Settings {
	return s.Tasks.settings
}

// Now returns the services' current time.
func (s *Services) Now() time.Time {
	return s.Tasks.now()
}

func taskKey(id string) string    { return "task:" + id }
func projectKey(id string) string { return "project:" + id }
