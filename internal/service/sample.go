package service

import (
	"errors"
	"fmt"

	"github.com/kingrea/gtdvault/internal/gtd"
)

// ErrVaultNotEmpty is returned when sample data would mix with real tasks.
var ErrVaultNotEmpty = errors.New("service: vault already has tasks or projects")

// SampleData seeds an empty vault with a small walkthrough.
type SampleData struct {
	tasks    *TaskService
	projects *ProjectService
}

// HasData reports whether the vault already holds tasks or projects.
func (s *SampleData) HasData() (bool, error) {
	tasks, err := s.tasks.List()
	if err != nil {
		return false, err
	}
	projects, err := s.projects.List()
	if err != nil {
		return false, err
	}
	return len(tasks) > 0 || len(projects) > 0, nil
}

// Seed creates two projects and a task in every bucket.
func (s *SampleData) Seed() error {
	has, err := s.HasData()
	if err != nil {
		return err
	}
	if has {
		return ErrVaultNotEmpty
	}
	deadline := s.projects.now().AddDate(0, 0, 30)
	learn, err := s.projects.Create(ProjectInput{
		Title:      "Learn the GTD board",
		Importance: 5,
		Deadline:   &deadline,
		ActionPlan: "- Understand the five buckets\n- Manage real tasks for a week\n- Make the weekly review a habit",
	})
	if err != nil {
		return fmt.Errorf("service: seed project: %w", err)
	}
	reading, err := s.projects.Create(ProjectInput{
		Title:      "Reading list",
		ActionPlan: "- Read a GTD book\n- Keep reading notes",
	})
	if err != nil {
		return fmt.Errorf("service: seed project: %w", err)
	}
	samples := []TaskInput{
		{Title: "Learn how the inbox works", Notes: "Capture anything that comes to mind in the inbox right away."},
		{Title: "Pick a day for the weekly review"},
		{Title: "Review the five GTD steps", Status: gtd.StatusNextAction, Priority: gtd.PriorityHigh, Project: learn.Title, Notes: "Capture, clarify, organise, reflect, engage."},
		{Title: "Move a task between columns", Status: gtd.StatusNextAction, Project: learn.Title},
		{Title: "Read Getting Things Done", Status: gtd.StatusNextAction, Project: reading.Title},
		{Title: "Check the sample tasks", Status: gtd.StatusToday, Priority: gtd.PriorityHigh, Notes: "Complete this task to get started."},
		{Title: "Open the projects pane", Status: gtd.StatusToday, Project: learn.Title, Notes: "Press p on the board."},
		{Title: "Wait for a friend's book recommendations", Status: gtd.StatusWaiting, Project: reading.Title},
		{Title: "Learn to script the vault", Status: gtd.StatusSomeday},
		{Title: "Roll the system out to the team", Status: gtd.StatusSomeday},
	}
	for _, in := range samples {
		if _, err := s.tasks.Create(in); err != nil {
			return fmt.Errorf("service: seed task %q: %w", in.Title, err)
		}
	}
	return nil
}
