package service

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/kingrea/gtdvault/internal/config"
	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/storage"
	"github.com/kingrea/gtdvault/internal/vault"
)

// CompletedHeading introduces the completed-task list in a daily note.
const CompletedHeading = "## Completed Tasks"

// DailyNoteService writes completed tasks into the day's note.
type DailyNoteService struct {
	*env
}

// NotePath returns today's daily note location.
func (s *DailyNoteService) NotePath() string {
	name := document.FormatDate(s.now()) + ".md"
	if s.settings.DailyNote.Folder == "" {
		return name
	}
	return path.Join(s.settings.DailyNote.Folder, name)
}

// CompletedToday returns tasks archived into today's completed folder.
func (s *DailyNoteService) CompletedToday() ([]*gtd.Task, error) {
	tasks, err := s.store.ListTasks()
	if err != nil {
		return nil, err
	}
	folder := storage.LocationFor(s.store.Layout().TaskRoot, gtd.StatusToday, true, s.now())
	var out []*gtd.Task
	for _, t := range tasks {
		if t.Completed && vault.Dir(t.Path) == folder {
			out = append(out, t)
		}
	}
	return out, nil
}

// InsertCompleted replaces the completed section of today's note with
// today's completed tasks. It returns how many were written.
func (s *DailyNoteService) InsertCompleted() (int, error) {
	tasks, err := s.CompletedToday()
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}
	lines := make([]string, len(tasks))
	for i, t := range tasks {
		lines[i] = completedLine(t)
	}
	content, err := s.readNote()
	if err != nil {
		return 0, err
	}
	content = replaceSection(content, CompletedHeading, lines)
	if err := s.store.FS().Write(s.NotePath(), []byte(content)); err != nil {
		return 0, fmt.Errorf("service: write daily note: %w", err)
	}
	s.journal.Info("wrote %d completed task(s) to %s", len(tasks), s.NotePath())
	return len(tasks), nil
}

// autoWrite appends one completed task when the vault is in auto-write mode.
// Failures are logged; the completion itself already succeeded.
func (s *DailyNoteService) autoWrite(t *gtd.Task) {
	if s.settings.DailyNote.Mode != config.DailyNoteAutoWrite {
		return
	}
	content, err := s.readNote()
	if err == nil {
		content = appendToSection(content, CompletedHeading, completedLine(t))
		err = s.store.FS().Write(s.NotePath(), []byte(content))
	}
	if err != nil {
		s.logger.Printf("service: daily note auto-write: %v", err)
	}
}

func (s *DailyNoteService) readNote() (string, error) {
	raw, err := s.store.FS().Read(s.NotePath())
	if errors.Is(err, vault.ErrNotExist) {
		return "# " + document.FormatDate(s.now()) + "\n", nil
	}
	if err != nil {
		return "", fmt.Errorf("service: read daily note: %w", err)
	}
	return string(raw), nil
}

func completedLine(t *gtd.Task) string {
	line := "- [x] " + t.Title
	if t.Project != "" {
		line += " - " + t.Project
	}
	if t.Priority != gtd.PriorityMedium {
		line += " (priority: " + string(t.Priority) + ")"
	}
	return line
}

// replaceSection swaps the body of the heading's section for lines, adding
// the section at the end when missing.
func replaceSection(content, heading string, lines []string) string {
	start, end, ok := findSection(content, heading)
	block := heading + "\n\n" + strings.Join(lines, "\n") + "\n"
	if !ok {
		return strings.TrimRight(content, "\n") + "\n\n" + block
	}
	rest := content[end:]
	if rest != "" {
		block += "\n"
	}
	return content[:start] + block + rest
}

// appendToSection adds line at the end of the heading's section unless it is
// already there.
func appendToSection(content, heading, line string) string {
	start, end, ok := findSection(content, heading)
	if !ok {
		return strings.TrimRight(content, "\n") + "\n\n" + heading + "\n\n" + line + "\n"
	}
	section := strings.TrimRight(content[start:end], "\n")
	for _, existing := range strings.Split(section, "\n") {
		if strings.TrimSpace(existing) == line {
			return content
		}
	}
	rest := content[end:]
	out := content[:start] + section + "\n" + line + "\n"
	if rest != "" {
		out += "\n" + rest
	}
	return out
}

// findSection returns the byte range from the heading line to the next
// level-two heading (or the end).
func findSection(content, heading string) (start, end int, ok bool) {
	offset := 0
	start = -1
	for _, line := range strings.SplitAfter(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if start < 0 && trimmed == heading {
			start = offset
		} else if start >= 0 && strings.HasPrefix(trimmed, "## ") {
			return start, offset, true
		}
		offset += len(line)
	}
	if start < 0 {
		return 0, 0, false
	}
	return start, len(content), true
}
