package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/vault"
)

const (
	// CompletedDir holds finished tasks (by day) and projects (by month).
	CompletedDir = "completed"
	// TrashFolder holds trashed tasks under the task root.
	TrashFolder = "trash"

	docExt     = ".md"
	maxSuffix  = 10000
	monthStamp = "2006-01"
)

// ErrNameExhausted is returned when no free file name was found after
// maxSuffix attempts.
var ErrNameExhausted = errors.New("storage: no free document name")

// Template file names reserved by the template service. They are never listed
// as tasks or projects.
var TemplateNames = map[string]bool{
	"temp_task.md":    true,
	"temp_project.md": true,
	"temp_review.md":  true,
}

// LocationFor maps a task's state onto the folder it must live in.
func LocationFor(taskRoot string, status gtd.TaskStatus, completed bool, completedOn time.Time) string {
	taskRoot = vault.Clean(taskRoot)
	switch {
	case status == gtd.StatusTrash:
		return path.Join(taskRoot, TrashFolder)
	case completed:
		return path.Join(taskRoot, CompletedDir, document.FormatDate(completedOn))
	default:
		return taskRoot
	}
}

// ProjectArchive returns the dated archive folder for a project finished on
// the given day.
func ProjectArchive(projectRoot string, completedOn time.Time) string {
	return path.Join(vault.Clean(projectRoot), CompletedDir, completedOn.Format(monthStamp))
}

// Sanitize turns a title into a file-system safe base name.
func Sanitize(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.TrimLeft(name, ".")
	if name == "" {
		return "untitled"
	}
	return name
}

// within reports whether p lives somewhere below folder.
func within(p, folder string) bool {
	p, folder = vault.Clean(p), vault.Clean(folder)
	if folder == "" {
		return true
	}
	return strings.HasPrefix(p, folder+"/")
}

func baseName(p string) (stem, ext string) {
	base := path.Base(vault.Clean(p))
	ext = path.Ext(base)
	return strings.TrimSuffix(base, ext), ext
}

// freePath finds the first unused "<stem>.md", "<stem>_1.md", ... in folder.
func (g *Gateway) freePath(folder, stem, ext string) (string, error) {
	candidate := path.Join(folder, stem+ext)
	for i := 1; g.fs.Exists(candidate); i++ {
		if i > maxSuffix {
			return "", fmt.Errorf("%w: %s in %s", ErrNameExhausted, stem, folder)
		}
		candidate = path.Join(folder, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
	return candidate, nil
}
