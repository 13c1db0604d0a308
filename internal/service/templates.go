package service

import (
	"errors"
	"fmt"
	"path"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/vault"
)

// Template file names. storage.TemplateNames keeps them out of listings.
const (
	TaskTemplateName    = "temp_task.md"
	ProjectTemplateName = "temp_project.md"
	ReviewTemplateName  = "temp_review.md"
)

const defaultTaskTemplate = `## Details

### Purpose


### Next action


### Notes
`

const defaultProjectTemplate = `## Overview


## Action plan


## Progress notes
`

const defaultReviewTemplateEN = `## Weekly reflection

### Achievements


### Learnings


### Next week goals


### Notes
`

const defaultReviewTemplateJA = `## 今週の振り返り

### 成果


### 学び


### 来週の目標


### メモ
`

// TemplateKind selects one of the three seed documents.
type TemplateKind int

const (
	TaskTemplate TemplateKind = iota
	ProjectTemplate
	ReviewTemplate
)

// TemplateService reads the editable seed documents that new task, project
// and review bodies start from. Missing templates are created on first use.
type TemplateService struct {
	*env
}

// Path returns where the template of kind lives.
func (s *TemplateService) Path(kind TemplateKind) string {
	switch kind {
	case ProjectTemplate:
		return path.Join(s.settings.ProjectFolder, ProjectTemplateName)
	case ReviewTemplate:
		return path.Join(s.settings.ReviewFolder, ReviewTemplateName)
	default:
		return path.Join(s.settings.TaskFolder, TaskTemplateName)
	}
}

func (s *TemplateService) defaultContent(kind TemplateKind) string {
	switch kind {
	case ProjectTemplate:
		return defaultProjectTemplate
	case ReviewTemplate:
		if s.settings.Language == "ja" {
			return defaultReviewTemplateJA
		}
		return defaultReviewTemplateEN
	default:
		return defaultTaskTemplate
	}
}

// Body returns the template body, creating the file from the built-in
// default when it does not exist yet. Read failures fall back to the
// default.
func (s *TemplateService) Body(kind TemplateKind) string {
	p := s.Path(kind)
	fallback := s.defaultContent(kind)
	raw, err := s.store.FS().Read(p)
	if err != nil {
		if errors.Is(err, vault.ErrNotExist) {
			if err := s.store.FS().Create(p, []byte(fallback)); err != nil && !errors.Is(err, vault.ErrExist) {
				s.logger.Printf("service: create template %s: %v", p, err)
			}
		} else {
			s.logger.Printf("service: read template %s: %v", p, err)
		}
		return trimTemplate(fallback)
	}
	_, body, err := document.Decode(raw)
	if err != nil {
		s.logger.Printf("service: template %s: %v", p, err)
		return trimTemplate(fallback)
	}
	return body
}

// InitAll creates any missing template file. Existing files are kept.
func (s *TemplateService) InitAll() {
	for _, kind := range []TemplateKind{TaskTemplate, ProjectTemplate, ReviewTemplate} {
		s.Body(kind)
	}
}

// Reset overwrites the template of kind with the built-in default.
func (s *TemplateService) Reset(kind TemplateKind) error {
	p := s.Path(kind)
	if err := s.store.FS().Write(p, []byte(s.defaultContent(kind))); err != nil {
		return fmt.Errorf("service: reset template %s: %w", p, err)
	}
	return nil
}

func trimTemplate(content string) string {
	_, body, err := document.Decode([]byte(content))
	if err != nil {
		return content
	}
	return body
}
