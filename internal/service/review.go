package service

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/storage"
	"github.com/kingrea/gtdvault/internal/vault"
)

const (
	reviewType   = "weekly-review"
	reviewSuffix = "-weekly-review.md"
)

// ErrReviewExists is returned when this week's review document is already
// present.
var ErrReviewExists = errors.New("service: weekly review already exists")

// Review summarises one weekly review document.
type Review struct {
	Date           time.Time
	Path           string
	CompletedTasks int
	ActiveProjects int
}

// WeekRange returns the first and last day of the week containing day.
func WeekRange(day time.Time, weekStart time.Weekday) (time.Time, time.Time) {
	day = document.StartOfDay(day)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// ReviewService creates and lists weekly review documents.
type ReviewService struct {
	*env
	templates *TemplateService
}

// PathFor returns the review document for day.
func (s *ReviewService) PathFor(day time.Time) string {
	return path.Join(s.settings.ReviewFolder, document.FormatDate(day)+reviewSuffix)
}

// Create writes this week's review document with completed and active
// counts filled in.
func (s *ReviewService) Create() (*Review, error) {
	now := s.now()
	start, end := WeekRange(now, s.settings.WeekStart())
	review := &Review{Date: document.StartOfDay(now), Path: s.PathFor(now)}

	tasks, err := s.store.ListTasks()
	if err != nil {
		return nil, err
	}
	review.CompletedTasks = completedBetween(tasks, s.store.Layout().TaskRoot, start, end)
	projects, err := s.store.ListProjects()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.Status == gtd.ProjectInProgress {
			review.ActiveProjects++
		}
	}

	var h document.Header
	if err := h.Set("type", reviewType); err != nil {
		return nil, err
	}
	h.SetDate("date", &review.Date)
	if err := h.Set("review-type", "weekly"); err != nil {
		return nil, err
	}
	if err := h.Set("completed-tasks", review.CompletedTasks); err != nil {
		return nil, err
	}
	if err := h.Set("active-projects", review.ActiveProjects); err != nil {
		return nil, err
	}
	body := fmt.Sprintf("# Weekly Review %s ~ %s\n\n- **Completed tasks**: %d\n- **Active projects**: %d\n\n%s",
		document.FormatDate(start), document.FormatDate(end),
		review.CompletedTasks, review.ActiveProjects,
		s.templates.Body(ReviewTemplate))
	raw, err := document.Encode(h, body)
	if err != nil {
		return nil, err
	}
	if err := s.store.FS().MkdirAll(s.settings.ReviewFolder); err != nil {
		return nil, fmt.Errorf("service: create review folder: %w", err)
	}
	if err := s.store.FS().Create(review.Path, raw); err != nil {
		if errors.Is(err, vault.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrReviewExists, review.Path)
		}
		return nil, fmt.Errorf("service: create review: %w", err)
	}
	s.journal.Info("created weekly review %s", review.Path)
	return review, nil
}

// List returns existing reviews, newest first.
func (s *ReviewService) List() ([]*Review, error) {
	entries, err := s.store.FS().List(s.settings.ReviewFolder)
	if errors.Is(err, vault.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service: list reviews: %w", err)
	}
	var out []*Review
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, reviewSuffix) {
			continue
		}
		raw, err := s.store.FS().Read(e.Path)
		if err != nil {
			s.logger.Printf("service: skip review %s: %v", e.Path, err)
			continue
		}
		h, _, err := document.Decode(raw)
		if err != nil || h.String("type") != reviewType {
			continue
		}
		date := h.Date("date", s.now())
		if date == nil {
			continue
		}
		out = append(out, &Review{
			Date:           *date,
			Path:           e.Path,
			CompletedTasks: h.Int("completed-tasks"),
			ActiveProjects: h.Int("active-projects"),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// HasCurrent reports whether today's review document exists.
func (s *ReviewService) HasCurrent() bool {
	return s.store.FS().Exists(s.PathFor(s.now()))
}

// completedBetween counts completed tasks whose dated archive folder falls
// inside [start, end].
func completedBetween(tasks []*gtd.Task, taskRoot string, start, end time.Time) int {
	prefix := path.Join(vault.Clean(taskRoot), storage.CompletedDir) + "/"
	n := 0
	for _, t := range tasks {
		if !t.Completed || !strings.HasPrefix(t.Path, prefix) {
			continue
		}
		folder := strings.SplitN(strings.TrimPrefix(t.Path, prefix), "/", 2)[0]
		day, err := document.ParseDate(folder)
		if err != nil {
			continue
		}
		if !day.Before(start) && !day.After(end) {
			n++
		}
	}
	return n
}
