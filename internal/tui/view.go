package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/gtdvault/internal/document"
	stats "github.com/kingrea/gtdvault/internal/progress"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	focusedColumnStyle = columnStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
	projectTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	overdueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	doneStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
)

// View renders the board, or the projects pane when it is open.
func (a *App) View() string {
	header := headerStyle.Render("GTD · " + document.FormatDate(a.day))
	var body string
	if a.showProjects {
		body = a.renderProjects()
	} else {
		body = a.renderColumns()
	}
	sections := []string{header, body}
	if a.adding {
		sections = append(sections, "Add to "+boardColumns[a.focus].title+": "+a.input.View())
	}
	status := a.status
	if status == "" {
		status = a.journal.Last()
	}
	if pending := a.board.Pending(); pending > 0 {
		status = strings.TrimSpace(fmt.Sprintf("%s (saving %d)", status, pending))
	}
	sections = append(sections, mutedStyle.Render(status), a.help.View(a.keys))
	return strings.Join(sections, "\n")
}

func (a *App) renderColumns() string {
	boxes := make([]string, len(a.lists))
	for i := range a.lists {
		style := columnStyle
		if i == a.focus {
			style = focusedColumnStyle
		}
		boxes[i] = style.Render(a.lists[i].View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func (a *App) renderProjects() string {
	projects := a.board.Projects()
	if len(projects) == 0 {
		return mutedStyle.Render("No projects yet. Create one with `gtd project new`.")
	}
	tasks := a.board.Tasks()
	now := a.board.Today()
	var rows []string
	for _, p := range projects {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render("●")
		title := fmt.Sprintf("%s %s %s", swatch, projectTitleStyle.Render(p.Title), strings.Repeat("★", p.Importance))
		if p.IsCompleted() {
			title += " " + doneStyle.Render("done")
		}
		s := stats.Statistics(p, tasks)
		detail := fmt.Sprintf("%d/%d done · %d in progress · %s", s.Completed, s.Total, s.InProgress, p.Status)
		if p.Deadline != nil {
			deadline := "due " + document.FormatDate(*p.Deadline)
			if p.IsOverdue(now) {
				deadline = overdueStyle.Render(deadline)
			}
			detail += " · " + deadline
		}
		bar := fmt.Sprintf("%s %3d%%", a.bar.ViewAs(float64(p.Progress)/100), p.Progress)
		rows = append(rows, lipgloss.JoinVertical(lipgloss.Left, title, bar, mutedStyle.Render(detail), ""))
	}
	return columnStyle.Render(strings.Join(rows, "\n"))
}
