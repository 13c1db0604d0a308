package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/service"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// resolveTask accepts a full id, a unique id prefix, or an exact title.
func (a *app) resolveTask(ref string) (*gtd.Task, error) {
	ref = strings.TrimSpace(ref)
	tasks, err := a.svc.Tasks.List()
	if err != nil {
		return nil, err
	}
	var byPrefix, byTitle []*gtd.Task
	for _, t := range tasks {
		if t.ID == ref {
			return t, nil
		}
		if ref != "" && strings.HasPrefix(t.ID, ref) {
			byPrefix = append(byPrefix, t)
		}
		if t.Title == ref {
			byTitle = append(byTitle, t)
		}
	}
	for _, matches := range [][]*gtd.Task{byPrefix, byTitle} {
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return nil, fmt.Errorf("%q matches %d tasks, use a longer id", ref, len(matches))
		}
	}
	return nil, gtd.NotFound("task", ref)
}

func parseDateFlag(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := document.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	return &d, nil
}

func (a *app) addCmd() *cobra.Command {
	var status, priority, project, date string
	var tags []string
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			in := service.TaskInput{
				Title:   strings.Join(args, " "),
				Project: project,
				Tags:    tags,
			}
			if status != "" {
				s, err := gtd.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				in.Status = s
			}
			if priority != "" {
				p, err := gtd.ParsePriority(priority)
				if err != nil {
					return err
				}
				in.Priority = p
			}
			d, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			in.Date = d

			t, err := a.svc.Tasks.Create(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Created task %s %q in %s\n", shortID(t.ID), t.Title, t.Status)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Initial status (inbox, next-action, today, waiting, someday)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority (low, medium, high)")
	cmd.Flags().StringVar(&project, "project", "", "Project title or id")
	cmd.Flags().StringVar(&date, "date", "", "Scheduled date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", []string{}, "Specify tags")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var status string
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List tasks",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			var filter gtd.TaskStatus
			if status != "" {
				s, err := gtd.ParseTaskStatus(status)
				if err != nil {
					return err
				}
				filter = s
			}
			tasks, err := a.svc.Tasks.List()
			if err != nil {
				return err
			}
			var shown []*gtd.Task
			for _, t := range tasks {
				switch {
				case filter != "" && t.Status != filter:
				case filter == "" && !all && (t.Completed || t.Status == gtd.StatusTrash):
				default:
					shown = append(shown, t)
				}
			}
			sort.SliceStable(shown, func(i, j int) bool {
				return statusRank(shown[i].Status) < statusRank(shown[j].Status)
			})
			a.renderTasks(cmd, shown)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include completed and trashed tasks")
	return cmd
}

func statusRank(s gtd.TaskStatus) int {
	for i, known := range gtd.TaskStatuses {
		if s == known {
			return i
		}
	}
	return len(gtd.TaskStatuses)
}

func (a *app) renderTasks(cmd *cobra.Command, tasks []*gtd.Task) {
	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return
	}
	now := a.now()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgGreen.Sprintf("ID"),
		text.FgGreen.Sprintf("Title"),
		text.FgGreen.Sprintf("Status"),
		text.FgGreen.Sprintf("Priority"),
		text.FgGreen.Sprintf("Date"),
		text.FgGreen.Sprintf("Project"),
	})
	for _, task := range tasks {
		status := string(task.Status)
		switch {
		case task.Broken:
			status = text.FgHiRed.Sprintf("unreadable")
		case task.Completed:
			status = text.FgHiGreen.Sprintf("done")
		case task.IsOverdue(now):
			status = text.FgHiRed.Sprintf("%s (overdue)", task.Status)
		}
		date := ""
		if task.Date != nil {
			date = document.FormatDate(*task.Date)
		}
		t.AppendRow(table.Row{shortID(task.ID), task.Title, status, task.Priority, date, task.ProjectName()})
	}
	t.Render()
}

// taskCmd builds a single-argument command that applies op to one task.
func (a *app) taskCmd(use, short, verb string, aliases []string, op func(id string) (*gtd.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use + " [id]",
		Short:   short,
		Aliases: aliases,
		Args:    cobra.ExactArgs(1),
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			target, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			t, err := op(target.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", verb, t.Title)
			return nil
		}),
	}
}

func (a *app) doneCmd() *cobra.Command {
	return a.taskCmd("done", "Mark a task completed", "✅ Completed", []string{"complete"}, func(id string) (*gtd.Task, error) {
		return a.svc.Tasks.SetCompleted(id, true)
	})
}

func (a *app) undoCmd() *cobra.Command {
	return a.taskCmd("undo", "Reopen a completed task", "↩️ Reopened", nil, func(id string) (*gtd.Task, error) {
		return a.svc.Tasks.SetCompleted(id, false)
	})
}

func (a *app) trashCmd() *cobra.Command {
	return a.taskCmd("trash", "Move a task to the trash", "🗑️ Trashed", nil, func(id string) (*gtd.Task, error) {
		return a.svc.Tasks.Trash(id)
	})
}

func (a *app) restoreCmd() *cobra.Command {
	return a.taskCmd("restore", "Bring a trashed task back to the inbox", "♻️ Restored", nil, func(id string) (*gtd.Task, error) {
		return a.svc.Tasks.Restore(id)
	})
}

func (a *app) unassignCmd() *cobra.Command {
	return a.taskCmd("unassign", "Remove a task from its project", "Unassigned", nil, func(id string) (*gtd.Task, error) {
		return a.svc.Tasks.Unassign(id)
	})
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Short:   "Delete a task document permanently",
		Aliases: []string{"delete"},
		Args:    cobra.ExactArgs(1),
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			target, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.Tasks.Delete(target.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑️ Deleted %q\n", target.Title)
			return nil
		}),
	}
}

func (a *app) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move [id] [status]",
		Short: "Move a task to another status (today and tomorrow included)",
		Args:  cobra.ExactArgs(2),
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			target, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			var t *gtd.Task
			switch strings.ToLower(args[1]) {
			case "today":
				t, err = a.svc.Tasks.MoveToToday(target.ID)
			case "tomorrow":
				t, err = a.svc.Tasks.MoveToTomorrow(target.ID)
			default:
				status, perr := gtd.ParseTaskStatus(args[1])
				if perr != nil {
					return perr
				}
				t, err = a.svc.Tasks.ChangeStatus(target.ID, status)
			}
			if err != nil {
				return err
			}
			line := fmt.Sprintf("Moved %q to %s", t.Title, t.Status)
			if t.Date != nil {
				line += " (" + document.FormatDate(*t.Date) + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		}),
	}
}

func (a *app) assignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign [id] [project]",
		Short: "Link a task to a project",
		Args:  cobra.ExactArgs(2),
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			target, err := a.resolveTask(args[0])
			if err != nil {
				return err
			}
			project, err := a.resolveProject(args[1])
			if err != nil {
				return err
			}
			t, err := a.svc.Tasks.Assign(target.ID, project.Title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Assigned %q to %s\n", t.Title, t.Project)
			return nil
		}),
	}
}
