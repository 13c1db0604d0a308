package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/gtd"
	"github.com/kingrea/gtdvault/internal/progress"
	"github.com/kingrea/gtdvault/internal/service"
)

// resolveProject accepts an id, a unique id prefix, a title or a [[link]].
func (a *app) resolveProject(ref string) (*gtd.Project, error) {
	if p, err := a.svc.Projects.Get(gtd.LinkTarget(ref)); err == nil {
		return p, nil
	}
	projects, err := a.svc.Projects.List()
	if err != nil {
		return nil, err
	}
	var matches []*gtd.Project
	for _, p := range projects {
		if ref != "" && strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return nil, gtd.NotFound("project", ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d projects, use a longer id", ref, len(matches))
	}
}

func (a *app) projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with progress",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			projects, err := a.svc.Projects.List()
			if err != nil {
				return err
			}
			tasks, err := a.svc.Tasks.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects.")
				return nil
			}
			sort.SliceStable(projects, func(i, j int) bool {
				if projects[i].IsCompleted() != projects[j].IsCompleted() {
					return !projects[i].IsCompleted()
				}
				return projects[i].Importance > projects[j].Importance
			})

			now := a.now()
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{
				text.FgGreen.Sprintf("ID"),
				text.FgGreen.Sprintf("Title"),
				text.FgGreen.Sprintf("Status"),
				text.FgGreen.Sprintf("Importance"),
				text.FgGreen.Sprintf("Progress"),
				text.FgGreen.Sprintf("Tasks"),
				text.FgGreen.Sprintf("Deadline"),
			})
			for _, p := range projects {
				s := progress.Statistics(p, tasks)
				status := string(p.Status)
				if p.IsCompleted() {
					status = text.FgHiGreen.Sprintf("%s", p.Status)
				}
				deadline := ""
				if p.Deadline != nil {
					deadline = document.FormatDate(*p.Deadline)
					if p.IsOverdue(now) {
						deadline = text.FgHiRed.Sprintf("%s (overdue)", deadline)
					}
				}
				t.AppendRow(table.Row{
					shortID(p.ID),
					p.Title,
					status,
					strings.Repeat("★", p.Importance),
					fmt.Sprintf("%d%%", p.Progress),
					fmt.Sprintf("%d/%d done, %d in progress", s.Completed, s.Total, s.InProgress),
					deadline,
				})
			}
			t.Render()
			return nil
		}),
	}
}

func (a *app) projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(a.projectNewCmd(), a.projectStartCmd(), a.projectCompleteCmd())
	return cmd
}

func (a *app) projectNewCmd() *cobra.Command {
	var importance int
	var deadline, color, plan string
	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			d, err := parseDateFlag(deadline)
			if err != nil {
				return err
			}
			p, err := a.svc.Projects.Create(service.ProjectInput{
				Title:      strings.Join(args, " "),
				Importance: importance,
				Deadline:   d,
				Color:      color,
				ActionPlan: plan,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Created project %s %q\n", shortID(p.ID), p.Title)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&importance, "importance", "i", 0, "Importance from 1 to 5")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&color, "color", "", "Display colour (#rrggbb)")
	cmd.Flags().StringVar(&plan, "plan", "", "Action plan")
	return cmd
}

func (a *app) projectStartCmd() *cobra.Command {
	return a.projectStatusCmd("start", "Mark a project in progress", "▶️ Started", func(key string) (*gtd.Project, error) {
		return a.svc.Projects.Start(key)
	})
}

func (a *app) projectCompleteCmd() *cobra.Command {
	return a.projectStatusCmd("complete", "Complete and archive a project", "✅ Completed", func(key string) (*gtd.Project, error) {
		return a.svc.Projects.Complete(key)
	})
}

func (a *app) projectStatusCmd(use, short, verb string, op func(key string) (*gtd.Project, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			target, err := a.resolveProject(args[0])
			if err != nil {
				return err
			}
			p, err := op(target.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %q (%s)\n", verb, p.Title, p.Status)
			return nil
		}),
	}
}
