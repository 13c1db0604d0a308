package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/gtdvault/internal/config"
	"github.com/kingrea/gtdvault/internal/document"
	"github.com/kingrea/gtdvault/internal/reconcile"
	"github.com/kingrea/gtdvault/internal/service"
	"github.com/kingrea/gtdvault/internal/tui"
)

func (a *app) initCmd() *cobra.Command {
	var sample bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Prepare a vault: .gtd settings, task and project folders, templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ResolveVault(a.vaultFlag)
			if err != nil {
				return err
			}
			if err := config.InitDir(dir); err != nil {
				return fmt.Errorf("init %s: %w", dir, err)
			}
			if err := a.open(); err != nil {
				return fmt.Errorf("open vault: %w", err)
			}
			defer a.close()
			if err := a.svc.Store().EnsureRoots(); err != nil {
				return err
			}
			a.svc.Templates.InitAll()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ Initialized vault at %s\n", a.cfg.VaultDir)
			if !sample {
				return nil
			}
			if err := a.svc.Samples.Seed(); err != nil {
				if errors.Is(err, service.ErrVaultNotEmpty) {
					fmt.Fprintln(out, "Vault already has tasks; sample data skipped.")
					return nil
				}
				return err
			}
			fmt.Fprintln(out, "Added sample projects and tasks.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "Seed an empty vault with sample projects and tasks")
	return cmd
}

func (a *app) rolloverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Move unfinished today tasks from past days onto today",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			n, err := a.svc.Tasks.RollOver()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled %d task(s) over to %s\n", n, document.FormatDate(a.now()))
			return nil
		}),
	}
}

func (a *app) dailyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Write today's completed tasks into the daily note",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			n, err := a.svc.Daily.InsertCompleted()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if n == 0 {
				fmt.Fprintln(out, "No tasks completed today.")
				return nil
			}
			fmt.Fprintf(out, "Wrote %d completed task(s) to %s\n", n, a.svc.Daily.NotePath())
			return nil
		}),
	}
}

func (a *app) reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Create this week's review document",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			review, err := a.svc.Reviews.Create()
			if errors.Is(err, service.ErrReviewExists) {
				fmt.Fprintf(out, "This week's review already exists: %s\n", a.svc.Reviews.PathFor(a.now()))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "📝 Created %s (%d completed, %d active projects)\n",
				review.Path, review.CompletedTasks, review.ActiveProjects)
			return nil
		}),
	}
}

func (a *app) logCmd() *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the most recent journal entries",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			entries, total := a.journal.Tail(lines)
			if total == 0 {
				fmt.Fprintln(out, "Journal is empty.")
				return nil
			}
			for _, line := range entries {
				fmt.Fprintln(out, line)
			}
			if len(entries) < total {
				fmt.Fprintf(out, "(%d of %d entries, full log at %s)\n", len(entries), total, a.journal.Path())
			}
			return nil
		}),
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of entries to show")
	return cmd
}

func (a *app) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the interactive board",
		Args:  cobra.NoArgs,
		RunE: a.withVault(func(cmd *cobra.Command, args []string) error {
			board := reconcile.New(a.svc, reconcile.WithJournal(a.journal))
			if err := board.Load(); err != nil {
				return err
			}
			board.RollOver()

			p := tea.NewProgram(
				tui.NewApp(board, a.journal),
				tea.WithAltScreen(),
			)
			_, err := p.Run()
			// Let queued writes land before the process exits.
			board.Wait()
			if err != nil {
				return fmt.Errorf("run board: %w", err)
			}
			return nil
		}),
	}
}
