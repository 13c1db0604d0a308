// internal/cli/root.go
//
// The gtd command tree. Every subcommand opens the vault named by --vault
// (or GTD_VAULT, or the working directory), runs one service operation and
// prints the result. Flags live on the app value rather than package vars so
// several trees can run side by side in tests.

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/gtdvault/internal/config"
	"github.com/kingrea/gtdvault/internal/logbook"
	"github.com/kingrea/gtdvault/internal/logging"
	"github.com/kingrea/gtdvault/internal/service"
	"github.com/kingrea/gtdvault/internal/storage"
	"github.com/kingrea/gtdvault/internal/vault"
)

// Option customizes the command tree.
type Option func(*app)

// WithClock overrides the clock handed to every layer.
func WithClock(clock func() time.Time) Option {
	return func(a *app) {
		if clock != nil {
			a.now = clock
		}
	}
}

type app struct {
	vaultFlag string
	now       func() time.Time

	cfg     *config.Config
	logger  *logging.Logger
	journal *logbook.Logbook
	svc     *service.Services
}

// NewRootCmd builds the full gtd command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "gtd",
		Short:         "Getting Things Done over a folder of markdown documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.vaultFlag, "vault", "", "Vault directory (defaults to $GTD_VAULT or the working directory)")

	root.AddCommand(
		a.initCmd(),
		a.addCmd(),
		a.listCmd(),
		a.doneCmd(),
		a.undoCmd(),
		a.moveCmd(),
		a.trashCmd(),
		a.restoreCmd(),
		a.rmCmd(),
		a.assignCmd(),
		a.unassignCmd(),
		a.projectsCmd(),
		a.projectCmd(),
		a.rolloverCmd(),
		a.dailyCmd(),
		a.reviewCmd(),
		a.logCmd(),
		a.boardCmd(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// open loads settings and wires the service layer over the vault.
func (a *app) open() error {
	if a.svc != nil {
		return nil
	}
	dir, err := config.ResolveVault(a.vaultFlag)
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	logger, err := logging.New(dir)
	if err != nil {
		return err
	}
	journal, err := logbook.New(cfg.JournalPath(), logbook.WithClock(a.now))
	if err != nil {
		logger.Close()
		return err
	}

	fsys := vault.NewOS(cfg.VaultDir, vault.WithClock(a.now))
	store := storage.New(fsys,
		storage.Layout{TaskRoot: cfg.Settings.TaskFolder, ProjectRoot: cfg.Settings.ProjectFolder},
		storage.WithClock(a.now),
		storage.WithLogger(logger),
	)
	a.cfg = cfg
	a.logger = logger
	a.journal = journal
	a.svc = service.New(store, cfg.Settings,
		service.WithClock(a.now),
		service.WithLogger(logger),
		service.WithJournal(journal),
	)
	logger.Printf("opened vault %s", cfg.VaultDir)
	return nil
}

func (a *app) close() {
	if a.logger != nil {
		a.logger.Close()
	}
	a.svc = nil
	a.logger = nil
	a.journal = nil
	a.cfg = nil
}

// withVault wraps a RunE body so it runs against an opened vault.
func (a *app) withVault(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(); err != nil {
			return fmt.Errorf("open vault: %w", err)
		}
		defer a.close()
		return run(cmd, args)
	}
}
