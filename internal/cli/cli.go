// Package cli is the terminal front end of the observation sync engine.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/coordinator"
	"github.com/noah-isme/sma-observations/internal/notify"
	"github.com/noah-isme/sma-observations/internal/remote"
	"github.com/noah-isme/sma-observations/internal/store"
	"github.com/noah-isme/sma-observations/internal/validation"
	"github.com/noah-isme/sma-observations/pkg/config"
	"github.com/noah-isme/sma-observations/pkg/logger"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

// Options configures the root command.
type Options struct {
	Config *config.Config
	In     io.Reader
	Out    io.Writer
	// Collection replaces the HTTP adapter when set.
	Collection remote.Collection
	Logger     *zap.Logger
	Now        func() time.Time
}

type app struct {
	cfg        *config.Config
	in         io.Reader
	out        io.Writer
	now        func() time.Time
	logger     *zap.Logger
	collection remote.Collection

	coordinator *coordinator.Coordinator
	local       *coordinator.Local
}

type globalFlags struct {
	apiURL  string
	token   string
	limit   int
	timeout time.Duration
	verbose bool
}

// New builds the observations root command.
func New(opts Options) *cobra.Command {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	a := &app{cfg: cfg, in: opts.In, out: opts.Out, now: opts.Now, logger: opts.Logger, collection: opts.Collection}
	if a.in == nil {
		a.in = os.Stdin
	}
	if a.out == nil {
		a.out = color.Output
	}
	if a.now == nil {
		a.now = time.Now
	}

	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "observations",
		Short:         "Keep track of student observations from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", cfg.Client.APIURL, "base URL of the observations API")
	pf.StringVar(&flags.token, "token", cfg.Client.Token, "bearer token sent to the API")
	pf.IntVar(&flags.limit, "limit", cfg.Client.ItemsPerPage, "items per page")
	pf.DurationVar(&flags.timeout, "timeout", cfg.Client.RequestTimeout, "per request timeout")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log requests to stderr")

	cmd.AddCommand(
		newListCommand(a),
		newBrowseCommand(a),
		newBoardCommand(a),
		newAddCommand(a),
		newFavoriteCommand(a),
		newCompleteCommand(a),
		newDeleteCommand(a),
		newTokenCommand(a),
	)
	return cmd
}

func (a *app) setup(flags *globalFlags) error {
	if flags.limit > pagination.MaxItemsPerPage {
		return fmt.Errorf("--limit must be at most %d, got %d", pagination.MaxItemsPerPage, flags.limit)
	}
	if a.logger == nil {
		l, err := logger.NewCLI(flags.verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		a.logger = l
	}
	if a.collection == nil {
		collection, err := remote.NewHTTPCollection(remote.HTTPConfig{
			BaseURL: flags.apiURL,
			Token:   flags.token,
			Timeout: flags.timeout,
			Logger:  a.logger.Named("remote"),
			Now:     a.now,
		})
		if err != nil {
			return err
		}
		a.collection = collection
	}

	notifier := notify.Multi{notify.NewConsole(a.out), notify.NewLogger(a.logger.Named("notify"))}
	coordOpts := []coordinator.Option{
		coordinator.WithNotifier(notifier),
		coordinator.WithLogger(a.logger.Named("coordinator")),
		coordinator.WithValidator(validation.New(nil)),
		coordinator.WithClock(a.now),
	}

	storeOpts := []store.Option{
		store.WithLogger(a.logger.Named("store")),
		store.WithItemsPerPage(flags.limit),
		store.WithClock(a.now),
	}
	if a.cfg.Client.StaleFetchGuard {
		storeOpts = append(storeOpts, store.WithStaleFetchGuard())
	}
	serverOpts := coordOpts
	if a.cfg.Client.PaginationMode == config.PaginationClient {
		serverOpts = append(serverOpts[:len(serverOpts):len(serverOpts)], coordinator.WithStrategy(store.ClientPaged))
	}
	a.coordinator = coordinator.New(store.New(a.collection, storeOpts...), serverOpts...)
	a.local = coordinator.NewLocal(a.collection, flags.limit, coordOpts...)
	return nil
}

func (a *app) localMode() bool {
	return a.cfg.Client.PaginationMode == config.PaginationLocal
}

// loadAround makes sure the store holds the page the user was looking at before a mutation.
func (a *app) loadAround(ctx context.Context, page int, filterRaw string) (coordinator.LoadParams, error) {
	params, err := pageParams(page, filterRaw)
	if err != nil {
		return params, err
	}
	return params, a.coordinator.LoadPage(ctx, params)
}
