package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-observations/internal/coordinator"
	"github.com/noah-isme/sma-observations/internal/localpager"
	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/remote"
	"github.com/noah-isme/sma-observations/internal/service"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
)

func pageParams(page int, filterRaw string) (coordinator.LoadParams, error) {
	filter, err := models.ParseFilter(filterRaw)
	if err != nil {
		return coordinator.LoadParams{}, err
	}
	if page < 1 {
		page = 1
	}
	return coordinator.LoadParams{Page: page, Filter: filter}, nil
}

func addPageFlags(cmd *cobra.Command, page *int, filter *string) {
	cmd.Flags().IntVarP(page, "page", "p", 1, "page number")
	cmd.Flags().StringVarP(filter, "filter", "f", string(models.FilterAll), "all, active, completed or favorites")
}

func newListCommand(a *app) *cobra.Command {
	var (
		page   int
		filter string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of observations",
		Example: `
observations list
observations list --filter favorites --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.localMode() {
				return a.showBoard(cmd.Context(), filter, page)
			}
			if _, err := a.loadAround(cmd.Context(), page, filter); err != nil {
				return err
			}
			renderPage(a.out, a.coordinator.State())
			return nil
		},
	}
	addPageFlags(cmd, &page, &filter)
	return cmd
}

func newBoardCommand(a *app) *cobra.Command {
	var (
		page int
		tab  string
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show active and completed observations side by side, paged locally",
		Example: `
observations board
observations board --tab completed --page 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showBoard(cmd.Context(), tab, page)
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page of the selected tab")
	cmd.Flags().StringVarP(&tab, "tab", "t", "", "active or completed; both when empty")
	return cmd
}

// showBoard loads everything once and pages tabs locally. raw may be a tab
// name or the "all" filter, which shows both tabs.
func (a *app) showBoard(ctx context.Context, raw string, page int) error {
	tabs := []localpager.Tab{localpager.TabActive, localpager.TabCompleted}
	if raw != "" && raw != string(models.FilterAll) {
		tab, err := localpager.ParseTab(raw)
		if err != nil {
			return fmt.Errorf("local pagination supports the active and completed tabs: %w", err)
		}
		tabs = []localpager.Tab{tab}
	}
	if err := a.local.Load(ctx); err != nil {
		return err
	}
	for _, tab := range tabs {
		if page > 1 {
			a.local.GoToPage(page, tab)
		}
		renderTab(a.out, tab, a.local.View(tab))
	}
	return nil
}

func newBrowseCommand(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through observations interactively",
		Long: `Page through observations interactively.

Commands:
  n            next page
  p            previous page
  g <page>     go to page
  f <filter>   switch filter (all, active, completed, favorites)
  r            refresh
  q            quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := pageParams(1, filter)
			if err != nil {
				return err
			}
			if err := a.coordinator.LoadPage(cmd.Context(), params); err == nil {
				renderPage(a.out, a.coordinator.State())
			}
			return a.browse(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", string(models.FilterAll), "initial filter")
	return cmd
}

func (a *app) browse(ctx context.Context) error {
	scanner := bufio.NewScanner(a.in)
	fmt.Fprint(a.out, "> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			fmt.Fprint(a.out, "> ")
			continue
		}
		filter := a.coordinator.Filter()
		var (
			moved bool
			err   error
		)
		switch fields[0] {
		case "q", "quit":
			return nil
		case "n", "next":
			moved, err = a.coordinator.GoToNextPage(ctx, filter)
		case "p", "prev":
			moved, err = a.coordinator.GoToPreviousPage(ctx, filter)
		case "g", "go":
			if len(fields) < 2 {
				fmt.Fprintln(a.out, "usage: g <page>")
				break
			}
			page, convErr := strconv.Atoi(fields[1])
			if convErr != nil {
				fmt.Fprintf(a.out, "invalid page %q\n", fields[1])
				break
			}
			moved, err = a.coordinator.GoToPage(ctx, page, filter)
		case "f", "filter":
			next := ""
			if len(fields) > 1 {
				next = fields[1]
			}
			params, parseErr := pageParams(1, next)
			if parseErr != nil {
				fmt.Fprintln(a.out, parseErr)
				break
			}
			moved = true
			err = a.coordinator.LoadPage(ctx, params)
		case "r", "refresh":
			moved = true
			err = a.coordinator.RefreshCurrentPage(ctx, filter)
		default:
			fmt.Fprintf(a.out, "unknown command %q\n", fields[0])
		}
		switch {
		case err != nil:
			fmt.Fprintln(a.out, err)
		case moved:
			renderPage(a.out, a.coordinator.State())
		}
		fmt.Fprint(a.out, "> ")
	}
	return scanner.Err()
}

func newAddCommand(a *app) *cobra.Command {
	var data models.CreateObservationData
	cmd := &cobra.Command{
		Use:   "add <student> <observation>",
		Short: "Record a new observation",
		Example: `
observations add "Ana Lima" "Helped a classmate finish the lab report"
observations add "Rui" "Arrived late three days in a row" --favorite`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data.StudentName = args[0]
			data.Observation = args[1]
			if _, err := a.coordinator.Create(cmd.Context(), data); err != nil {
				var appErr *appErrors.Error
				if errors.As(err, &appErr) && len(appErr.Details) > 0 {
					for _, detail := range appErr.Details {
						fmt.Fprintf(a.out, "  - %s\n", detail)
					}
				}
				return err
			}
			renderPage(a.out, a.coordinator.State())
			return nil
		},
	}
	cmd.Flags().BoolVar(&data.IsFavorite, "favorite", false, "mark as favorite")
	cmd.Flags().BoolVar(&data.IsCompleted, "completed", false, "record as already completed")
	return cmd
}

func newFavoriteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle the favorite flag of an observation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			observation, err := a.find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = a.coordinator.ToggleFavorite(cmd.Context(), observation)
			return err
		},
	}
}

func newCompleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Toggle whether an observation is completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			observation, err := a.find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = a.coordinator.ToggleCompleted(cmd.Context(), observation)
			return err
		},
	}
}

// find looks the observation up in the whole collection, so ids from any page work.
func (a *app) find(ctx context.Context, id string) (models.Observation, error) {
	res, err := a.collection.List(ctx, remote.ListQuery{Filter: models.FilterAll, Sort: remote.DefaultSort})
	if err != nil {
		return models.Observation{}, err
	}
	for _, item := range res.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return models.Observation{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("observation %s not found", id))
}

func newDeleteCommand(a *app) *cobra.Command {
	var (
		page   int
		filter string
	)
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an observation and show the page it was on",
		Example: `
observations delete 3f0c --page 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.loadAround(cmd.Context(), page, filter)
			if err != nil {
				return err
			}
			if err := a.coordinator.Remove(cmd.Context(), args[0], params.Filter); err != nil {
				return err
			}
			renderPage(a.out, a.coordinator.State())
			return nil
		},
	}
	addPageFlags(cmd, &page, &filter)
	return cmd
}

func newTokenCommand(a *app) *cobra.Command {
	var (
		clientID string
		scopes   []string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		// Minting needs no API connection.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := service.NewAuthService(nil, a.logger, service.AuthConfig{
				Secret: a.cfg.JWT.Secret,
				Expiry: a.cfg.JWT.Expiration,
				Issuer: a.cfg.JWT.Issuer,
			})
			token, err := auth.IssueToken(models.IssueTokenRequest{ClientID: clientID, Scopes: scopes})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&clientID, "client-id", a.cfg.Client.ClientID, "client id recorded in the token")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{models.ScopeRead, models.ScopeWrite}, "granted scopes")
	return cmd
}
