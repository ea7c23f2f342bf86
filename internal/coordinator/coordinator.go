// Package coordinator turns user intents into store operations and applies the
// reload, navigation and notification policy around them.
package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/notify"
	"github.com/noah-isme/sma-observations/internal/store"
	"github.com/noah-isme/sma-observations/internal/validation"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
)

// LoadParams selects a page. Zero values fall back to store defaults.
type LoadParams struct {
	Page   int
	Limit  int
	Filter models.Filter
}

// Option customises a Coordinator.
type Option func(*options)

type options struct {
	notifier  notify.Notifier
	logger    *zap.Logger
	validator *validation.Validator
	strategy  store.Strategy
	now       func() time.Time
}

// WithNotifier sets where user facing messages go.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithValidator sets the create payload validator.
func WithValidator(v *validation.Validator) Option {
	return func(o *options) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithClock overrides the clock used by the local variant to stamp completedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStrategy fixes the fetch strategy used for every load.
func WithStrategy(s store.Strategy) Option {
	return func(o *options) { o.strategy = s }
}

func buildOptions(opts []Option) options {
	o := options{notifier: notify.Nop{}, logger: zap.NewNop(), strategy: store.ServerPaged, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.validator == nil {
		o.validator = validation.New(nil)
	}
	return o
}

// Coordinator drives a Store holding one paginated, filtered page.
type Coordinator struct {
	store     *store.Store
	notifier  notify.Notifier
	logger    *zap.Logger
	validator *validation.Validator
	strategy  store.Strategy

	mu     sync.Mutex
	filter models.Filter
}

// New builds a Coordinator over st.
func New(st *store.Store, opts ...Option) *Coordinator {
	o := buildOptions(opts)
	return &Coordinator{
		store:     st,
		notifier:  o.notifier,
		logger:    o.logger,
		validator: o.validator,
		strategy:  o.strategy,
		filter:    models.FilterAll,
	}
}

// State returns the current store state.
func (c *Coordinator) State() models.ObservationsState {
	return c.store.State()
}

// Filter returns the filter of the last requested load.
func (c *Coordinator) Filter() models.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// LoadPage fetches a page. Overlapping loads are not cancelled; whichever
// resolves last wins unless the store guards against stale responses.
func (c *Coordinator) LoadPage(ctx context.Context, params LoadParams) error {
	filter := params.Filter
	if filter == "" {
		filter = models.FilterAll
	}
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()

	_, err := c.store.Fetch(ctx, store.FetchParams{
		Page:     params.Page,
		Limit:    params.Limit,
		Filter:   filter,
		Strategy: c.strategy,
	})
	return err
}

// RefreshCurrentPage reloads the current page under filter.
func (c *Coordinator) RefreshCurrentPage(ctx context.Context, filter models.Filter) error {
	p := c.store.State().Pagination
	return c.LoadPage(ctx, LoadParams{Page: p.CurrentPage, Limit: p.ItemsPerPage, Filter: filter})
}

// GoToNextPage loads the next page when one exists. It reports whether it moved.
func (c *Coordinator) GoToNextPage(ctx context.Context, filter models.Filter) (bool, error) {
	p := c.store.State().Pagination
	if !p.HasNextPage {
		return false, nil
	}
	return true, c.LoadPage(ctx, LoadParams{Page: p.CurrentPage + 1, Limit: p.ItemsPerPage, Filter: filter})
}

// GoToPreviousPage loads the previous page when one exists.
func (c *Coordinator) GoToPreviousPage(ctx context.Context, filter models.Filter) (bool, error) {
	p := c.store.State().Pagination
	if !p.HasPreviousPage {
		return false, nil
	}
	return true, c.LoadPage(ctx, LoadParams{Page: p.CurrentPage - 1, Limit: p.ItemsPerPage, Filter: filter})
}

// GoToPage loads page when it lies within [1, totalPages].
func (c *Coordinator) GoToPage(ctx context.Context, page int, filter models.Filter) (bool, error) {
	p := c.store.State().Pagination
	if page < 1 || page > p.TotalPages {
		return false, nil
	}
	return true, c.LoadPage(ctx, LoadParams{Page: page, Limit: p.ItemsPerPage, Filter: filter})
}

// Create validates and records a new observation, then reloads the first
// page under the current filter so the new item shows up where it belongs.
// Validation failures are returned before any remote call and carry one
// message per failed field.
func (c *Coordinator) Create(ctx context.Context, data models.CreateObservationData) (models.Observation, error) {
	trimmed, messages := c.validator.Create(data)
	if len(messages) > 0 {
		return models.Observation{}, appErrors.Validation(messages)
	}

	created, err := c.store.Create(ctx, trimmed)
	if err != nil {
		failure(c.notifier, MsgCreateFailed, err)
		return models.Observation{}, err
	}
	c.notifier.Notify(notify.Success(MsgCreated))

	limit := c.store.State().Pagination.ItemsPerPage
	if err := c.LoadPage(ctx, LoadParams{Page: 1, Limit: limit, Filter: c.Filter()}); err != nil {
		c.logger.Warn("reload after create failed", zap.Error(err))
	}
	return created, nil
}

// ToggleFavorite flips the favorite flag.
func (c *Coordinator) ToggleFavorite(ctx context.Context, observation models.Observation) (models.Observation, error) {
	updated, err := c.store.ToggleFavorite(ctx, observation)
	if err != nil {
		failure(c.notifier, MsgFavoriteFailed, err)
		return models.Observation{}, err
	}
	c.notifier.Notify(notify.Success(favoriteMessage(observation)))
	return updated, nil
}

// ToggleCompleted completes or reactivates an observation.
func (c *Coordinator) ToggleCompleted(ctx context.Context, observation models.Observation) (models.Observation, error) {
	updated, err := c.store.ToggleCompleted(ctx, observation)
	if err != nil {
		failure(c.notifier, MsgCompletionFailed, err)
		return models.Observation{}, err
	}
	c.notifier.Notify(notify.Success(completionMessage(observation)))
	return updated, nil
}

// Remove deletes an observation. When it was the only item on a page past the
// first the coordinator steps back one page, otherwise it reloads the current
// page; either way the optimistic counter repair is reconciled with the server.
func (c *Coordinator) Remove(ctx context.Context, id string, filter models.Filter) error {
	before := c.store.State()
	if err := c.store.Delete(ctx, id); err != nil {
		failure(c.notifier, MsgRemoveFailed, err)
		return err
	}
	c.notifier.Notify(notify.Success(MsgRemoved))

	lastOnPage := len(before.Items) == 1 && before.Items[0].ID == id
	var err error
	if lastOnPage && before.Pagination.CurrentPage > 1 {
		_, err = c.GoToPreviousPage(ctx, filter)
	} else {
		err = c.RefreshCurrentPage(ctx, filter)
	}
	if err != nil {
		c.logger.Warn("reload after delete failed", zap.String("id", id), zap.Error(err))
	}
	return nil
}

// ResetCreateStatus returns createStatus to idle.
func (c *Coordinator) ResetCreateStatus() {
	c.store.ResetCreateStatus()
}

// ClearError drops the last error.
func (c *Coordinator) ClearError() {
	c.store.ClearError()
}

// ResetPagination restores the default descriptor before switching filter context.
func (c *Coordinator) ResetPagination() {
	c.store.ResetPagination()
}

// FilteredObservations narrows the current page locally.
func (c *Coordinator) FilteredObservations(filter models.Filter) []models.Observation {
	return filter.Apply(c.store.State().Items)
}
