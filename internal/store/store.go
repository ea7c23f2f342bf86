// Package store owns the client side copy of the current observation page.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/remote"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

const (
	defaultFetchError  = "failed to fetch observations"
	defaultCreateError = "failed to create observation"
	defaultUpdateError = "failed to update observation"
	defaultDeleteError = "failed to delete observation"
)

// Strategy selects who filters, sorts and windows a fetch.
type Strategy int

const (
	// ServerPaged lets the remote collection window the list and report the total.
	ServerPaged Strategy = iota
	// ClientPaged fetches the unfiltered collection and windows it locally.
	ClientPaged
)

// FetchParams selects the page to load. Zero values fall back to page 1, the
// store's items per page and FilterAll.
type FetchParams struct {
	Page     int
	Limit    int
	Filter   models.Filter
	Strategy Strategy
}

// FetchPayload is a resolved page.
type FetchPayload struct {
	Items      []models.Observation
	Pagination pagination.Descriptor
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp completedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithItemsPerPage sets the default page size.
func WithItemsPerPage(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.itemsPerPage = n
		}
	}
}

// WithStaleFetchGuard discards fetch resolutions that are older than the most
// recently dispatched fetch.
func WithStaleFetchGuard() Option {
	return func(s *Store) { s.guardStale = true }
}

// Store is the single writer of ObservationsState.
type Store struct {
	collection remote.Collection
	logger     *zap.Logger
	now        func() time.Time

	itemsPerPage int
	guardStale   bool

	mu        sync.Mutex
	state     models.ObservationsState
	fetchSeq  uint64
	listeners map[int]func(models.ObservationsState)
	nextID    int
}

// New builds a Store over the remote collection.
func New(collection remote.Collection, opts ...Option) *Store {
	s := &Store{
		collection:   collection,
		logger:       zap.NewNop(),
		now:          time.Now,
		itemsPerPage: pagination.DefaultItemsPerPage,
		listeners:    make(map[int]func(models.ObservationsState)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = models.NewObservationsState(s.itemsPerPage)
	return s
}

// State returns a copy of the current state.
func (s *Store) State() models.ObservationsState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ItemsPerPage returns the default page size.
func (s *Store) ItemsPerPage() int {
	return s.itemsPerPage
}

// Dispatch folds the action into the state and notifies subscribers.
func (s *Store) Dispatch(action Action) models.ObservationsState {
	s.mu.Lock()
	if s.isStale(action) {
		current := s.state.Clone()
		s.mu.Unlock()
		s.logger.Debug("discarding stale fetch resolution", zap.String("action", action.actionName()))
		return current
	}
	s.state = Reduce(s.state, action)
	snapshot := s.state.Clone()
	listeners := make([]func(models.ObservationsState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
	return snapshot
}

// Subscribe registers fn to receive every new state. The returned function removes it.
func (s *Store) Subscribe(fn func(models.ObservationsState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) isStale(action Action) bool {
	if !s.guardStale {
		return false
	}
	switch a := action.(type) {
	case FetchFulfilled:
		return a.Seq < s.fetchSeq
	case FetchRejected:
		return a.Seq < s.fetchSeq
	}
	return false
}

func (s *Store) nextFetchSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchSeq++
	return s.fetchSeq
}

// Fetch loads one page and folds it into the state. On failure the previous
// items and pagination stay in place next to the error.
func (s *Store) Fetch(ctx context.Context, params FetchParams) (FetchPayload, error) {
	params = s.normalise(params)
	seq := s.nextFetchSeq()
	s.Dispatch(FetchPending{Seq: seq})

	payload, err := s.load(ctx, params)
	if err != nil {
		s.logger.Warn("fetch observations failed",
			zap.Int("page", params.Page), zap.String("filter", string(params.Filter)), zap.Error(err))
		s.Dispatch(FetchRejected{Seq: seq, Message: messageOf(err, defaultFetchError)})
		return FetchPayload{}, err
	}
	s.Dispatch(FetchFulfilled{Seq: seq, Items: payload.Items, Pagination: payload.Pagination})
	return payload, nil
}

func (s *Store) normalise(params FetchParams) FetchParams {
	if params.Page == 0 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = s.itemsPerPage
	}
	if params.Filter == "" {
		params.Filter = models.FilterAll
	}
	return params
}

func (s *Store) load(ctx context.Context, params FetchParams) (FetchPayload, error) {
	if params.Strategy == ClientPaged {
		res, err := s.collection.List(ctx, remote.ListQuery{Filter: models.FilterAll, Sort: remote.DefaultSort})
		if err != nil {
			return FetchPayload{}, err
		}
		filtered := params.Filter.Apply(SortNewestFirst(res.Items))
		return FetchPayload{
			Items:      pagination.Paginate(filtered, params.Page, params.Limit),
			Pagination: pagination.Compute(len(filtered), params.Page, params.Limit),
		}, nil
	}

	res, err := s.collection.List(ctx, remote.ListQuery{
		Filter: params.Filter,
		Sort:   remote.DefaultSort,
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		return FetchPayload{}, err
	}
	items := res.Items
	if items == nil {
		items = []models.Observation{}
	}
	return FetchPayload{
		Items:      items,
		Pagination: pagination.Compute(res.TotalCount, params.Page, params.Limit),
	}, nil
}

// Create records a new observation. The new item is not inserted into the
// current page; callers refetch to place it.
func (s *Store) Create(ctx context.Context, data models.CreateObservationData) (models.Observation, error) {
	s.Dispatch(CreatePending{})
	created, err := s.collection.Create(ctx, data)
	if err != nil {
		s.logger.Warn("create observation failed", zap.Error(err))
		s.Dispatch(CreateRejected{Message: messageOf(err, defaultCreateError)})
		return models.Observation{}, err
	}
	s.Dispatch(CreateFulfilled{Observation: created})
	return created, nil
}

// ToggleFavorite flips isFavorite on the remote copy and replaces the local entry.
func (s *Store) ToggleFavorite(ctx context.Context, observation models.Observation) (models.Observation, error) {
	next := observation
	next.IsFavorite = !observation.IsFavorite
	return s.replace(ctx, next)
}

// ToggleCompleted flips isCompleted, stamping or clearing completedAt.
func (s *Store) ToggleCompleted(ctx context.Context, observation models.Observation) (models.Observation, error) {
	return s.replace(ctx, observation.WithCompleted(!observation.IsCompleted, s.now()))
}

func (s *Store) replace(ctx context.Context, next models.Observation) (models.Observation, error) {
	updated, err := s.collection.Update(ctx, next.ID, next)
	if err != nil {
		s.logger.Warn("update observation failed", zap.String("id", next.ID), zap.Error(err))
		s.Dispatch(MutationRejected{Message: messageOf(err, defaultUpdateError)})
		return models.Observation{}, err
	}
	s.Dispatch(ObservationUpdated{Observation: updated})
	return updated, nil
}

// Delete removes an observation and repairs the page counters locally.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.collection.Delete(ctx, id); err != nil {
		s.logger.Warn("delete observation failed", zap.String("id", id), zap.Error(err))
		s.Dispatch(MutationRejected{Message: messageOf(err, defaultDeleteError)})
		return err
	}
	s.Dispatch(ObservationDeleted{ID: id})
	return nil
}

// ResetCreateStatus forces createStatus back to idle.
func (s *Store) ResetCreateStatus() models.ObservationsState {
	return s.Dispatch(ResetCreateStatus{})
}

// ClearError drops the last error.
func (s *Store) ClearError() models.ObservationsState {
	return s.Dispatch(ClearError{})
}

// ResetPagination restores the default descriptor.
func (s *Store) ResetPagination() models.ObservationsState {
	return s.Dispatch(ResetPagination{ItemsPerPage: s.itemsPerPage})
}

// SortNewestFirst returns a copy ordered by createdAt descending. Ties keep input order.
func SortNewestFirst(items []models.Observation) []models.Observation {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b models.Observation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return sorted
}

func messageOf(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
