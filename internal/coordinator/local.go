package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/localpager"
	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/notify"
	"github.com/noah-isme/sma-observations/internal/remote"
	"github.com/noah-isme/sma-observations/internal/store"
	"github.com/noah-isme/sma-observations/internal/validation"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

// LocalStatus mirrors the status fields of the store for the local variant.
type LocalStatus struct {
	FetchStatus  models.OperationStatus `json:"fetchStatus"`
	CreateStatus models.OperationStatus `json:"createStatus"`
	Error        string                 `json:"error,omitempty"`
}

// Local loads the whole collection once and pages it in memory as an active
// and a completed tab. Mutations patch the in-memory list instead of
// refetching.
type Local struct {
	collection remote.Collection
	pager      *localpager.Pager[models.Observation]
	notifier   notify.Notifier
	logger     *zap.Logger
	validator  *validation.Validator
	now        func() time.Time

	mu     sync.Mutex
	status LocalStatus
}

// NewLocal builds a Local coordinator over collection.
func NewLocal(collection remote.Collection, itemsPerPage int, opts ...Option) *Local {
	o := buildOptions(opts)
	if itemsPerPage <= 0 {
		itemsPerPage = pagination.DefaultItemsPerPage
	}
	return &Local{
		collection: collection,
		pager:      localpager.New(itemsPerPage, isCompleted),
		notifier:   o.notifier,
		logger:     o.logger,
		validator:  o.validator,
		now:        o.now,
		status: LocalStatus{
			FetchStatus:  models.StatusIdle,
			CreateStatus: models.StatusIdle,
		},
	}
}

func isCompleted(o models.Observation) bool { return o.IsCompleted }

// Status returns the current operation statuses.
func (l *Local) Status() LocalStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

func (l *Local) setStatus(fn func(*LocalStatus)) {
	l.mu.Lock()
	fn(&l.status)
	l.mu.Unlock()
}

// Load fetches every observation, newest first. On failure the previous list
// stays in place.
func (l *Local) Load(ctx context.Context) error {
	l.setStatus(func(s *LocalStatus) {
		s.FetchStatus = models.StatusLoading
		s.Error = ""
	})
	res, err := l.collection.List(ctx, remote.ListQuery{Filter: models.FilterAll, Sort: remote.DefaultSort})
	if err != nil {
		l.logger.Warn("load observations failed", zap.Error(err))
		l.setStatus(func(s *LocalStatus) {
			s.FetchStatus = models.StatusFailed
			s.Error = messageOrDefault(err, "failed to fetch observations")
		})
		return err
	}
	l.pager.SetSource(store.SortNewestFirst(res.Items))
	l.setStatus(func(s *LocalStatus) { s.FetchStatus = models.StatusSucceeded })
	return nil
}

// View returns the derived state of tab.
func (l *Local) View(tab localpager.Tab) localpager.View[models.Observation] {
	return l.pager.View(tab)
}

// GoToNextPage advances tab.
func (l *Local) GoToNextPage(tab localpager.Tab) bool { return l.pager.GoToNextPage(tab) }

// GoToPreviousPage moves tab back.
func (l *Local) GoToPreviousPage(tab localpager.Tab) bool { return l.pager.GoToPreviousPage(tab) }

// GoToPage moves tab to page, clamped.
func (l *Local) GoToPage(page int, tab localpager.Tab) int { return l.pager.GoToPage(page, tab) }

// Reset returns tab to its first page.
func (l *Local) Reset(tab localpager.Tab) { l.pager.Reset(tab) }

// Create validates and records a new observation, then reloads the list.
func (l *Local) Create(ctx context.Context, data models.CreateObservationData) (models.Observation, error) {
	trimmed, messages := l.validator.Create(data)
	if len(messages) > 0 {
		return models.Observation{}, appErrors.Validation(messages)
	}

	l.setStatus(func(s *LocalStatus) {
		s.CreateStatus = models.StatusLoading
		s.Error = ""
	})
	created, err := l.collection.Create(ctx, trimmed)
	if err != nil {
		l.logger.Warn("create observation failed", zap.Error(err))
		l.setStatus(func(s *LocalStatus) {
			s.CreateStatus = models.StatusFailed
			s.Error = messageOrDefault(err, "failed to create observation")
		})
		failure(l.notifier, MsgCreateFailed, err)
		return models.Observation{}, err
	}
	l.setStatus(func(s *LocalStatus) { s.CreateStatus = models.StatusSucceeded })
	l.notifier.Notify(notify.Success(MsgCreated))

	if err := l.Load(ctx); err != nil {
		l.logger.Warn("reload after create failed", zap.Error(err))
	}
	return created, nil
}

// ResetCreateStatus returns createStatus to idle.
func (l *Local) ResetCreateStatus() {
	l.setStatus(func(s *LocalStatus) { s.CreateStatus = models.StatusIdle })
}

// ClearError drops the last error.
func (l *Local) ClearError() {
	l.setStatus(func(s *LocalStatus) { s.Error = "" })
}

// ToggleFavorite flips the favorite flag and patches the list in place.
func (l *Local) ToggleFavorite(ctx context.Context, observation models.Observation) (models.Observation, error) {
	next := observation
	next.IsFavorite = !observation.IsFavorite
	updated, err := l.replace(ctx, next)
	if err != nil {
		failure(l.notifier, MsgFavoriteFailed, err)
		return models.Observation{}, err
	}
	l.notifier.Notify(notify.Success(favoriteMessage(observation)))
	return updated, nil
}

// ToggleCompleted moves an observation between the two tabs.
func (l *Local) ToggleCompleted(ctx context.Context, observation models.Observation) (models.Observation, error) {
	updated, err := l.replace(ctx, observation.WithCompleted(!observation.IsCompleted, l.now()))
	if err != nil {
		failure(l.notifier, MsgCompletionFailed, err)
		return models.Observation{}, err
	}
	l.notifier.Notify(notify.Success(completionMessage(observation)))
	return updated, nil
}

func (l *Local) replace(ctx context.Context, next models.Observation) (models.Observation, error) {
	updated, err := l.collection.Update(ctx, next.ID, next)
	if err != nil {
		l.logger.Warn("update observation failed", zap.String("id", next.ID), zap.Error(err))
		l.setStatus(func(s *LocalStatus) { s.Error = messageOrDefault(err, "failed to update observation") })
		return models.Observation{}, err
	}
	source := l.pager.Source()
	for i := range source {
		if source[i].ID == updated.ID {
			source[i] = updated
		}
	}
	l.pager.SetSource(source)
	return updated, nil
}

// Remove deletes an observation. A tab left past its last page is pulled
// back by the pager.
func (l *Local) Remove(ctx context.Context, id string) error {
	if err := l.collection.Delete(ctx, id); err != nil {
		l.logger.Warn("delete observation failed", zap.String("id", id), zap.Error(err))
		l.setStatus(func(s *LocalStatus) { s.Error = messageOrDefault(err, "failed to delete observation") })
		failure(l.notifier, MsgRemoveFailed, err)
		return err
	}
	source := l.pager.Source()
	kept := source[:0]
	for _, o := range source {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	l.pager.SetSource(kept)
	l.notifier.Notify(notify.Success(MsgRemoved))
	return nil
}

func messageOrDefault(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
