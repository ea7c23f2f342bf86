package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/validation"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

type observationRepository interface {
	List(ctx context.Context, filter models.ObservationFilter) ([]models.Observation, int, error)
	FindByID(ctx context.Context, id string) (*models.Observation, error)
	Create(ctx context.Context, observation *models.Observation) error
	Replace(ctx context.Context, observation *models.Observation) error
	Delete(ctx context.Context, id string) error
}

// CreateObservationRequest is the body accepted by POST /observations.
// Clients may supply createdAt; the server stamps it otherwise.
type CreateObservationRequest struct {
	models.CreateObservationData
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ObservationPage is one list window plus its descriptor.
type ObservationPage struct {
	Items      []models.Observation  `json:"items"`
	Pagination pagination.Descriptor `json:"pagination"`
}

// ObservationService handles the observation resource use-cases.
type ObservationService struct {
	repo      observationRepository
	validator *validation.Validator
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewObservationService constructs the observation service. cache and metrics may be nil.
func NewObservationService(repo observationRepository, validate *validation.Validator, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ObservationService {
	if validate == nil {
		validate = validation.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObservationService{repo: repo, validator: validate, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// List returns one window of observations. Pages past the end come back
// empty with the true total; a zero PageSize returns the whole collection.
// Page sizes above pagination.MaxItemsPerPage are clamped before the window
// and the descriptor are built, so both agree.
func (s *ObservationService) List(ctx context.Context, filter models.ObservationFilter) (*ObservationPage, bool, error) {
	if filter.Filter == "" {
		filter.Filter = models.FilterAll
	}
	if filter.PageSize > 0 && filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize > pagination.MaxItemsPerPage {
		filter.PageSize = pagination.MaxItemsPerPage
	}

	key := ListKey(filter)
	var cached ObservationPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	start := time.Now()
	items, total, err := s.repo.List(ctx, filter)
	s.metrics.ObserveDBQuery("observations.list", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list observations")
	}
	if items == nil {
		items = []models.Observation{}
	}

	page, size := filter.Page, filter.PageSize
	if size <= 0 {
		page, size = 1, total
		if size == 0 {
			size = pagination.DefaultItemsPerPage
		}
	}
	result := &ObservationPage{Items: items, Pagination: pagination.Compute(total, page, size)}
	_ = s.cache.Set(ctx, key, result, 0)
	return result, false, nil
}

// Get returns a single observation.
func (s *ObservationService) Get(ctx context.Context, id string) (*models.Observation, error) {
	observation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load observation")
	}
	return observation, nil
}

// Create validates and stores a new observation.
func (s *ObservationService) Create(ctx context.Context, req CreateObservationRequest) (*models.Observation, error) {
	data, messages := s.validator.Create(req.CreateObservationData)
	if len(messages) > 0 {
		return nil, appErrors.Validation(messages)
	}
	now := s.now().UTC()
	createdAt := now
	if req.CreatedAt != nil && !req.CreatedAt.IsZero() {
		createdAt = req.CreatedAt.UTC()
	}
	observation := models.Observation{
		StudentName: data.StudentName,
		Observation: data.Observation,
		IsFavorite:  data.IsFavorite,
		CreatedAt:   createdAt,
	}.WithCompleted(data.IsCompleted, now)

	err := s.repo.Create(ctx, &observation)
	s.metrics.RecordMutation("create", err)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create observation")
	}
	s.invalidate(ctx)
	s.logger.Info("observation created", zap.String("id", observation.ID))
	return &observation, nil
}

// Replace overwrites an observation. createdAt is immutable and always kept
// from the stored row. completedAt is stamped when the observation becomes
// completed without one and cleared when it is active.
func (s *ObservationService) Replace(ctx context.Context, id string, next models.Observation) (*models.Observation, error) {
	data, messages := s.validator.Create(models.CreateObservationData{StudentName: next.StudentName, Observation: next.Observation})
	if len(messages) > 0 {
		return nil, appErrors.Validation(messages)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next.ID = id
	next.StudentName = data.StudentName
	next.Observation = data.Observation
	next.CreatedAt = current.CreatedAt
	switch {
	case !next.IsCompleted:
		next.CompletedAt = nil
	case next.CompletedAt == nil:
		stamped := s.now().UTC()
		next.CompletedAt = &stamped
	}

	err = s.repo.Replace(ctx, &next)
	s.metrics.RecordMutation("replace", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update observation")
	}
	s.invalidate(ctx)
	return &next, nil
}

// Delete removes an observation.
func (s *ObservationService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	s.metrics.RecordMutation("delete", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "observation not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete observation")
	}
	s.invalidate(ctx)
	return nil
}

func (s *ObservationService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateLists(ctx); err != nil {
		s.logger.Warn("list cache invalidation failed", zap.Error(err))
	}
}
