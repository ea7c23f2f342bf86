package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/repository"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

type mockObservationRepo struct {
	observations map[string]models.Observation
	listItems    []models.Observation
	listTotal    int
	listCalls    int
	lastFilter   models.ObservationFilter
	created      []models.Observation
	replaced     []models.Observation
	deleted      []string
	err          error
}

func (m *mockObservationRepo) List(ctx context.Context, filter models.ObservationFilter) ([]models.Observation, int, error) {
	m.listCalls++
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.listItems, m.listTotal, nil
}

func (m *mockObservationRepo) FindByID(ctx context.Context, id string) (*models.Observation, error) {
	if o, ok := m.observations[id]; ok {
		return &o, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockObservationRepo) Create(ctx context.Context, observation *models.Observation) error {
	if m.err != nil {
		return m.err
	}
	if observation.ID == "" {
		observation.ID = "generated"
	}
	m.created = append(m.created, *observation)
	return nil
}

func (m *mockObservationRepo) Replace(ctx context.Context, observation *models.Observation) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.observations[observation.ID]; !ok {
		return sql.ErrNoRows
	}
	m.replaced = append(m.replaced, *observation)
	m.observations[observation.ID] = *observation
	return nil
}

func (m *mockObservationRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.observations[id]; !ok {
		return sql.ErrNoRows
	}
	m.deleted = append(m.deleted, id)
	delete(m.observations, id)
	return nil
}

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newObservationService(repo *mockObservationRepo, cache *CacheService) *ObservationService {
	svc := NewObservationService(repo, nil, cache, NewMetricsService(), zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestObservationServiceListComputesDescriptor(t *testing.T) {
	repo := &mockObservationRepo{listItems: []models.Observation{{ID: "a"}}, listTotal: 11}
	svc := newObservationService(repo, nil)

	page, hit, err := svc.List(context.Background(), models.ObservationFilter{Page: 3, PageSize: 5})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, models.FilterAll, repo.lastFilter.Filter)
	assert.Equal(t, pagination.Descriptor{CurrentPage: 3, TotalPages: 3, TotalItems: 11, ItemsPerPage: 5, HasPreviousPage: true}, page.Pagination)
}

func TestObservationServiceListUnwindowed(t *testing.T) {
	repo := &mockObservationRepo{listTotal: 0}
	svc := newObservationService(repo, nil)

	page, _, err := svc.List(context.Background(), models.ObservationFilter{Filter: models.FilterActive})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 1, page.Pagination.TotalPages)
	assert.Equal(t, pagination.DefaultItemsPerPage, page.Pagination.ItemsPerPage)
	assert.Zero(t, repo.lastFilter.Page)
}

func TestObservationServiceListClampsPageSize(t *testing.T) {
	repo := &mockObservationRepo{listItems: []models.Observation{{ID: "a"}}, listTotal: 300}
	svc := newObservationService(repo, nil)

	page, _, err := svc.List(context.Background(), models.ObservationFilter{Page: 2, PageSize: 150})
	require.NoError(t, err)
	assert.Equal(t, pagination.MaxItemsPerPage, repo.lastFilter.PageSize)
	assert.Equal(t, 2, repo.lastFilter.Page)
	assert.Equal(t, pagination.Descriptor{
		CurrentPage:     2,
		TotalPages:      3,
		TotalItems:      300,
		ItemsPerPage:    pagination.MaxItemsPerPage,
		HasNextPage:     true,
		HasPreviousPage: true,
	}, page.Pagination)
}

func TestObservationServiceListError(t *testing.T) {
	repo := &mockObservationRepo{err: errors.New("db down")}
	svc := newObservationService(repo, nil)

	_, _, err := svc.List(context.Background(), models.ObservationFilter{})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestObservationServiceListCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := NewMetricsService()
	cache := NewCacheService(repository.NewCacheRepository(client, nil), metrics, time.Minute, nil, true)
	repo := &mockObservationRepo{
		observations: map[string]models.Observation{"a": {ID: "a", StudentName: "Ana", Observation: "asked good questions"}},
		listItems:    []models.Observation{{ID: "a"}},
		listTotal:    1,
	}
	svc := NewObservationService(repo, nil, cache, metrics, nil)
	ctx := context.Background()
	filter := models.ObservationFilter{Page: 1, PageSize: 5}

	_, hit, err := svc.List(ctx, filter)
	require.NoError(t, err)
	assert.False(t, hit)
	page, hit, err := svc.List(ctx, filter)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "a", page.Items[0].ID)
	assert.Equal(t, 1, repo.listCalls)

	require.NoError(t, svc.Delete(ctx, "a"))
	_, hit, err = svc.List(ctx, filter)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, repo.listCalls)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(2), snapshot.CacheMisses)
	assert.Equal(t, uint64(1), snapshot.Mutations)
}

func TestObservationServiceCreate(t *testing.T) {
	repo := &mockObservationRepo{}
	svc := newObservationService(repo, nil)

	created, err := svc.Create(context.Background(), CreateObservationRequest{
		CreateObservationData: models.CreateObservationData{StudentName: " Ana ", Observation: "  asked good questions ", IsCompleted: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", created.ID)
	assert.Equal(t, "Ana", created.StudentName)
	assert.Equal(t, "asked good questions", created.Observation)
	assert.Equal(t, fixedNow, created.CreatedAt)
	require.NotNil(t, created.CompletedAt)
	assert.Equal(t, fixedNow, *created.CompletedAt)
}

func TestObservationServiceCreateKeepsClientTimestamp(t *testing.T) {
	repo := &mockObservationRepo{}
	svc := newObservationService(repo, nil)
	clientTime := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)

	created, err := svc.Create(context.Background(), CreateObservationRequest{
		CreateObservationData: models.CreateObservationData{StudentName: "Ana", Observation: "asked good questions"},
		CreatedAt:             &clientTime,
	})
	require.NoError(t, err)
	assert.Equal(t, clientTime, created.CreatedAt)
	assert.Nil(t, created.CompletedAt)
}

func TestObservationServiceCreateValidation(t *testing.T) {
	repo := &mockObservationRepo{}
	svc := newObservationService(repo, nil)

	_, err := svc.Create(context.Background(), CreateObservationRequest{
		CreateObservationData: models.CreateObservationData{Observation: "short"},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, []string{"student name is required", "observation must be at least 10 characters"}, appErr.Details)
	assert.Empty(t, repo.created)
}

func TestObservationServiceReplaceMaintainsCompletedAt(t *testing.T) {
	created := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	repo := &mockObservationRepo{observations: map[string]models.Observation{
		"a": {ID: "a", StudentName: "Ana", Observation: "asked good questions", CreatedAt: created},
	}}
	svc := newObservationService(repo, nil)
	ctx := context.Background()

	completed, err := svc.Replace(ctx, "a", models.Observation{StudentName: "Ana", Observation: "asked good questions", IsCompleted: true})
	require.NoError(t, err)
	assert.Equal(t, "a", completed.ID)
	assert.Equal(t, created, completed.CreatedAt)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, fixedNow, *completed.CompletedAt)

	stale := fixedNow.Add(-time.Hour)
	active, err := svc.Replace(ctx, "a", models.Observation{StudentName: "Ana", Observation: "asked good questions", CompletedAt: &stale})
	require.NoError(t, err)
	assert.Nil(t, active.CompletedAt)
}

func TestObservationServiceReplaceKeepsCreatedAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	repo := &mockObservationRepo{observations: map[string]models.Observation{
		"a": {ID: "a", StudentName: "Ana", Observation: "asked good questions", CreatedAt: created},
	}}
	svc := newObservationService(repo, nil)

	forged := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	updated, err := svc.Replace(context.Background(), "a", models.Observation{
		StudentName: "Ana",
		Observation: "asked good questions",
		IsFavorite:  true,
		CreatedAt:   forged,
	})
	require.NoError(t, err)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, created, repo.observations["a"].CreatedAt)
	assert.True(t, repo.observations["a"].IsFavorite)
}

func TestObservationServiceReplaceAndDeleteMissing(t *testing.T) {
	repo := &mockObservationRepo{observations: map[string]models.Observation{}}
	svc := newObservationService(repo, nil)
	ctx := context.Background()

	_, err := svc.Replace(ctx, "missing", models.Observation{StudentName: "Ana", Observation: "asked good questions"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), appErrors.ErrNotFound)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
