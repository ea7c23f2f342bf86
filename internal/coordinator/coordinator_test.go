package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/notify"
	"github.com/noah-isme/sma-observations/internal/remote"
	"github.com/noah-isme/sma-observations/internal/store"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

// memCollection behaves like the remote resource: it filters, sorts newest
// first and windows in memory.
type memCollection struct {
	mu        sync.Mutex
	items     []models.Observation
	queries   []remote.ListQuery
	creates   int
	seq       int
	listErr   error
	createErr error
	updateErr error
	deleteErr error
}

func (m *memCollection) List(ctx context.Context, q remote.ListQuery) (remote.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, q)
	if m.listErr != nil {
		return remote.ListResult{}, m.listErr
	}
	filtered := q.Filter.Apply(store.SortNewestFirst(m.items))
	if q.Unwindowed() {
		return remote.ListResult{Items: filtered, TotalCount: len(filtered)}, nil
	}
	return remote.ListResult{Items: pagination.Paginate(filtered, q.Page, q.Limit), TotalCount: len(filtered)}, nil
}

func (m *memCollection) Create(ctx context.Context, data models.CreateObservationData) (models.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return models.Observation{}, m.createErr
	}
	m.seq++
	o := models.Observation{
		ID:          fmt.Sprintf("new-%d", m.seq),
		StudentName: data.StudentName,
		Observation: data.Observation,
		CreatedAt:   time.Date(2030, 1, 1, 0, m.seq, 0, 0, time.UTC),
	}
	m.items = append(m.items, o)
	return o, nil
}

func (m *memCollection) Update(ctx context.Context, id string, o models.Observation) (models.Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return models.Observation{}, m.updateErr
	}
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i] = o
			return o, nil
		}
	}
	return models.Observation{}, appErrors.ErrNotFound
}

func (m *memCollection) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return appErrors.ErrNotFound
}

func (m *memCollection) queryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

func (m *memCollection) lastQuery() remote.ListQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[len(m.queries)-1]
}

type recorder struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Title)
	}
	return out
}

// seed returns n observations, the first being the oldest.
func seed(n int) []models.Observation {
	items := make([]models.Observation, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.Observation{
			ID:          fmt.Sprintf("obs-%02d", i),
			StudentName: fmt.Sprintf("Student %d", i),
			Observation: "participates actively in class",
			IsCompleted: i%2 == 1,
			CreatedAt:   time.Date(2024, 1, 1, 8, i, 0, 0, time.UTC),
		})
	}
	return items
}

func newCoordinator(mc *memCollection, rec *recorder) *Coordinator {
	return New(store.New(mc), WithNotifier(rec))
}

func validData() models.CreateObservationData {
	return models.CreateObservationData{StudentName: "Ana", Observation: "reads aloud with confidence"}
}

func TestLoadPage(t *testing.T) {
	mc := &memCollection{items: seed(12)}
	c := newCoordinator(mc, &recorder{})

	require.NoError(t, c.LoadPage(context.Background(), LoadParams{Page: 2, Limit: 5, Filter: models.FilterAll}))

	state := c.State()
	assert.Equal(t, models.StatusSucceeded, state.FetchStatus)
	assert.Len(t, state.Items, 5)
	assert.Equal(t, "obs-06", state.Items[0].ID)
	assert.Equal(t, pagination.Descriptor{
		CurrentPage: 2, TotalPages: 3, TotalItems: 12, ItemsPerPage: 5, HasNextPage: true, HasPreviousPage: true,
	}, state.Pagination)
	assert.Equal(t, remote.ListQuery{Filter: models.FilterAll, Sort: remote.DefaultSort, Page: 2, Limit: 5}, mc.lastQuery())
}

func TestLoadPageDefaultsFilter(t *testing.T) {
	mc := &memCollection{items: seed(3)}
	c := newCoordinator(mc, &recorder{})

	require.NoError(t, c.LoadPage(context.Background(), LoadParams{}))
	assert.Equal(t, models.FilterAll, c.Filter())
	assert.Equal(t, 1, mc.lastQuery().Page)
	assert.Equal(t, pagination.DefaultItemsPerPage, mc.lastQuery().Limit)
}

func TestLoadPageFailureKeepsItems(t *testing.T) {
	mc := &memCollection{items: seed(3)}
	c := newCoordinator(mc, &recorder{})
	require.NoError(t, c.LoadPage(context.Background(), LoadParams{Page: 1, Limit: 5}))

	mc.listErr = errors.New("network down")
	err := c.LoadPage(context.Background(), LoadParams{Page: 1, Limit: 5})
	require.Error(t, err)

	state := c.State()
	assert.Equal(t, models.StatusFailed, state.FetchStatus)
	assert.Equal(t, "network down", state.Error)
	assert.Len(t, state.Items, 3)
}

func TestClientPagedStrategy(t *testing.T) {
	mc := &memCollection{items: seed(10)}
	c := New(store.New(mc), WithStrategy(store.ClientPaged))

	require.NoError(t, c.LoadPage(context.Background(), LoadParams{Page: 2, Limit: 2, Filter: models.FilterCompleted}))

	state := c.State()
	assert.True(t, mc.lastQuery().Unwindowed())
	assert.Equal(t, 5, state.Pagination.TotalItems)
	require.Len(t, state.Items, 2)
	assert.Equal(t, "obs-05", state.Items[0].ID)
	assert.Equal(t, "obs-03", state.Items[1].ID)
}

func TestCreateReloadsFirstPageOnce(t *testing.T) {
	mc := &memCollection{items: seed(12)}
	rec := &recorder{}
	c := newCoordinator(mc, rec)
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 3, Limit: 5, Filter: models.FilterAll}))
	before := mc.queryCount()

	created, err := c.Create(ctx, models.CreateObservationData{StudentName: "  Ana ", Observation: " reads aloud with confidence "})
	require.NoError(t, err)

	assert.Equal(t, "Ana", created.StudentName)
	assert.Equal(t, before+1, mc.queryCount())
	assert.Equal(t, remote.ListQuery{Filter: models.FilterAll, Sort: remote.DefaultSort, Page: 1, Limit: 5}, mc.lastQuery())

	state := c.State()
	assert.Equal(t, models.StatusSucceeded, state.CreateStatus)
	assert.Equal(t, 1, state.Pagination.CurrentPage)
	assert.Equal(t, 13, state.Pagination.TotalItems)
	assert.Equal(t, created.ID, state.Items[0].ID)
	assert.Equal(t, []string{MsgCreated}, rec.titles())
}

func TestCreateReloadUsesLastFilter(t *testing.T) {
	mc := &memCollection{items: seed(4)}
	c := newCoordinator(mc, &recorder{})
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 1, Limit: 5, Filter: models.FilterFavorites}))

	_, err := c.Create(ctx, validData())
	require.NoError(t, err)
	assert.Equal(t, models.FilterFavorites, mc.lastQuery().Filter)
}

func TestCreateFailure(t *testing.T) {
	mc := &memCollection{items: seed(2), createErr: appErrors.Clone(appErrors.ErrRemote, "service unavailable")}
	rec := &recorder{}
	c := newCoordinator(mc, rec)
	before := mc.queryCount()

	_, err := c.Create(context.Background(), validData())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrRemote)

	state := c.State()
	assert.Equal(t, models.StatusFailed, state.CreateStatus)
	assert.Equal(t, "service unavailable", state.Error)
	assert.Equal(t, before, mc.queryCount())
	require.Len(t, rec.got, 1)
	assert.Equal(t, notify.SeverityError, rec.got[0].Severity)
	assert.Equal(t, MsgCreateFailed, rec.got[0].Title)
	assert.Equal(t, "service unavailable", rec.got[0].Subtitle)
}

func TestCreateRejectsInvalidInputWithoutRemoteCall(t *testing.T) {
	mc := &memCollection{}
	rec := &recorder{}
	c := newCoordinator(mc, rec)

	_, err := c.Create(context.Background(), models.CreateObservationData{StudentName: "   ", Observation: "too short"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, []string{"student name is required", "observation must be at least 10 characters"}, appErr.Details)
	assert.Zero(t, mc.creates)
	assert.Empty(t, rec.got)
	assert.Equal(t, models.StatusIdle, c.State().CreateStatus)
}

func TestToggleFavoriteMessages(t *testing.T) {
	mc := &memCollection{items: seed(2)}
	rec := &recorder{}
	c := newCoordinator(mc, rec)
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 1, Limit: 5}))

	target := c.State().Items[0]
	updated, err := c.ToggleFavorite(ctx, target)
	require.NoError(t, err)
	assert.True(t, updated.IsFavorite)

	_, err = c.ToggleFavorite(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, []string{MsgFavoriteAdded, MsgFavoriteRemoved}, rec.titles())
	assert.False(t, c.State().Items[0].IsFavorite)
}

func TestToggleCompletedMessages(t *testing.T) {
	mc := &memCollection{items: seed(1)}
	rec := &recorder{}
	c := newCoordinator(mc, rec)
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 1, Limit: 5}))

	completed, err := c.ToggleCompleted(ctx, c.State().Items[0])
	require.NoError(t, err)
	assert.True(t, completed.IsCompleted)
	assert.NotNil(t, completed.CompletedAt)

	reactivated, err := c.ToggleCompleted(ctx, completed)
	require.NoError(t, err)
	assert.False(t, reactivated.IsCompleted)
	assert.Nil(t, reactivated.CompletedAt)

	assert.Equal(t, []string{MsgCompleted, MsgReactivated}, rec.titles())
}

func TestToggleFailureNotifies(t *testing.T) {
	mc := &memCollection{items: seed(1), updateErr: errors.New("conflict")}
	rec := &recorder{}
	c := newCoordinator(mc, rec)
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 1, Limit: 5}))

	_, err := c.ToggleCompleted(ctx, c.State().Items[0])
	require.Error(t, err)
	assert.Equal(t, "conflict", c.State().Error)
	require.Len(t, rec.got, 1)
	assert.Equal(t, MsgCompletionFailed, rec.got[0].Title)
	assert.Equal(t, "conflict", rec.got[0].Subtitle)
}

func TestRemoveLastItemOnLastPageGoesBack(t *testing.T) {
	mc := &memCollection{items: seed(11)}
	rec := &recorder{}
	c := newCoordinator(mc, rec)
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 3, Limit: 5, Filter: models.FilterAll}))
	require.Len(t, c.State().Items, 1)
	only := c.State().Items[0]

	require.NoError(t, c.Remove(ctx, only.ID, models.FilterAll))

	assert.Equal(t, 2, mc.lastQuery().Page)
	state := c.State()
	assert.Equal(t, pagination.Descriptor{
		CurrentPage: 2, TotalPages: 2, TotalItems: 10, ItemsPerPage: 5, HasNextPage: false, HasPreviousPage: true,
	}, state.Pagination)
	assert.Len(t, state.Items, 5)
	assert.Equal(t, []string{MsgRemoved}, rec.titles())
}

func TestRemoveRefreshesCurrentPage(t *testing.T) {
	mc := &memCollection{items: seed(12)}
	c := newCoordinator(mc, &recorder{})
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 2, Limit: 5}))
	target := c.State().Items[0]

	require.NoError(t, c.Remove(ctx, target.ID, models.FilterAll))

	assert.Equal(t, 2, mc.lastQuery().Page)
	state := c.State()
	assert.Equal(t, 11, state.Pagination.TotalItems)
	assert.Len(t, state.Items, 5)
	for _, o := range state.Items {
		assert.NotEqual(t, target.ID, o.ID)
	}
}

func TestRemoveOnlyItemOnFirstPageStays(t *testing.T) {
	mc := &memCollection{items: seed(1)}
	c := newCoordinator(mc, &recorder{})
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 1, Limit: 5}))

	require.NoError(t, c.Remove(ctx, "obs-00", models.FilterAll))

	assert.Equal(t, 1, mc.lastQuery().Page)
	state := c.State()
	assert.Empty(t, state.Items)
	assert.Equal(t, pagination.Descriptor{CurrentPage: 1, TotalPages: 1, ItemsPerPage: 5}, state.Pagination)
}

func TestRemoveFailure(t *testing.T) {
	mc := &memCollection{items: seed(3), deleteErr: errors.New("forbidden")}
	rec := &recorder{}
	c := newCoordinator(mc, rec)
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 1, Limit: 5}))
	before := mc.queryCount()

	err := c.Remove(ctx, "obs-00", models.FilterAll)
	require.Error(t, err)
	assert.Equal(t, before, mc.queryCount())
	assert.Equal(t, 3, c.State().Pagination.TotalItems)
	assert.Equal(t, []string{MsgRemoveFailed}, rec.titles())
}

func TestNavigationGuards(t *testing.T) {
	mc := &memCollection{items: seed(7)}
	c := newCoordinator(mc, &recorder{})
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 1, Limit: 5}))
	before := mc.queryCount()

	moved, err := c.GoToPreviousPage(ctx, models.FilterAll)
	require.NoError(t, err)
	assert.False(t, moved)
	moved, err = c.GoToPage(ctx, 3, models.FilterAll)
	require.NoError(t, err)
	assert.False(t, moved)
	moved, err = c.GoToPage(ctx, 0, models.FilterAll)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, before, mc.queryCount())

	moved, err = c.GoToNextPage(ctx, models.FilterAll)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 2, c.State().Pagination.CurrentPage)

	moved, err = c.GoToNextPage(ctx, models.FilterAll)
	require.NoError(t, err)
	assert.False(t, moved)

	moved, err = c.GoToPage(ctx, 1, models.FilterAll)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 1, c.State().Pagination.CurrentPage)
}

func TestResetsAndFilteredObservations(t *testing.T) {
	mc := &memCollection{items: seed(4), createErr: errors.New("boom")}
	c := newCoordinator(mc, &recorder{})
	ctx := context.Background()
	require.NoError(t, c.LoadPage(ctx, LoadParams{Page: 1, Limit: 5}))

	active := c.FilteredObservations(models.FilterActive)
	require.Len(t, active, 2)
	for _, o := range active {
		assert.False(t, o.IsCompleted)
	}

	_, err := c.Create(ctx, validData())
	require.Error(t, err)
	c.ResetCreateStatus()
	c.ClearError()
	state := c.State()
	assert.Equal(t, models.StatusIdle, state.CreateStatus)
	assert.Empty(t, state.Error)

	c.ResetPagination()
	assert.Equal(t, pagination.Default(pagination.DefaultItemsPerPage), c.State().Pagination)
}
