package localpager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id   int
	done bool
}

func isDone(i item) bool { return i.done }

func items(active, completed int) []item {
	out := make([]item, 0, active+completed)
	for i := 0; i < active; i++ {
		out = append(out, item{id: i})
	}
	for i := 0; i < completed; i++ {
		out = append(out, item{id: 100 + i, done: true})
	}
	return out
}

func ids(list []item) []int {
	out := make([]int, 0, len(list))
	for _, i := range list {
		out = append(out, i.id)
	}
	return out
}

func TestNewPagerStartsEmpty(t *testing.T) {
	p := New(5, isDone)
	v := p.View(TabActive)
	assert.Empty(t, v.Page)
	assert.Equal(t, 1, v.Pagination.CurrentPage)
	assert.Equal(t, 1, v.Pagination.TotalPages)
}

func TestTabsPaginateIndependently(t *testing.T) {
	p := New(2, isDone)
	p.SetSource(items(5, 3))

	assert.True(t, p.GoToNextPage(TabActive))
	assert.True(t, p.GoToNextPage(TabActive))
	assert.False(t, p.GoToNextPage(TabActive), "active has three pages")

	active := p.View(TabActive)
	assert.Equal(t, []int{4}, ids(active.Page))
	assert.Equal(t, 3, active.Pagination.CurrentPage)
	assert.Len(t, active.All, 5)

	completed := p.View(TabCompleted)
	assert.Equal(t, 1, completed.Pagination.CurrentPage)
	assert.Equal(t, []int{100, 101}, ids(completed.Page))
	assert.Equal(t, 2, completed.Pagination.TotalPages)
}

func TestGoToPreviousPageGuards(t *testing.T) {
	p := New(2, isDone)
	p.SetSource(items(3, 0))
	assert.False(t, p.GoToPreviousPage(TabActive))
	require.True(t, p.GoToNextPage(TabActive))
	assert.True(t, p.GoToPreviousPage(TabActive))
	assert.Equal(t, 1, p.View(TabActive).Pagination.CurrentPage)
}

func TestGoToPageClamps(t *testing.T) {
	p := New(2, isDone)
	p.SetSource(items(5, 1))
	assert.Equal(t, 3, p.GoToPage(10, TabActive))
	assert.Equal(t, 1, p.GoToPage(0, TabCompleted))
	assert.Equal(t, 2, p.GoToPage(2, TabActive))
}

func TestShrinkingSourcePullsCursorBack(t *testing.T) {
	p := New(2, isDone)
	p.SetSource(items(5, 2))
	p.GoToPage(3, TabActive)

	// deleting the only item on the last active page
	p.SetSource(items(4, 2))
	v := p.View(TabActive)
	assert.Equal(t, 2, v.Pagination.CurrentPage)
	assert.Equal(t, []int{2, 3}, ids(v.Page))
	assert.False(t, v.Pagination.HasNextPage)

	p.SetSource(nil)
	assert.Equal(t, 1, p.View(TabActive).Pagination.CurrentPage)
}

func TestResetOnlyTouchesOneTab(t *testing.T) {
	p := New(1, isDone)
	p.SetSource(items(3, 3))
	p.GoToPage(3, TabActive)
	p.GoToPage(2, TabCompleted)

	p.Reset(TabActive)
	assert.Equal(t, 1, p.View(TabActive).Pagination.CurrentPage)
	assert.Equal(t, 2, p.View(TabCompleted).Pagination.CurrentPage)
}

func TestViewIsACopy(t *testing.T) {
	p := New(5, isDone)
	p.SetSource(items(2, 0))
	v := p.View(TabActive)
	v.Page[0].id = 42
	assert.Equal(t, 0, p.View(TabActive).Page[0].id)
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab("completed")
	require.NoError(t, err)
	assert.Equal(t, TabCompleted, tab)
	_, err = ParseTab("archived")
	assert.Error(t, err)
}
