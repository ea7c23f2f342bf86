// Package localpager paginates an in-memory list as two independent tabs,
// active and completed, without further remote calls.
package localpager

import (
	"fmt"
	"sync"

	"github.com/noah-isme/sma-observations/pkg/pagination"
)

// Tab names one of the two views.
type Tab string

const (
	TabActive    Tab = "active"
	TabCompleted Tab = "completed"
)

// ParseTab maps raw input onto a Tab.
func ParseTab(raw string) (Tab, error) {
	switch Tab(raw) {
	case TabActive, "":
		return TabActive, nil
	case TabCompleted:
		return TabCompleted, nil
	}
	return "", fmt.Errorf("unknown tab %q", raw)
}

// View is the derived state of one tab.
type View[T any] struct {
	// All holds every item of the tab, in source order.
	All []T
	// Page holds the current window of All.
	Page       []T
	Pagination pagination.Descriptor
}

// Pager keeps one cursor per tab over a shared source list. Every change to
// the source or a cursor recomputes both views, and a cursor left beyond its
// tab's last page is pulled back to it.
type Pager[T any] struct {
	mu           sync.RWMutex
	itemsPerPage int
	completed    func(T) bool
	source       []T
	cursors      map[Tab]int
	views        map[Tab]View[T]
}

// New builds a Pager. completed decides which tab an item belongs to.
func New[T any](itemsPerPage int, completed func(T) bool) *Pager[T] {
	if itemsPerPage <= 0 {
		itemsPerPage = pagination.DefaultItemsPerPage
	}
	p := &Pager[T]{
		itemsPerPage: itemsPerPage,
		completed:    completed,
		cursors:      map[Tab]int{TabActive: 1, TabCompleted: 1},
		views:        make(map[Tab]View[T], 2),
	}
	p.recompute()
	return p
}

// SetSource replaces the source list.
func (p *Pager[T]) SetSource(items []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = append([]T(nil), items...)
	p.recompute()
}

// Source returns a copy of the source list.
func (p *Pager[T]) Source() []T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]T(nil), p.source...)
}

// View returns the current view of a tab.
func (p *Pager[T]) View(tab Tab) View[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v := p.views[tab]
	return View[T]{
		All:        append([]T{}, v.All...),
		Page:       append([]T{}, v.Page...),
		Pagination: v.Pagination,
	}
}

// GoToNextPage advances the tab when a next page exists.
func (p *Pager[T]) GoToNextPage(tab Tab) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.views[tab].Pagination.HasNextPage {
		return false
	}
	p.cursors[tab]++
	p.recompute()
	return true
}

// GoToPreviousPage moves the tab back when a previous page exists.
func (p *Pager[T]) GoToPreviousPage(tab Tab) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.views[tab].Pagination.HasPreviousPage {
		return false
	}
	p.cursors[tab]--
	p.recompute()
	return true
}

// GoToPage moves the tab to page, clamped to the valid range, and returns the page applied.
func (p *Pager[T]) GoToPage(page int, tab Tab) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursors[tab] = pagination.ClampPage(page, p.views[tab].Pagination.TotalPages)
	p.recompute()
	return p.cursors[tab]
}

// Reset moves the tab back to its first page.
func (p *Pager[T]) Reset(tab Tab) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursors[tab] = 1
	p.recompute()
}

// recompute must run with the write lock held.
func (p *Pager[T]) recompute() {
	completed, active := pagination.Separate(p.source, p.completed)
	p.views[TabActive] = p.view(TabActive, active)
	p.views[TabCompleted] = p.view(TabCompleted, completed)
}

func (p *Pager[T]) view(tab Tab, items []T) View[T] {
	totalPages := pagination.TotalPages(len(items), p.itemsPerPage)
	if p.cursors[tab] > totalPages {
		p.cursors[tab] = totalPages
	}
	cursor := p.cursors[tab]
	return View[T]{
		All:        items,
		Page:       pagination.Paginate(items, cursor, p.itemsPerPage),
		Pagination: pagination.Compute(len(items), cursor, p.itemsPerPage),
	}
}
