// Package pagination holds the pure page-window helpers shared by the store,
// the coordinators and the API handlers.
package pagination

// DefaultItemsPerPage is the page size used when a caller does not pick one.
const DefaultItemsPerPage = 5

// MaxItemsPerPage bounds the page size a server window may hold.
const MaxItemsPerPage = 100

// Descriptor is derived page metadata. It is always recomputed, never edited in place.
type Descriptor struct {
	CurrentPage     int  `json:"currentPage"`
	TotalPages      int  `json:"totalPages"`
	TotalItems      int  `json:"totalItems"`
	ItemsPerPage    int  `json:"itemsPerPage"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Default returns the descriptor of an empty first page.
func Default(itemsPerPage int) Descriptor {
	if itemsPerPage <= 0 {
		itemsPerPage = DefaultItemsPerPage
	}
	return Compute(0, 1, itemsPerPage)
}

// Separate splits items into those matching the predicate and the rest,
// keeping relative order inside each half.
func Separate[T any](items []T, match func(T) bool) (matching, rest []T) {
	matching = make([]T, 0, len(items))
	rest = make([]T, 0, len(items))
	for _, item := range items {
		if match(item) {
			matching = append(matching, item)
		} else {
			rest = append(rest, item)
		}
	}
	return matching, rest
}

// TotalPages returns max(1, ceil(totalItems/itemsPerPage)).
func TotalPages(totalItems, itemsPerPage int) int {
	if totalItems <= 0 || itemsPerPage <= 0 {
		return 1
	}
	pages := (totalItems + itemsPerPage - 1) / itemsPerPage
	if pages < 1 {
		return 1
	}
	return pages
}

// Compute derives a Descriptor. currentPage is taken as given; callers clamp it
// with ClampPage when they need a valid index.
func Compute(totalItems, currentPage, itemsPerPage int) Descriptor {
	if totalItems < 0 {
		totalItems = 0
	}
	totalPages := TotalPages(totalItems, itemsPerPage)
	d := Descriptor{
		CurrentPage:  currentPage,
		TotalPages:   totalPages,
		TotalItems:   totalItems,
		ItemsPerPage: itemsPerPage,
	}
	if totalItems == 0 {
		return d
	}
	d.HasNextPage = currentPage < totalPages
	d.HasPreviousPage = currentPage > 1
	return d
}

// Paginate returns the window items[(page-1)*perPage : page*perPage] clipped to
// the slice bounds. Out of range pages yield an empty, non-nil slice.
func Paginate[T any](items []T, currentPage, itemsPerPage int) []T {
	if itemsPerPage <= 0 {
		return []T{}
	}
	start := (currentPage - 1) * itemsPerPage
	end := start + itemsPerPage
	if start < 0 {
		start = 0
	}
	if end > len(items) {
		end = len(items)
	}
	if start >= end {
		return []T{}
	}
	window := make([]T, end-start)
	copy(window, items[start:end])
	return window
}

// ClampPage bounds requested to [1, totalPages]; degenerate totals resolve to 1.
func ClampPage(requested, totalPages int) int {
	if requested > totalPages {
		requested = totalPages
	}
	if requested < 1 {
		return 1
	}
	return requested
}
