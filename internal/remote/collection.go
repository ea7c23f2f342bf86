// Package remote is the client side boundary to the observation collection.
package remote

import (
	"context"

	"github.com/noah-isme/sma-observations/internal/models"
)

// Sort orders a listing by one field.
type Sort struct {
	Field string
	Desc  bool
}

// DefaultSort is most-recent-first by creation time.
var DefaultSort = Sort{Field: "createdAt", Desc: true}

// ListQuery selects a window of the collection. Page and Limit both zero asks
// for the whole, unwindowed collection.
type ListQuery struct {
	Filter models.Filter
	Sort   Sort
	Page   int
	Limit  int
}

// Unwindowed reports whether the query asks for every item.
func (q ListQuery) Unwindowed() bool {
	return q.Page == 0 && q.Limit == 0
}

// ListResult is one listing response. TotalCount is the number of items
// matching the filter, not the length of Items.
type ListResult struct {
	Items      []models.Observation
	TotalCount int
}

// Collection is the generic REST resource holding observations. Every method
// blocks until the remote side resolves or fails.
type Collection interface {
	List(ctx context.Context, query ListQuery) (ListResult, error)
	Create(ctx context.Context, data models.CreateObservationData) (models.Observation, error)
	Update(ctx context.Context, id string, observation models.Observation) (models.Observation, error)
	Delete(ctx context.Context, id string) error
}
