package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/sma-observations/pkg/pagination"
)

// Observation is a short note recorded about a student.
type Observation struct {
	ID          string     `db:"id" json:"id"`
	StudentName string     `db:"student_name" json:"studentName"`
	Observation string     `db:"observation" json:"observation"`
	IsFavorite  bool       `db:"is_favorite" json:"isFavorite"`
	IsCompleted bool       `db:"is_completed" json:"isCompleted"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
}

// WithCompleted returns a copy with the completion flag set. completedAt is
// stamped with now on a false->true transition and cleared on true->false.
func (o Observation) WithCompleted(completed bool, now time.Time) Observation {
	if completed == o.IsCompleted {
		return o
	}
	o.IsCompleted = completed
	if completed {
		stamped := now.UTC()
		o.CompletedAt = &stamped
	} else {
		o.CompletedAt = nil
	}
	return o
}

// CreateObservationData is the payload accepted when recording a new observation.
type CreateObservationData struct {
	StudentName string `json:"studentName" validate:"required"`
	Observation string `json:"observation" validate:"required,min=10"`
	IsFavorite  bool   `json:"isFavorite"`
	IsCompleted bool   `json:"isCompleted"`
}

// Trimmed returns the payload with surrounding whitespace removed from text fields.
func (d CreateObservationData) Trimmed() CreateObservationData {
	d.StudentName = strings.TrimSpace(d.StudentName)
	d.Observation = strings.TrimSpace(d.Observation)
	return d
}

// Filter narrows which observations are counted and listed.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
	FilterFavorites Filter = "favorites"
)

// ParseFilter maps raw input onto a Filter. Empty input means FilterAll.
func ParseFilter(raw string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	case FilterFavorites:
		return FilterFavorites, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

// Matches reports whether the observation belongs to the filter.
func (f Filter) Matches(o Observation) bool {
	switch f {
	case FilterActive:
		return !o.IsCompleted
	case FilterCompleted:
		return o.IsCompleted
	case FilterFavorites:
		return o.IsFavorite
	default:
		return true
	}
}

// Apply returns the observations matching the filter, in order.
func (f Filter) Apply(items []Observation) []Observation {
	matching, _ := pagination.Separate(items, f.Matches)
	return matching
}

// ObservationFilter holds the server side list parameters.
type ObservationFilter struct {
	Filter   Filter
	Page     int
	PageSize int
	SortBy   string
	// SortOrder is "asc" or "desc".
	SortOrder string
}

// OperationStatus tracks the lifecycle of one kind of remote operation.
type OperationStatus string

const (
	StatusIdle      OperationStatus = "idle"
	StatusLoading   OperationStatus = "loading"
	StatusSucceeded OperationStatus = "succeeded"
	StatusFailed    OperationStatus = "failed"
)

// ObservationsState is the client side copy of the current page.
type ObservationsState struct {
	Items        []Observation         `json:"items"`
	FetchStatus  OperationStatus       `json:"fetchStatus"`
	CreateStatus OperationStatus       `json:"createStatus"`
	Error        string                `json:"error,omitempty"`
	Pagination   pagination.Descriptor `json:"pagination"`
}

// Clone returns a copy that shares no item storage with s.
func (s ObservationsState) Clone() ObservationsState {
	items := make([]Observation, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}

// NewObservationsState returns the start-of-process state.
func NewObservationsState(itemsPerPage int) ObservationsState {
	return ObservationsState{
		Items:        []Observation{},
		FetchStatus:  StatusIdle,
		CreateStatus: StatusIdle,
		Pagination:   pagination.Default(itemsPerPage),
	}
}
