package store

import (
	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/pkg/pagination"
)

// Action is a state transition request folded by Reduce.
type Action interface {
	actionName() string
}

// FetchPending marks a list fetch as in flight.
type FetchPending struct{ Seq uint64 }

// FetchFulfilled carries a resolved page.
type FetchFulfilled struct {
	Seq        uint64
	Items      []models.Observation
	Pagination pagination.Descriptor
}

// FetchRejected carries a failed fetch.
type FetchRejected struct {
	Seq     uint64
	Message string
}

// CreatePending marks a create as in flight.
type CreatePending struct{}

// CreateFulfilled carries the created observation.
type CreateFulfilled struct{ Observation models.Observation }

// CreateRejected carries a failed create.
type CreateRejected struct{ Message string }

// ObservationUpdated carries the server copy of a toggled observation.
type ObservationUpdated struct{ Observation models.Observation }

// ObservationDeleted carries the id of a deleted observation.
type ObservationDeleted struct{ ID string }

// MutationRejected carries a failed toggle or delete.
type MutationRejected struct{ Message string }

// ResetCreateStatus returns createStatus to idle.
type ResetCreateStatus struct{}

// ClearError drops the last error message.
type ClearError struct{}

// ResetPagination restores the default descriptor.
type ResetPagination struct{ ItemsPerPage int }

func (FetchPending) actionName() string       { return "observations/fetch/pending" }
func (FetchFulfilled) actionName() string     { return "observations/fetch/fulfilled" }
func (FetchRejected) actionName() string      { return "observations/fetch/rejected" }
func (CreatePending) actionName() string      { return "observations/create/pending" }
func (CreateFulfilled) actionName() string    { return "observations/create/fulfilled" }
func (CreateRejected) actionName() string     { return "observations/create/rejected" }
func (ObservationUpdated) actionName() string { return "observations/updated" }
func (ObservationDeleted) actionName() string { return "observations/deleted" }
func (MutationRejected) actionName() string   { return "observations/mutation/rejected" }
func (ResetCreateStatus) actionName() string  { return "observations/resetCreateStatus" }
func (ClearError) actionName() string         { return "observations/clearError" }
func (ResetPagination) actionName() string    { return "observations/resetPagination" }

// Reduce folds one action into a new state. It never mutates the input.
func Reduce(state models.ObservationsState, action Action) models.ObservationsState {
	next := state.Clone()
	switch a := action.(type) {
	case FetchPending:
		next.FetchStatus = models.StatusLoading
	case FetchFulfilled:
		next.FetchStatus = models.StatusSucceeded
		next.Items = append([]models.Observation{}, a.Items...)
		next.Pagination = a.Pagination
	case FetchRejected:
		next.FetchStatus = models.StatusFailed
		next.Error = a.Message
	case CreatePending:
		next.CreateStatus = models.StatusLoading
	case CreateFulfilled:
		// the new item may belong on another page; callers refetch instead
		next.CreateStatus = models.StatusSucceeded
	case CreateRejected:
		next.CreateStatus = models.StatusFailed
		next.Error = a.Message
	case ObservationUpdated:
		for i := range next.Items {
			if next.Items[i].ID == a.Observation.ID {
				next.Items[i] = a.Observation
				break
			}
		}
	case ObservationDeleted:
		kept := next.Items[:0]
		for _, item := range next.Items {
			if item.ID != a.ID {
				kept = append(kept, item)
			}
		}
		next.Items = kept
		p := next.Pagination
		total := p.TotalItems - 1
		if total < 0 {
			total = 0
		}
		next.Pagination = pagination.Compute(total, p.CurrentPage, p.ItemsPerPage)
	case MutationRejected:
		next.Error = a.Message
	case ResetCreateStatus:
		next.CreateStatus = models.StatusIdle
	case ClearError:
		next.Error = ""
	case ResetPagination:
		next.Pagination = pagination.Default(a.ItemsPerPage)
	}
	return next
}
