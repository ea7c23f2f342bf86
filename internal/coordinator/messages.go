package coordinator

import (
	"errors"

	"github.com/noah-isme/sma-observations/internal/models"
	"github.com/noah-isme/sma-observations/internal/notify"
	appErrors "github.com/noah-isme/sma-observations/pkg/errors"
)

// Notification texts shared by both coordinator variants.
const (
	MsgCreated          = "Observation added successfully!"
	MsgCreateFailed     = "Failed to add observation"
	MsgFavoriteAdded    = "Added to favorites"
	MsgFavoriteRemoved  = "Removed from favorites"
	MsgFavoriteFailed   = "Failed to update favorite"
	MsgCompleted        = "Observation marked as completed"
	MsgReactivated      = "Observation reactivated"
	MsgCompletionFailed = "Failed to update status"
	MsgRemoved          = "Observation removed successfully!"
	MsgRemoveFailed     = "Failed to remove observation"
)

// favoriteMessage picks the text from the value before the toggle.
func favoriteMessage(before models.Observation) string {
	if before.IsFavorite {
		return MsgFavoriteRemoved
	}
	return MsgFavoriteAdded
}

// completionMessage picks the text from the value before the toggle.
func completionMessage(before models.Observation) string {
	if before.IsCompleted {
		return MsgReactivated
	}
	return MsgCompleted
}

func failure(n notify.Notifier, title string, err error) {
	n.Notify(notify.Error(title, reason(err)))
}

func reason(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
