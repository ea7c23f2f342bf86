package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrNotFound, "observation not found"))
	got := FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrNotFound.Code, got.Code)
	assert.Equal(t, "observation not found", got.Message)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.ErrorContains(t, got, "boom")
}

func TestIsComparesCodes(t *testing.T) {
	err := Wrap(errors.New("dial tcp"), ErrRemote.Code, ErrRemote.Status, "list observations")
	assert.ErrorIs(t, err, ErrRemote)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestValidationCopiesMessages(t *testing.T) {
	msgs := []string{"student name is required"}
	err := Validation(msgs)
	msgs[0] = "changed"
	assert.Equal(t, []string{"student name is required"}, err.Details)
	assert.Nil(t, ErrValidation.Details)
}
