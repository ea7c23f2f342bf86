// Package validation checks observation payloads before they leave the client.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-observations/internal/models"
)

// MinObservationLength is the shortest accepted observation text, after trimming.
const MinObservationLength = 10

var fieldMessages = map[string]map[string]string{
	"StudentName": {
		"required": "student name is required",
	},
	"Observation": {
		"required": "observation is required",
		"min":      fmt.Sprintf("observation must be at least %d characters", MinObservationLength),
	},
}

// Validator turns struct validation failures into user facing messages.
type Validator struct {
	validate *validator.Validate
}

// New constructs a Validator. A nil validate uses a fresh validator instance.
func New(validate *validator.Validate) *Validator {
	if validate == nil {
		validate = validator.New()
	}
	return &Validator{validate: validate}
}

// Create validates a create payload after trimming it. It returns the trimmed
// payload and the list of messages; an empty list means the payload is valid.
func (v *Validator) Create(data models.CreateObservationData) (models.CreateObservationData, []string) {
	trimmed := data.Trimmed()
	err := v.validate.Struct(trimmed)
	if err == nil {
		return trimmed, nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return trimmed, []string{err.Error()}
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if msg, ok := fieldMessages[fe.StructField()][fe.Tag()]; ok {
			messages = append(messages, msg)
			continue
		}
		messages = append(messages, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return trimmed, messages
}
