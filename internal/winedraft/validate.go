package winedraft

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/cellarfront/internal/domain"
)

const (
	MsgNameRequired    = "Naam is verplicht"
	MsgVintageRequired = "Jaargang is verplicht"
	MsgNoGrapes        = "Voeg minstens 1 druivenras toe."
)

var ErrNoGrapes = errors.New(MsgNoGrapes)

// requiredFields lists the only checks made before saving. Field order is
// the order in which problems are reported.
type requiredFields struct {
	Name    string         `validate:"required"`
	Vintage int            `validate:"required"`
	Grapes  []domain.Grape `validate:"min=1"`
}

var messages = map[string]string{
	"Name":    MsgNameRequired,
	"Vintage": MsgVintageRequired,
	"Grapes":  MsgNoGrapes,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError names the first missing required field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks that the draft has a name, a vintage and at least one
// grape.
func Validate(w domain.Wine) error {
	err := validate.Struct(requiredFields{Name: w.Name, Vintage: w.Vintage, Grapes: w.Grapes})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	field := verrs[0].Field()
	return &ValidationError{Field: field, Message: messages[field]}
}
