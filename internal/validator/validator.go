package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fiercfly/proteinHunt/internal/models"
)

// Validator is a wrapper around the validator library.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance with the deal record rules registered.
func New() *Validator {
	v := validator.New()
	v.RegisterStructValidation(dealStructLevel, models.Deal{})
	return &Validator{
		validate: v,
	}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// dealStructLevel checks the cross-field rules: only manual submissions carry
// a submitter, and the vote counter matches its seed plus the voter set.
func dealStructLevel(sl validator.StructLevel) {
	d := sl.Current().Interface().(models.Deal)

	manual := d.Source == models.SourceManual
	if manual && d.SubmittedBy == "" {
		sl.ReportError(d.SubmittedBy, "SubmittedBy", "submittedBy", "required_for_manual", "")
	}
	if !manual && d.SubmittedBy != "" {
		sl.ReportError(d.SubmittedBy, "SubmittedBy", "submittedBy", "manual_only", "")
	}
	if d.Votes != d.SourceScore+len(d.VotedBy) {
		sl.ReportError(d.Votes, "Votes", "votes", "matches_voters", "")
	}
}
