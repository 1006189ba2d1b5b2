package api

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mr1hm/go-trial-monitor/internal/apperr"
	"github.com/mr1hm/go-trial-monitor/internal/models"
)

// updateRequest is the body of POST /api/clinic/updates. Pointer fields let
// the binder tell a missing reading from a zero one.
type updateRequest struct {
	PatientCount *int     `json:"patientCount" binding:"required"`
	AvgFever     *float64 `json:"avgFever" binding:"required"`
	SideEffects  []string `json:"sideEffects"`
	Notes        string   `json:"notes"`
}

func (r updateRequest) toInput() models.UpdateInput {
	return models.UpdateInput{
		PatientCount: *r.PatientCount,
		AvgFever:     *r.AvgFever,
		SideEffects:  r.SideEffects,
		Notes:        r.Notes,
	}
}

// bindError turns a gin binding failure into a ValidationError naming the
// offending JSON field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		if f.Tag() == "required" {
			return apperr.Validation(jsonName(f.Field()), "is required")
		}
		return apperr.Validation(jsonName(f.Field()), "failed %q check", f.Tag())
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperr.Validation(typeErr.Field, "must be a %s, got %s", typeErr.Type, typeErr.Value)
	}

	return apperr.Validation("body", "malformed JSON")
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
