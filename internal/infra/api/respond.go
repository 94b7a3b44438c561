package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"discount-pin-service/internal/domain"
	"discount-pin-service/internal/infra/logging"
)

type errorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Scope     string            `json:"scope,omitempty"`
	Max       *int              `json:"max,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorKind struct {
	err    error
	code   string
	status int
}

// errorKinds is checked in order; the first match wins.
var errorKinds = []errorKind{
	{domain.ErrMalformedCode, "malformed_code", http.StatusUnprocessableEntity},
	{domain.ErrCodeNotFound, "code_not_found", http.StatusUnprocessableEntity},
	{domain.ErrCodeExpired, "code_expired", http.StatusUnprocessableEntity},
	{domain.ErrDiscountsNotIncluded, "discounts_not_included", http.StatusUnprocessableEntity},
	{domain.ErrOfferNotFound, "offer_not_found", http.StatusUnprocessableEntity},
	{domain.ErrOfferInactive, "offer_inactive", http.StatusUnprocessableEntity},
	{domain.ErrOfferNotYetStarted, "offer_not_yet_started", http.StatusUnprocessableEntity},
	{domain.ErrOfferExpired, "offer_expired", http.StatusUnprocessableEntity},
	{domain.ErrPlanTierInsufficient, "plan_tier_insufficient", http.StatusUnprocessableEntity},
	{domain.ErrExclusiveOfferRestricted, "exclusive_offer_restricted", http.StatusUnprocessableEntity},
	{domain.ErrOfferNotApplicableToTarget, "offer_not_applicable", http.StatusUnprocessableEntity},
	{domain.ErrUsageLimitExceeded, "usage_limit_exceeded", http.StatusUnprocessableEntity},
	{domain.ErrInvitationExpired, "invitation_expired", http.StatusUnprocessableEntity},
	{domain.ErrSelfInvitation, "self_invitation", http.StatusUnprocessableEntity},
	{domain.ErrFamilyFull, "family_full", http.StatusUnprocessableEntity},
	{domain.ErrPlanNotPaid, "plan_not_paid", http.StatusUnprocessableEntity},
	{domain.ErrFamilySeatsInUse, "family_seats_in_use", http.StatusConflict},
	{domain.ErrInvalidArgument, "invalid_argument", http.StatusUnprocessableEntity},
	{domain.ErrPersistenceFailure, "persistence_failure", http.StatusServiceUnavailable},
	{domain.ErrNotFound, "not_found", http.StatusNotFound},
	{domain.ErrAlreadyExists, "conflict", http.StatusConflict},
}

// errorCode returns the stable code for err, or "internal".
func errorCode(err error) (string, int) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.code, k.status
		}
	}
	return "internal", http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	code, status := errorCode(err)
	body := errorBody{Error: err.Error(), Code: code}

	var le *domain.UsageLimitError
	if errors.As(err, &le) {
		body.Scope = string(le.Scope)
		max := le.Max
		body.Max = &max
	}
	var pe *domain.PersistenceError
	if errors.As(err, &pe) {
		body.Retryable = pe.Retryable()
		body.Error = "temporary storage failure, look the receipt up before retrying"
	}
	if status == http.StatusInternalServerError {
		l := logging.With(r.Context(), logger)
		l.Error().Err(err).Msg("unhandled error")
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// decodeJSON decodes a bounded body into dest and validates it. On failure it
// writes the response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Code: "bad_request"})
		return false
	}
	if err := validate.Struct(dest); err != nil {
		body := errorBody{Error: "validation failed", Code: "invalid_argument"}
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			body.Fields = map[string]string{}
			for _, fe := range ves {
				body.Fields[fe.Field()] = validationMessage(fe)
			}
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is empty", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}
