// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

// Package validation provides struct validation using go-playground/validator
// v10. It exposes a thread-safe singleton validator and translates field
// errors into the messages sent back to websocket clients in error acks.
//
// Example usage:
//
//	var payload models.LocationUpdatePayload
//	if err := json.Unmarshal(event.Data, &payload); err == nil {
//	    if verr := validation.ValidateStruct(&payload); verr != nil {
//	        client.SendError("invalid locationUpdate: " + verr.Error())
//	        return
//	    }
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single field validation failure.
type FieldError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the struct field name that failed validation.
func (e *FieldError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *FieldError) Tag() string { return e.tag }

// Error returns a human-readable message.
func (e *FieldError) Error() string { return e.message }

// PayloadError is a collection of field errors for one decoded payload.
type PayloadError struct {
	errors []FieldError
}

// Fields returns the individual field errors.
func (pe *PayloadError) Fields() []FieldError { return pe.errors }

// Error joins all field messages; this is the string clients see in the
// error ack, so it stays short and concrete.
func (pe *PayloadError) Error() string {
	if len(pe.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(pe.errors))
	for i, err := range pe.errors {
		messages[i] = err.message
	}
	return strings.Join(messages, "; ")
}

// Validator returns the singleton validator instance. Thread-safe; the
// instance caches struct metadata across calls.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a struct against its validate tags. Returns nil
// on success, or a *PayloadError listing every failing field.
func ValidateStruct(s interface{}) *PayloadError {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &PayloadError{errors: []FieldError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	out := make([]FieldError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = FieldError{
			field:   fe.Field(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			message: translate(fe),
		}
	}
	return &PayloadError{errors: out}
}

var messageTemplates = map[string]string{
	"required":  "%s is required",
	"latitude":  "%s must be a valid latitude (-90 to 90)",
	"longitude": "%s must be a valid longitude (-180 to 180)",
}

var messageTemplatesWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
}

// translate converts a validator.FieldError to the message style used in
// client-facing error acks.
func translate(fe validator.FieldError) string {
	if template, ok := messageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field())
	}
	if template, ok := messageTemplatesWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
