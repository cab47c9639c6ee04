package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable error code surfaced to callers.
type ErrorKind string

const (
	KindTargetNotFound         ErrorKind = "TargetNotFound"
	KindTargetAmbiguous        ErrorKind = "TargetAmbiguous"
	KindMissingParameter       ErrorKind = "MissingParameter"
	KindInvalidParameter       ErrorKind = "InvalidParameter"
	KindAlreadyDeployed        ErrorKind = "AlreadyDeployed"
	KindResourceUnavailable    ErrorKind = "ResourceUnavailable"
	KindNoDeployment           ErrorKind = "NoDeployment"
	KindTripNotFound           ErrorKind = "TripNotFound"
	KindTripClosed             ErrorKind = "TripClosed"
	KindSessionNotFound        ErrorKind = "SessionNotFound"
	KindSessionAlreadyResolved ErrorKind = "SessionAlreadyResolved"
	KindSessionExpired         ErrorKind = "SessionExpired"
	KindTransientStore         ErrorKind = "TransientStoreError"
	KindInternal               ErrorKind = "Internal"
)

// ConflictTrip identifies the trip that already holds a resource.
type ConflictTrip struct {
	TripID      int64  `json:"trip_id"`
	Label       string `json:"label"`
	ServiceDate string `json:"service_date"`
	ServiceTime string `json:"service_time"`
}

// ActionError is the error type of the action engine. Resource and
// ResourceID are set for ResourceUnavailable; Conflict carries the trip
// that holds the resource.
type ActionError struct {
	Kind       ErrorKind
	Msg        string
	Resource   string
	ResourceID int64
	Conflict   *ConflictTrip
	Err        error
}

func (e *ActionError) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *ActionError) Unwrap() error { return e.Err }

func NewActionError(kind ErrorKind, format string, args ...any) *ActionError {
	return &ActionError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ResourceUnavailable builds the error for a vehicle/driver already deployed
// to a trip inside the conflict window.
func ResourceUnavailable(resource string, id int64, conflict *ConflictTrip) *ActionError {
	msg := fmt.Sprintf("%s %d is not available", resource, id)
	if conflict != nil {
		msg = fmt.Sprintf("%s %d is already deployed to trip %d (%s %s %s)",
			resource, id, conflict.TripID, conflict.Label, conflict.ServiceDate, conflict.ServiceTime)
	}
	return &ActionError{Kind: KindResourceUnavailable, Msg: msg, Resource: resource, ResourceID: id, Conflict: conflict}
}

// KindOf returns the ErrorKind carried by err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if IsValidation(err) {
		return KindInvalidParameter
	}
	return KindInternal
}

// IsBusinessRule reports rejections that must not be retried automatically.
func IsBusinessRule(err error) bool {
	switch KindOf(err) {
	case KindAlreadyDeployed, KindResourceUnavailable, KindNoDeployment, KindTripClosed, KindTripNotFound:
		return true
	}
	return false
}

// IsClarification reports errors recovered into a clarification response.
func IsClarification(err error) bool {
	switch KindOf(err) {
	case KindTargetNotFound, KindTargetAmbiguous, KindMissingParameter, KindInvalidParameter:
		return true
	}
	return false
}

// ValidationError is a malformed request field.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}
