package core

import (
	"fmt"
)

type ErrorNotFound struct {
}

func (e ErrorNotFound) Error() string {
	return "Not Found"
}

func NewErrorNotFound() ErrorNotFound {
	return ErrorNotFound{}
}

type ErrorPermissionDenied struct {
}

func (e ErrorPermissionDenied) Error() string {
	return "Permission Denied"
}

func NewErrorPermissionDenied() ErrorPermissionDenied {
	return ErrorPermissionDenied{}
}

type ErrorNotConnected struct {
}

func (e ErrorNotConnected) Error() string {
	return "Not Connected"
}

func NewErrorNotConnected() ErrorNotConnected {
	return ErrorNotConnected{}
}

// ErrorTransport means the event store or hub could not be reached
type ErrorTransport struct {
	Op    string
	Cause error
}

func (e ErrorTransport) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("Transport Error (%s)", e.Op)
	}
	return fmt.Sprintf("Transport Error (%s): %v", e.Op, e.Cause)
}

func (e ErrorTransport) Unwrap() error {
	return e.Cause
}

func NewErrorTransport(op string, cause error) ErrorTransport {
	return ErrorTransport{Op: op, Cause: cause}
}

// ErrorPublish means an emitted event was rejected or not acknowledged.
// Partial is set when an earlier event of the same operation was published.
type ErrorPublish struct {
	EventID string
	Kind    int
	Partial bool
	Cause   error
}

func (e ErrorPublish) Error() string {
	msg := fmt.Sprintf("Publish Error (kind %d, id %s)", e.Kind, e.EventID)
	if e.Partial {
		msg += " after partial success"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e ErrorPublish) Unwrap() error {
	return e.Cause
}

func NewErrorPublish(event Event, partial bool, cause error) ErrorPublish {
	return ErrorPublish{
		EventID: event.ID,
		Kind:    event.Kind,
		Partial: partial,
		Cause:   cause,
	}
}

type ErrorMalformedEvent struct {
	EventID string
	Cause   error
}

func (e ErrorMalformedEvent) Error() string {
	return fmt.Sprintf("Malformed Event (%s): %v", e.EventID, e.Cause)
}

func (e ErrorMalformedEvent) Unwrap() error {
	return e.Cause
}

func NewErrorMalformedEvent(eventID string, cause error) ErrorMalformedEvent {
	return ErrorMalformedEvent{EventID: eventID, Cause: cause}
}
