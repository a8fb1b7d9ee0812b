package cartera

import (
	"errors"
	"fmt"
)

// Kind classifies report generation failures
type Kind string

const (
	KindInputEmpty  Kind = "input_empty"
	KindInFlight    Kind = "in_flight"
	KindComputation Kind = "computation"
	KindRendering   Kind = "rendering"
	KindDelivery    Kind = "delivery"
)

// Sentinel errors for errors.Is
var (
	ErrNoRecords = errors.New("No hay datos de créditos para generar el reporte.")
	ErrInFlight  = errors.New("Ya hay un reporte en generación. Espere a que termine.")
)

// Error is a report generation failure. UserMessage is meant to be shown
// to the end user as is.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cartera %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the Spanish notification for this failure
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindInputEmpty, KindInFlight:
		return e.Err.Error()
	case KindDelivery:
		return "El reporte se generó pero no pudo ser entregado: " + e.Err.Error()
	default:
		return "Error al generar el reporte: " + e.Err.Error()
	}
}

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// UserMessage extracts the end-user message from any error
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.UserMessage()
	}
	return "Error al generar el reporte: " + err.Error()
}
