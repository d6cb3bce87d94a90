package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrValidation indicates invalid input parameters, rejected locally
	// before any ledger store call
	ErrValidation = errors.New("validation failed")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)

// Ledger store boundary errors

var (
	// ErrLedgerConflict indicates the requested change contradicts current
	// ledger state (e.g. scaling out more than the open quantity)
	ErrLedgerConflict = errors.New("ledger conflict")

	// ErrTransport indicates a network or auth failure talking to the
	// ledger store; surfaced verbatim, the engine never retries
	ErrTransport = errors.New("ledger store transport failure")

	// ErrPositionNotFound indicates position not found
	ErrPositionNotFound = errors.New("position not found")

	// ErrPositionClosed indicates a mutating operation against a closed position
	ErrPositionClosed = errors.New("position already closed")

	// ErrAdjustmentNotFound indicates adjustment not found
	ErrAdjustmentNotFound = errors.New("adjustment not found")
)

// Admission control errors

var (
	// ErrAdmissionRejected is the parent of every admission rejection
	ErrAdmissionRejected = errors.New("admission rejected")
)

// AdmissionReason identifies why admission control rejected an operation.
type AdmissionReason string

const (
	ReasonPerTradeCapExceeded    AdmissionReason = "per_trade_cap_exceeded"
	ReasonDailyBudgetExceeded    AdmissionReason = "daily_budget_exceeded"
	ReasonMissingRiskInputs      AdmissionReason = "missing_risk_inputs"
	ReasonMaxTradesPerDayReached AdmissionReason = "max_trades_per_day_reached"
)

// String returns string representation
func (r AdmissionReason) String() string {
	return string(r)
}

// AdmissionError carries the rejection reason together with the numeric
// figures that caused it, so callers can show the user exactly which
// budget was violated and by how much.
type AdmissionError struct {
	Reason  AdmissionReason
	Risk    decimal.Decimal // proposed risk for the evaluated position, $
	Limit   decimal.Decimal // the budget the risk was checked against, $
	Message string
}

// Error implements the error interface
func (e *AdmissionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("admission rejected: %s: %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("admission rejected: %s: risk %s exceeds limit %s",
		e.Reason, e.Risk.StringFixed(2), e.Limit.StringFixed(2))
}

// Unwrap makes errors.Is(err, ErrAdmissionRejected) hold for every rejection
func (e *AdmissionError) Unwrap() error {
	return ErrAdmissionRejected
}

// NewAdmissionError creates an admission rejection with its figures
func NewAdmissionError(reason AdmissionReason, risk, limit decimal.Decimal) *AdmissionError {
	return &AdmissionError{Reason: reason, Risk: risk, Limit: limit}
}

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap makes errors.Is(err, ErrValidation) hold for field errors
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
