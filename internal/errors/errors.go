// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInputValidation = errors.New("input validation failed")
	ErrConfigInvalid   = errors.New("invalid configuration")
	ErrDataNotFound    = errors.New("data not found")
	ErrDatabaseError   = errors.New("database error")

	// Paper trading rejections, in the order openTrade checks them.
	ErrInstrumentRequired  = errors.New("instrument not selected")
	ErrStrategyRequired    = errors.New("strategy not selected")
	ErrStrategyNotFound    = errors.New("strategy does not exist")
	ErrDuplicateInstrument = errors.New("instrument already has an open trade")
	ErrCapacityReached     = errors.New("maximum open trades reached")

	ErrTradeNotFound     = errors.New("trade not found")
	ErrPipsRequired      = errors.New("pips or percent required")
	ErrInvalidOutcome    = errors.New("invalid outcome")
	ErrNoPendingReview   = errors.New("no trade awaiting review")
	ErrReviewOutOfOrder  = errors.New("another trade is awaiting review first")
	ErrStrategyExists    = errors.New("strategy already exists")
	ErrInstrumentExists  = errors.New("instrument already exists")
	ErrInvalidImportData = errors.New("invalid data format")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match every validation failure with ErrInputValidation.
func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// TradeError represents a rejected paper trading operation.
type TradeError struct {
	TradeID    string
	Instrument string
	Action     string
	Err        error
}

func (e *TradeError) Error() string {
	switch {
	case e.TradeID != "":
		return fmt.Sprintf("trade error [%s] %s: %v", e.TradeID, e.Action, e.Err)
	case e.Instrument != "":
		return fmt.Sprintf("trade error %s %s: %v", e.Action, e.Instrument, e.Err)
	default:
		return fmt.Sprintf("trade error %s: %v", e.Action, e.Err)
	}
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError creates a new TradeError.
func NewTradeError(tradeID, instrument, action string, err error) *TradeError {
	return &TradeError{
		TradeID:    tradeID,
		Instrument: instrument,
		Action:     action,
		Err:        err,
	}
}

// StoreError represents a persistence failure for a single key.
type StoreError struct {
	Key       string
	Operation string
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s] %s: %v", e.Key, e.Operation, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports StoreError as a database error regardless of the cause.
func (e *StoreError) Is(target error) bool {
	return target == ErrDatabaseError
}

// NewStoreError creates a new StoreError.
func NewStoreError(key, operation string, err error) *StoreError {
	return &StoreError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	Key      string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Key, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Key, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, key, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Key:      key,
		Message:  message,
		Err:      err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
