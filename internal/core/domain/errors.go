package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is reported by pure conversions fed with malformed input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingChannelData is reported when an aggregation needs a phase reading that is absent.
	ErrMissingChannelData = errors.New("missing channel data")
	// ErrStoreFault wraps any failure coming from the external state or metadata store.
	ErrStoreFault = errors.New("store fault")
	// ErrUnknownDevice is returned when a device id is not configured.
	ErrUnknownDevice = errors.New("unknown device")
)

type MissingChannelDataError struct {
	Phase int
	Field EmeterField
}

func (e MissingChannelDataError) Error() string {
	return fmt.Sprintf("missing channel data: Emeter%d.%s", e.Phase, e.Field)
}

func (e MissingChannelDataError) Is(target error) bool {
	return target == ErrMissingChannelData
}

type StoreFaultError struct {
	Op  string
	Key string
	Err error
}

func (e StoreFaultError) Error() string {
	return fmt.Sprintf("store fault: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e StoreFaultError) Is(target error) bool {
	return target == ErrStoreFault
}

func (e StoreFaultError) Unwrap() error {
	return e.Err
}

func NewStoreFault(op, key string, err error) error {
	return StoreFaultError{Op: op, Key: key, Err: err}
}

func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
