package enverr

import "errors"

var (
	// Build/config
	ErrUnknownDriver   = errors.New("unknown_driver")
	ErrUnknownBus      = errors.New("unknown_bus")
	ErrDuplicateID     = errors.New("duplicate_id")
	ErrMissingID       = errors.New("missing_id")
	ErrInvalidInterval = errors.New("invalid_interval")
	ErrInvalidValue    = errors.New("invalid_value")

	// Service
	ErrInitFailed    = errors.New("init_failed")
	ErrReadFailed    = errors.New("read_failed")
	ErrUnknownSensor = errors.New("unknown_sensor")
)
