package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidDonation     = errors.New("invalid donation")
	ErrInvalidOverride     = errors.New("invalid override")
	ErrActuatorUnavailable = errors.New("actuator unavailable")
	ErrQueueClosed         = errors.New("queue closed")
)
