package domain

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotFound             = errors.New("not found")
	ErrExhausted            = errors.New("capacity exhausted")
	ErrConflict             = errors.New("conflict")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrCampaignNotAccepting = errors.New("campaign not accepting donations")
	ErrAlreadySubscribed    = errors.New("already subscribed")
	ErrExternalService      = errors.New("payment provider failure")
)
