package servicerequest

import "errors"

var (
	ErrNotFound        = errors.New("service request not found")
	ErrConsentRequired = errors.New("data storage consent is required")
	ErrMissingID       = errors.New("request id is required")
	ErrInvalidStatus   = errors.New("invalid service request status")
)
