package models

import "errors"

var (
	// ErrInvalidRequest is returned for malformed ranking requests such as an empty candidate set.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrProfileMismatch is returned when a profile belongs to a different user than the request.
	ErrProfileMismatch = errors.New("profile does not match request user")

	// ErrFeatureUnavailable marks a failed or malformed item feature lookup.
	ErrFeatureUnavailable = errors.New("item features unavailable")

	// ErrDataIntegrity is returned when a behavior record is missing required fields.
	ErrDataIntegrity = errors.New("behavior record failed integrity check")
)
