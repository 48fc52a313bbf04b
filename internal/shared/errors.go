package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Store errors
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrItemNotFound    = fmt.Errorf("queue item not found")
	ErrItemNotInFlight = fmt.Errorf("queue item is not downloading")
	ErrDatabaseBusy    = fmt.Errorf("database is busy")

	// API and platform errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrMalformedResponse  = fmt.Errorf("malformed response")
	ErrPlatform           = fmt.Errorf("platform error")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrCancelled          = fmt.Errorf("operation cancelled")

	// Resolution errors
	ErrNoAcceptableSource = fmt.Errorf("no acceptable source found")
	ErrLowQuality         = fmt.Errorf("file rejected by quality gate")
	ErrMismatch           = fmt.Errorf("source metadata does not match request")
	ErrUnreadableAudio    = fmt.Errorf("audio duration unreadable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
