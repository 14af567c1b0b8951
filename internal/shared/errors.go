package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrUnauthorized     = fmt.Errorf("session expired or unauthorized")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrSessionClosed    = fmt.Errorf("session closed")
	ErrSuperseded       = fmt.Errorf("superseded by a later request")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrDeviceNotFound     = fmt.Errorf("device not found")

	// Catalog errors
	ErrCatalogFetch   = fmt.Errorf("catalog could not be fetched")
	ErrCardNotFound   = fmt.Errorf("card not found in catalog")
	ErrNoPlayableLink = fmt.Errorf("no playable track link for card")
	ErrMalformedRow   = fmt.Errorf("malformed catalog row")

	// Playback errors
	ErrNoDeviceSelected   = fmt.Errorf("no playback device selected")
	ErrNoPlaylistSelected = fmt.Errorf("no playlist selected")
	ErrEmptyPlaylist      = fmt.Errorf("playlist has no playable tracks")
	ErrPlayback           = fmt.Errorf("playback request failed")
	ErrDeviceTransfer     = fmt.Errorf("failed to transfer playback to device")

	// Scanner errors
	ErrScannerRunning = fmt.Errorf("scanner already running")
	ErrScannerClosed  = fmt.Errorf("scanner input closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")

	// Persistence errors
	ErrRecordNotFound = fmt.Errorf("record not found")
)
