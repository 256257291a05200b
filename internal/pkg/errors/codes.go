package errors

// Error code constants.
// Errors carry code + params only, no message lookup tables.
// Clients key on the code; backend logs always in English.

// Station and sync-config error codes.
const (
	CodeStationNotFound    = "STATION_NOT_FOUND"
	CodeSyncConfigNotFound = "SYNC_CONFIG_NOT_FOUND"
	CodeSyncConfigExists   = "SYNC_CONFIG_EXISTS"
)

// Auth error codes.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
)

// Request error codes.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeInternalError  = "INTERNAL_ERROR"
)
