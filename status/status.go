// Package status defines the application status codes and the typed errors
// built on top of them. Every failure that can surface to the user maps to a
// Code with a stable, user-facing message; callers attach extra context with
// New and match with errors.Is against the sentinel of the same code.
package status

import "fmt"

// Code identifies a distinct application status.
type Code int

const (
	Unknown Code = iota
	Okay

	// Configuration.
	LedgerConfigNotFound
	LedgerConfigInvalid

	// Authentication.
	ClientSecretNotFound
	ClientSecretInvalid
	CredsNotFound
	CredsInvalid
	NotAuthenticated

	// Spreadsheet access.
	SpreadsheetIDNotConfigured
	WorksheetNotConfigured
	SpreadsheetNotFound
	WorksheetNotFound
	SpreadsheetEmpty
	ServiceUnavailable

	// Data configuration.
	HeadersInvalid
	MappingInvalid
	CategoriesInvalid

	// Local cache.
	CacheInvalid
)

var messages = map[Code]string{
	Unknown: "Unknown status. Please check the settings.",
	Okay:    "Everything is okay.",

	LedgerConfigNotFound: "Could not find the ledger config.",
	LedgerConfigInvalid:  "The ledger config seems to be incomplete, or contains invalid values.",

	ClientSecretNotFound: "Could not find the Google client secret. Have you set up a valid Google client secret?",
	ClientSecretInvalid:  "Could not verify the client secret. Have you set up a valid Google client secret?",
	CredsNotFound:        "Could not find the credentials. Please sign in to your Google account.",
	CredsInvalid:         "Could not verify the credentials. Please sign in again to your Google account.",
	NotAuthenticated:     "Authentication error. Try signing in again to your Google account.",

	SpreadsheetIDNotConfigured: "Could not find a valid spreadsheet id. Have you set one up in the settings?",
	WorksheetNotConfigured:     "Worksheet name could not be found. Have you set one up in the settings?",
	SpreadsheetNotFound:        "Could not find the spreadsheet. Have you set up a valid spreadsheet id in the settings?",
	WorksheetNotFound:          "Could not find the worksheet. Have you set up a valid worksheet name in the settings?",
	SpreadsheetEmpty:           "The spreadsheet is empty. No data found.",
	ServiceUnavailable:         "Google Sheets service is unavailable. Please check your connection.",

	HeadersInvalid:    "Are the spreadsheet's headers set up correctly?",
	MappingInvalid:    "The header mapping seems to be incomplete, or contains invalid values.",
	CategoriesInvalid: "The categories seem to be incomplete, or contain invalid values.",

	CacheInvalid: "The cache is invalid. Try fetching the data from the source again.",
}

// Message returns the user-facing message for a code.
func Message(c Code) string {
	if msg, ok := messages[c]; ok {
		return msg
	}
	return messages[Unknown]
}

// Error is a status-coded error. Two Errors with the same Code match under
// errors.Is regardless of their detail text, so packages can return
// status.New(status.CacheInvalid, "...") and callers can test against
// status.ErrCacheInvalid.
type Error struct {
	Code   Code
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s", Message(e.Code), e.Detail)
	}
	return Message(e.Code)
}

// Is reports whether target is a status error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// New creates a status error with additional detail.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Err creates a bare status error carrying only the code's message.
func Err(code Code) *Error {
	return &Error{Code: code}
}

// Wrap creates a status error that wraps an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...), cause: cause}
}

// Sentinels for errors.Is matching.
var (
	ErrLedgerConfigNotFound = Err(LedgerConfigNotFound)
	ErrLedgerConfigInvalid  = Err(LedgerConfigInvalid)

	ErrClientSecretNotFound = Err(ClientSecretNotFound)
	ErrClientSecretInvalid  = Err(ClientSecretInvalid)
	ErrCredsNotFound        = Err(CredsNotFound)
	ErrCredsInvalid         = Err(CredsInvalid)
	ErrNotAuthenticated     = Err(NotAuthenticated)

	ErrSpreadsheetIDNotConfigured = Err(SpreadsheetIDNotConfigured)
	ErrWorksheetNotConfigured     = Err(WorksheetNotConfigured)
	ErrSpreadsheetNotFound        = Err(SpreadsheetNotFound)
	ErrWorksheetNotFound          = Err(WorksheetNotFound)
	ErrSpreadsheetEmpty           = Err(SpreadsheetEmpty)
	ErrServiceUnavailable         = Err(ServiceUnavailable)

	ErrHeadersInvalid    = Err(HeadersInvalid)
	ErrMappingInvalid    = Err(MappingInvalid)
	ErrCategoriesInvalid = Err(CategoriesInvalid)

	ErrCacheInvalid = Err(CacheInvalid)
)
