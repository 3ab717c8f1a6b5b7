package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	// Pipeline taxonomy. Both are terminal for the page: the user has to take
	// a new photo, no automatic retry.
	ErrNoTextFound   = errors.New("no recognizable text")
	ErrNoChineseText = errors.New("no chinese text found")

	ErrExtractorOffline = errors.New("text extraction unavailable")
	ErrPageNotRetryable = errors.New("page not retryable")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsTerminalExtract(err error) bool {
	return errors.Is(err, ErrNoTextFound) || errors.Is(err, ErrNoChineseText)
}
