package core

import "errors"

var (
	// ErrBackendUnavailable is returned when the localization backend cannot be reached
	ErrBackendUnavailable = errors.New("localization backend unavailable")
	// ErrBackendMalformedResponse is returned when the backend answers without usable translated text
	ErrBackendMalformedResponse = errors.New("localization backend returned a malformed response")
	// ErrCacheMiss is matched by cache repositories when no live entry exists for a key
	ErrCacheMiss = errors.New("translation not cached")
)
