package utils

import (
	"log/slog"
	"os"
	"regexp"
)

var (
	// key=VALUE, api_key=VALUE, apiKey=VALUE, api-key=VALUE in URL query parameters
	keyPattern = regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key)=([^&\s"]+)`)
	// Authorization: Bearer tokens
	bearerPattern = regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`)
	// service-account JSON fields, with or without escaped quotes
	serviceAccountPattern = regexp.MustCompile(`(\\?"(?:private_key|private_key_id|client_secret|refresh_token)\\?"\s*:\s*\\?")((?:[^"\\]|\\[^"])*)(\\?")`)
)

// MaskSensitiveData masks API keys and service-account secrets in strings
// This is used to prevent accidental logging of credentials in error messages
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}

	s = keyPattern.ReplaceAllString(s, `${1}${2}=***MASKED***`)
	s = bearerPattern.ReplaceAllString(s, `Bearer ***MASKED***`)
	s = serviceAccountPattern.ReplaceAllString(s, `${1}***MASKED***${3}`)

	return s
}

// MaskSensitiveError wraps an error and masks sensitive data when the error is converted to string
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
