package api

import "errors"

var (
	ErrUnavailable    = errors.New("server unavailable")
	ErrNoStoredTokens = errors.New("no stored session tokens")
)
