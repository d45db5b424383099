package service

import "errors"

// ErrUnknownUser means a match roster references a user with no profile row.
// Surfaced instead of silently defaulting so the bad data gets fixed upstream.
var ErrUnknownUser = errors.New("user has no profile record")
