package profile

import "errors"

// ErrProfileMiss is returned by Cache reads when no profile is stored for
// the user. Callers rebuild from the signal store.
var ErrProfileMiss = errors.New("profile: not cached")
