// Package sentinel defines store-boundary errors shared by all store
// implementations. Stores return these; services translate them into coded
// domain errors so transport never sees infrastructure detail.
package sentinel

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrExpired  = errors.New("expired")
	ErrConflict = errors.New("conflict")
)
