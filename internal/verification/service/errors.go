package service

import (
	"errors"

	"github.com/mohammad-issa2020/backend-7awell-sub001/internal/sentinel"
	dErrors "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain-errors"
)

// errSessionNotFound is the uniform answer for unknown, expired, consumed,
// and foreign sessions; callers learn nothing about which case they hit.
func errSessionNotFound() error {
	return dErrors.New(dErrors.CodeSessionNotFound, "session not found or expired")
}

// translateStoreError converts store-boundary sentinels into domain errors.
// Domain errors raised by session mutators pass through untouched.
func translateStoreError(err error) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, sentinel.ErrExpired):
		return errSessionNotFound()
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "session state conflict")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "session store failure")
}
