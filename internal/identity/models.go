package identity

import (
	"time"

	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

// Account is the durable principal resolved or created at login completion.
// CRUD beyond phone changes lives in the managed data store, not here.
type Account struct {
	ID        id.AccountID
	Phone     string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is the opaque bearer token issued after a completed login.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}
