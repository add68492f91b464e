// Package otp abstracts the external one-time-password provider. The core
// never sees codes in transit; it holds only the opaque methodId handle the
// provider returns for each issued challenge.
package otp

import (
	"context"

	id "github.com/mohammad-issa2020/backend-7awell-sub001/pkg/domain"
)

// Gateway is the OTP provider contract.
//
// Error Contract:
// - Send returns a methodId on success, or a gateway_error/timeout coded
//   error on transport or provider failure.
// - Authenticate returns (false, nil) when the provider explicitly rejects
//   the code; errors are reserved for transport/provider failures. Callers
//   must treat the two cases differently: only explicit rejections count as
//   verification failures.
type Gateway interface {
	Send(ctx context.Context, destination, channel string) (id.MethodID, error)
	Authenticate(ctx context.Context, methodID id.MethodID, code string) (bool, error)
}
