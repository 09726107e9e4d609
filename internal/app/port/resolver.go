package port

import "context"

// AddressResolver turns user input (raw hex or a name ending in ".eth")
// into a canonical 0x-form address. Invalid input or a failed name lookup
// yields an *entity.ResolutionError.
type AddressResolver interface {
	Resolve(ctx context.Context, input string) (string, error)
}
