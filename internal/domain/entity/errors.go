package entity

import "fmt"

// UpstreamError reports that a provider produced no usable data for a
// request. It wraps the first per-chain failure encountered during fan-out;
// individual chain failures that left partial data behind are logged, not
// surfaced.
type UpstreamError struct {
	Provider string
	Chain    string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Chain != "" {
		return fmt.Sprintf("provider %s failed on chain %s: %v", e.Provider, e.Chain, e.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ResolutionError reports that the user-supplied address input could not be
// resolved to a canonical 0x address. Surfaced immediately, no fetch is
// attempted.
type ResolutionError struct {
	Input  string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve address %q: %s", e.Input, e.Reason)
}
