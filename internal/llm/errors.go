package llm

import "errors"

var (
	// ErrCall indicates the provider call itself failed (transport, auth,
	// rate limit). The response never arrived.
	ErrCall = errors.New("llm call failed")

	// ErrDecode indicates the provider responded but the output could not be
	// decoded into, or validated against, the requested type.
	ErrDecode = errors.New("llm output invalid")
)
