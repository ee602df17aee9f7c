package ports

import "errors"

// Error taxonomy of the online core. Benign and recoverable conditions are
// absorbed where they occur and surfaced only as counters; fatal conditions
// transition the session to Faulted and require an explicit Stop/Start.
var (
	// ErrConfig is returned by Start when the configuration is rejected.
	// No session is created.
	ErrConfig = errors.New("brainflow: invalid configuration")

	// ErrInsufficientData is returned by a ring read before enough samples
	// have been written. Benign; the windower skips the tick and retries.
	ErrInsufficientData = errors.New("brainflow: insufficient data")

	// ErrOverrun is returned by a ring read when the requested range has
	// already been overwritten by the acquisition side.
	ErrOverrun = errors.New("brainflow: window overwritten before read")

	// ErrDecode indicates the bound model rejected the window shape. Fatal:
	// the session's configured shape contract is broken.
	ErrDecode = errors.New("brainflow: model rejected window")

	// ErrSourceDisconnected indicates the sample source stopped producing
	// without a stop request. Fatal.
	ErrSourceDisconnected = errors.New("brainflow: sample source disconnected")
)
