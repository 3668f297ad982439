package contracts

import "errors"

// Pipeline error taxonomy; wrap with fmt.Errorf("...: %w", Err...) and test with errors.Is
var (
	// ErrUpstreamData: providers returned no bars for the requested symbols
	ErrUpstreamData = errors.New("upstream data error")

	// ErrPersistence: a storage write failed
	ErrPersistence = errors.New("persistence error")

	// ErrComputation: input to indicator or scoring math was malformed
	ErrComputation = errors.New("computation error")

	// ErrRunNotFound: no ledger row with that run id
	ErrRunNotFound = errors.New("run not found")

	// ErrRunNotRunning: the run already left RUNNING
	ErrRunNotRunning = errors.New("run is not RUNNING")
)
