package limiter

import "time"

// Recorder receives limiter events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveDecision(alg Algorithm, id string, allowed bool, elapsed time.Duration)
	ObserveError(alg Algorithm, id string)
	ObserveReload(routine string)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) ObserveDecision(Algorithm, string, bool, time.Duration) {}
func (NopRecorder) ObserveError(Algorithm, string)                        {}
func (NopRecorder) ObserveReload(string)                                  {}
