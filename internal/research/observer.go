package research

import "time"

// SearchOutcome names which step of the fallback chain produced documents.
type SearchOutcome string

const (
	SearchPrimary   SearchOutcome = "primary"
	SearchSecondary SearchOutcome = "secondary"
	SearchSynthetic SearchOutcome = "synthetic"
)

// Observer receives run telemetry. Implementations must be safe for
// concurrent use; runs share one observer.
type Observer interface {
	NodeFinished(state State, elapsed time.Duration, err error)
	SearchFinished(outcome SearchOutcome, documents int)
	RunFinished(entityType EntityType, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) NodeFinished(State, time.Duration, error)     {}
func (nopObserver) SearchFinished(SearchOutcome, int)            {}
func (nopObserver) RunFinished(EntityType, time.Duration, error) {}
