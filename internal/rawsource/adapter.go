package rawsource

import "fmt"

// DecodeError marks a malformed payload that must be moved to the dead-
// letter destination and never retried (§4.1 "Failure").
type DecodeError struct {
	Source string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode error: %s", e.Source, e.Reason)
}

// Adapter is the contract every raw-source implements (§4.1): normalize a
// producer payload into a RawMessage, or fail with a DecodeError.
type Adapter interface {
	IntoRawMessage(payload []byte) (RawMessage, error)
}

// Kind selects which Adapter to construct (§6 "indexing_source").
type Kind string

const (
	KindGoldSky    Kind = "goldsky"
	KindSubstreams Kind = "substreams"
)

// New selects the configured source adapter (§4.1, §9 "Trait-based source
// adapters... selected at startup by configuration").
func New(kind Kind) (Adapter, error) {
	switch kind {
	case KindGoldSky:
		return CDCAdapter{}, nil
	case KindSubstreams:
		return SubstreamsAdapter{}, nil
	default:
		return nil, fmt.Errorf("unknown indexing source %q", kind)
	}
}
