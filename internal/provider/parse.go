package provider

import "fmt"

// Parse extracts reading candidates from one payload. Unknown kinds return
// ErrUnknownKind rather than guessing a format.
func Parse(kind Kind, p Payload) ([]Candidate, error) {
	if p.Data == nil {
		return nil, fmt.Errorf("%w: empty document", ErrUnrecognizedPayload)
	}
	switch kind {
	case KindAQICN:
		return parseAQICN(p)
	case KindGoogle:
		return parseGoogle(p)
	case KindIQAir:
		return parseIQAir(p)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}
