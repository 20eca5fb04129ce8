// Package provider turns raw air-quality provider payloads into canonical
// reading candidates.
package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Kind selects the payload format a provider speaks
type Kind int

const (
	KindUnknown Kind = iota
	KindAQICN
	KindGoogle
	KindIQAir
)

var (
	// ErrUnknownKind is returned when no parser exists for a provider kind
	ErrUnknownKind = errors.New("unknown provider kind")
	// ErrUnrecognizedPayload is returned when a payload lacks the fields its
	// kind requires
	ErrUnrecognizedPayload = errors.New("unrecognized provider payload")
)

func (k Kind) String() string {
	switch k {
	case KindAQICN:
		return "aqicn"
	case KindGoogle:
		return "google"
	case KindIQAir:
		return "iqair"
	default:
		return "unknown"
	}
}

// ParseKind maps an explicit kind name to a Kind
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aqicn", "waqi":
		return KindAQICN, nil
	case "google", "google_aq", "googleaq":
		return KindGoogle, nil
	case "iqair", "airvisual":
		return KindIQAir, nil
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// DetectKind guesses the kind from a free-text provider name. It returns
// KindUnknown when the name matches no known family.
func DetectKind(name string) Kind {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "aqicn"), strings.Contains(n, "waqi"):
		return KindAQICN
	case strings.Contains(n, "google"):
		return KindGoogle
	case strings.Contains(n, "iqair"), strings.Contains(n, "airvisual"):
		return KindIQAir
	}
	return KindUnknown
}

// ResolveKind uses explicit when set, otherwise detects the kind from name
func ResolveKind(explicit, name string) (Kind, error) {
	if strings.TrimSpace(explicit) != "" {
		return ParseKind(explicit)
	}
	return DetectKind(name), nil
}
