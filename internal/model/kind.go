package model

import (
	"errors"
	"strings"
)

// Kind selects which MEL a workflow produces.  The kind only changes which
// remote endpoints are used; the step sequence is identical for both.
type Kind string

const (
	KindInitial Kind = "initial"
	KindFinal   Kind = "final"
)

// ErrUnknownKind is returned when a roster kind is neither initial nor final.
var ErrUnknownKind = errors.New("unknown roster kind")

// ParseKind accepts "initial" or "final" in any case.  An empty string
// yields KindInitial, which is the default tab of the workflow.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindInitial:
		return KindInitial, nil
	case KindFinal:
		return KindFinal, nil
	}
	return "", ErrUnknownKind
}

// Label is the human form used in messages ("Initial", "Final").
func (k Kind) Label() string {
	if k == KindFinal {
		return "Final"
	}
	return "Initial"
}
