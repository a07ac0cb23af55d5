package dedup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownPolicy is returned by ParsePolicy for names outside first/last/none.
var ErrUnknownPolicy = errors.New("unknown keep policy")

// KeepPolicy selects which rows of a duplicate group survive.
type KeepPolicy uint8

const (
	// KeepFirst keeps the earliest row of each group.
	KeepFirst KeepPolicy = iota + 1
	// KeepLast keeps the latest row of each group.
	KeepLast
	// KeepNone drops every row of any group with more than one member.
	KeepNone
)

// PolicyNames lists the accepted policy names in display order.
var PolicyNames = []string{"first", "last", "none"}

// ParsePolicy converts a user-supplied name into a KeepPolicy.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParsePolicy(s string) (KeepPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first":
		return KeepFirst, nil
	case "last":
		return KeepLast, nil
	case "none":
		return KeepNone, nil
	}
	return 0, fmt.Errorf("%w %q: must be one of %s", ErrUnknownPolicy, s, strings.Join(PolicyNames, ", "))
}

// Valid reports whether p is one of the defined policies.
func (p KeepPolicy) Valid() bool {
	return p >= KeepFirst && p <= KeepNone
}

// String returns the policy name.
func (p KeepPolicy) String() string {
	switch p {
	case KeepFirst:
		return "first"
	case KeepLast:
		return "last"
	case KeepNone:
		return "none"
	}
	return "policy(" + strconv.Itoa(int(p)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (p KeepPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, &ConfigurationError{Policy: p}
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *KeepPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
