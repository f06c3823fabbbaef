package domain

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// DefaultPrefix is assumed whenever a stored value carries no readable prefix.
	DefaultPrefix = "ACT"

	sequenceWidth = 6
)

var (
	// ErrStoreUnavailable marks transient I/O failures against the backing store.
	ErrStoreUnavailable = errors.New("backing store unavailable")

	// ErrMalformedValue marks a stored value the lenient parser could not fully
	// recover. Callers fall back to the parsed defaults and log a warning.
	ErrMalformedValue = errors.New("malformed control number")
)

// ControlNumber is a human-readable sequential identifier like "ACT000042".
type ControlNumber struct {
	Prefix   string
	Sequence int
}

// Formatted renders the prefix plus the sequence zero-padded to 6 digits.
// Sequences past 999999 simply widen.
func (c ControlNumber) Formatted() string {
	return fmt.Sprintf("%s%0*d", c.Prefix, sequenceWidth, c.Sequence)
}

// Next returns the successor within the same prefix.
func (c ControlNumber) Next() ControlNumber {
	return ControlNumber{Prefix: c.Prefix, Sequence: c.Sequence + 1}
}

// ParseControlNumber leniently decodes a stored value. The leading alphabetic
// run becomes the prefix (DefaultPrefix when absent) and every digit character
// in the string, wherever it sits, contributes to the sequence. This tolerates
// formatting drift in the stored cell at the cost of not distinguishing
// variants like "ACT-00-01" from "ACT0001".
//
// A usable ControlNumber is always returned. The error is ErrMalformedValue
// when defaults had to be substituted, so callers can log the recovery.
func ParseControlNumber(raw string) (ControlNumber, error) {
	i := 0
	for i < len(raw) && isAlpha(raw[i]) {
		i++
	}
	prefix := raw[:i]

	digits := make([]byte, 0, sequenceWidth)
	for j := i; j < len(raw); j++ {
		if raw[j] >= '0' && raw[j] <= '9' {
			digits = append(digits, raw[j])
		}
	}

	cn := ControlNumber{Prefix: prefix}
	malformed := false

	if prefix == "" {
		cn.Prefix = DefaultPrefix
		malformed = true
	}

	if len(digits) == 0 {
		malformed = true
	} else {
		seq, err := strconv.Atoi(string(digits))
		if err != nil || seq < 0 {
			malformed = true
		} else {
			cn.Sequence = seq
		}
	}

	if malformed {
		return cn, fmt.Errorf("%w: %q", ErrMalformedValue, raw)
	}
	return cn, nil
}

func isAlpha(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
