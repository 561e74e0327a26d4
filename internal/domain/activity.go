// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// OutcomeKind tags how a single fetch unit ended.
type OutcomeKind int

const (
	// Count means the upstream answered with a JSON array; N holds its length.
	Count OutcomeKind = iota
	// NotJSON means the upstream answered but declared a non-JSON content type.
	NotJSON
	// Failure covers transport errors, non-2xx statuses, undecodable bodies
	// and JSON that is not an array.
	Failure
)

// ErrorValue is the sentinel written to the report for a Failure outcome.
const ErrorValue = -1

// Outcome is the per-target result of one fetch unit.
type Outcome struct {
	Kind OutcomeKind
	N    int
}

// CountOf returns a Count outcome for a collection of n elements.
func CountOf(n int) Outcome { return Outcome{Kind: Count, N: n} }

// NotJSONOutcome returns the outcome recorded when the upstream is not JSON.
func NotJSONOutcome() Outcome { return Outcome{Kind: NotJSON} }

// FailureOutcome returns the outcome recorded for any unclassified failure.
func FailureOutcome() Outcome { return Outcome{Kind: Failure} }

// Value returns the scalar shown to clients: the count, nil or ErrorValue.
func (o Outcome) Value() *int {
	switch o.Kind {
	case Count:
		n := o.N
		return &n
	case NotJSON:
		return nil
	default:
		v := ErrorValue
		return &v
	}
}

func (o Outcome) String() string {
	switch o.Kind {
	case Count:
		return fmt.Sprintf("%d", o.N)
	case NotJSON:
		return "null"
	default:
		return fmt.Sprintf("%d", ErrorValue)
	}
}

// MarshalJSON encodes the outcome as an integer, null, or -1.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value())
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = NotJSONOutcome()
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode outcome: %w", err)
	}
	switch {
	case n == ErrorValue:
		*o = FailureOutcome()
	case n < 0:
		return fmt.Errorf("decode outcome: negative count %d", n)
	default:
		*o = CountOf(n)
	}
	return nil
}

// ActivityReport maps each target name to its outcome. One entry per
// configured target, built fresh for every request.
type ActivityReport map[string]Outcome

// Failed returns the sorted names whose outcome is Failure.
func (r ActivityReport) Failed() []string {
	var names []string
	for name, o := range r {
		if o.Kind == Failure {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Counts returns the values of every Count entry, ordered by target name.
func (r ActivityReport) Counts() []int {
	names := make([]string, 0, len(r))
	for name, o := range r {
		if o.Kind == Count {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	counts := make([]int, 0, len(names))
	for _, name := range names {
		counts = append(counts, r[name].N)
	}
	return counts
}
