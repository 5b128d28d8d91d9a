// Package header extracts request-sourced header values from inbound calls
// and rebuilds the outbound header set from the manifest's header rules.
package header

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/xraph/interceder/manifest"
)

var (
	// ErrMissing is wrapped by *MissingError.
	ErrMissing = errors.New("header: missing required header")

	// ErrAlignment is wrapped by *AlignmentError.
	ErrAlignment = errors.New("header: extracted values do not align with header rules")
)

// MissingError reports a required inbound header that was not present.
type MissingError struct {
	Name string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("header: missing required header %q", e.Name)
}

func (e *MissingError) Unwrap() error { return ErrMissing }

// AlignmentError reports that the number of extracted values differs from
// the number of request-sourced slots in the manifest.
type AlignmentError struct {
	Extracted int
	Expected  int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("header: %d extracted values for %d request-sourced slots", e.Extracted, e.Expected)
}

func (e *AlignmentError) Unwrap() error { return ErrAlignment }

// Pair is a single outbound header.
type Pair struct {
	Name  string
	Value string
}

// Extract returns the first value of every header named by
// m.RequestHeaders, in order.
func Extract(h http.Header, m *manifest.Manifest) ([]string, error) {
	names := m.RequestHeaders()
	values := make([]string, 0, len(names))

	for _, name := range names {
		vs := h.Values(name)
		if len(vs) == 0 {
			return nil, &MissingError{Name: name}
		}
		values = append(values, vs[0])
	}

	return values, nil
}
