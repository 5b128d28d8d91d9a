package header

import (
	"github.com/xraph/interceder/manifest"
	"github.com/xraph/interceder/signature"
)

// SignFunc computes the outbound signature for a body.
type SignFunc func(body []byte, secret string) string

// Rebuilder assembles outbound headers from extracted values.
type Rebuilder struct {
	m    *manifest.Manifest
	sign SignFunc
}

// NewRebuilder returns a Rebuilder for m that signs with signature.Sign.
func NewRebuilder(m *manifest.Manifest) *Rebuilder {
	return &Rebuilder{m: m, sign: signature.Sign}
}

// WithSignFunc replaces the signing function.
func (r *Rebuilder) WithSignFunc(fn SignFunc) *Rebuilder {
	r.sign = fn
	return r
}

// Slots is the number of extracted values a Rebuild call consumes.
func (r *Rebuilder) Slots() int {
	n := 0
	for _, h := range r.m.Headers {
		if h.Source.Kind == manifest.FromRequest {
			n++
		}
	}
	if r.m.Hash.Required {
		n++
	}
	return n
}

// Rebuild walks the header rules in order, pairing each request-sourced rule
// with the next extracted value and each environment-sourced rule with its
// resolved value. When a signature is required it is appended last, either
// passed through or recomputed over body.
//
// values must be consumed exactly; anything else is an *AlignmentError.
func (r *Rebuilder) Rebuild(values []string, body []byte) ([]Pair, error) {
	if slots := r.Slots(); len(values) != slots {
		return nil, &AlignmentError{Extracted: len(values), Expected: slots}
	}

	var (
		out  = make([]Pair, 0, len(r.m.Headers)+1)
		next = 0
	)

	for _, rule := range r.m.Headers {
		switch rule.Source.Kind {
		case manifest.FromRequest:
			out = append(out, Pair{Name: rule.Name, Value: values[next]})
			next++
		case manifest.FromEnv:
			out = append(out, Pair{Name: rule.Name, Value: rule.Source.Value})
		}
	}

	if r.m.Hash.Required {
		value := values[next]
		next++

		if r.m.Rehash.Required {
			value = r.sign(body, r.m.Rehash.Secret)
		}

		out = append(out, Pair{Name: r.m.Hash.Header, Value: value})
	}

	if next != len(values) {
		return nil, &AlignmentError{Extracted: len(values), Expected: next}
	}

	return out, nil
}
