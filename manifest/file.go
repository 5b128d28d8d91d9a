// Package manifest loads, validates, and resolves the interceder manifest.
//
// A manifest is read once at startup. Load decodes the file and checks it
// against the embedded JSON Schema, Resolve looks up every referenced
// environment variable and produces the immutable Manifest the relay
// pipeline consumes. Request handling never touches the environment.
package manifest

// FromRequestSource is the header value source that takes the value from
// the inbound request instead of the environment.
const FromRequestSource = "req"

// File is the on-disk manifest as written by the operator.
type File struct {
	Server  Server  `json:"server"`
	Webhook Webhook `json:"webhook"`
}

// Server describes the listener and the environment it depends on.
type Server struct {
	Address string   `json:"address"`
	Port    string   `json:"port"`
	Env     []string `json:"env,omitempty"`
}

// Webhook describes how inbound calls are relayed to the target.
type Webhook struct {
	// URL is the base target URL. Each entry of Params names an environment
	// variable whose value is appended as a path segment.
	URL    string   `json:"url"`
	Params []string `json:"params,omitempty"`

	// Topics are matched against extracted header values. The cache key of
	// a topic is its prefix before the first "/".
	Topics []string `json:"topics,omitempty"`

	// TopicQuery is an optional jq expression evaluated against the JSON
	// body of intercepted calls to produce extra topic candidates.
	TopicQuery string `json:"topic_query,omitempty"`

	// Headers are [name, source] rows. A source of "req" takes the value
	// from the inbound request; anything else names an environment variable.
	Headers [][]string `json:"headers,omitempty"`

	Hash   FileHash   `json:"hash"`
	Rehash FileRehash `json:"rehash"`
}

// FileHash controls whether a signature header is required on inbound calls.
type FileHash struct {
	IsRequired bool   `json:"is_required"`
	Header     string `json:"header,omitempty"`
}

// FileRehash controls whether the signature is recomputed before forwarding.
type FileRehash struct {
	IsRequired bool   `json:"is_required"`
	Secret     string `json:"secret,omitempty"`
}
