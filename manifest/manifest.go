package manifest

import (
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/xraph/interceder/payload"
)

// LookupFunc resolves an environment variable name.
type LookupFunc func(name string) (string, bool)

// SourceKind tells where an outbound header value comes from.
type SourceKind int

const (
	// FromRequest takes the next value extracted from the inbound request.
	FromRequest SourceKind = iota
	// FromEnv uses a value resolved from the environment at startup.
	FromEnv
)

func (k SourceKind) String() string {
	if k == FromRequest {
		return "request"
	}
	return "env"
}

// Source is the value source of one outbound header.
type Source struct {
	Kind SourceKind

	// Env is the environment variable name for FromEnv sources.
	Env string

	// Value is the resolved environment value for FromEnv sources.
	Value string
}

// HeaderRule maps one outbound header name to its value source.
type HeaderRule struct {
	Name   string
	Source Source
}

// Hash is the resolved signature header requirement.
type Hash struct {
	Required bool
	Header   string
}

// Rehash is the resolved signature recomputation setting.
type Rehash struct {
	Required  bool
	SecretEnv string
	Secret    string
}

// Manifest is the resolved, immutable relay configuration.
// It is safe for concurrent reads.
type Manifest struct {
	// Address is the host:port the server listens on.
	Address string

	// TargetURL is the outbound URL with all params appended.
	TargetURL string

	// DisplayURL is TargetURL with each param shown as <NAME> instead of its
	// value. Use it wherever the URL is logged or printed.
	DisplayURL string

	Topics     []string
	TopicQuery string
	Headers    []HeaderRule
	Hash       Hash
	Rehash     Rehash
}

// RequestHeaders returns the inbound header names to extract, in order:
// every FromRequest rule followed by the signature header when required.
func (m *Manifest) RequestHeaders() []string {
	names := make([]string, 0, len(m.Headers)+1)
	for _, h := range m.Headers {
		if h.Source.Kind == FromRequest {
			names = append(names, h.Name)
		}
	}
	if m.Hash.Required {
		names = append(names, m.Hash.Header)
	}
	return names
}

// Resolve validates f and resolves every environment variable it references.
// All problems are collected into a single *ConfigError.
func Resolve(f *File, lookup LookupFunc) (*Manifest, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var (
		problems []string
		m        = &Manifest{
			Address:    net.JoinHostPort(f.Server.Address, f.Server.Port),
			Topics:     append([]string(nil), f.Webhook.Topics...),
			TopicQuery: f.Webhook.TopicQuery,
		}
	)

	env := func(name string) string {
		v, ok := lookup(name)
		if !ok {
			problems = append(problems, "environment variable "+name+" is not set")
		}
		return v
	}

	for _, name := range f.Server.Env {
		env(name)
	}

	target, display := f.Webhook.URL, f.Webhook.URL
	for _, name := range f.Webhook.Params {
		target += "/" + env(name)
		display += "/<" + name + ">"
	}
	m.TargetURL, m.DisplayURL = target, display

	if u, err := url.Parse(f.Webhook.URL); err != nil {
		problems = append(problems, "webhook.url: "+err.Error())
	} else if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		problems = append(problems, "webhook.url: "+f.Webhook.URL+" is not an absolute http(s) URL")
	}

	for _, topic := range f.Webhook.Topics {
		if err := payload.ValidateKey(Key(topic)); err != nil {
			problems = append(problems, "webhook.topics: "+topic+" does not yield a usable cache key")
		}
	}

	m.Headers = make([]HeaderRule, 0, len(f.Webhook.Headers))
	for i, row := range f.Webhook.Headers {
		if len(row) != 2 || row[0] == "" || row[1] == "" {
			problems = append(problems, "webhook.headers: row "+strconv.Itoa(i)+" must be [name, source]")
			continue
		}

		rule := HeaderRule{Name: row[0]}
		if row[1] == FromRequestSource {
			rule.Source = Source{Kind: FromRequest}
		} else {
			rule.Source = Source{Kind: FromEnv, Env: row[1], Value: env(row[1])}
		}
		m.Headers = append(m.Headers, rule)
	}

	m.Hash = Hash{Required: f.Webhook.Hash.IsRequired, Header: f.Webhook.Hash.Header}
	if m.Hash.Required && m.Hash.Header == "" {
		problems = append(problems, "webhook.hash.header is required when hash.is_required is set")
	}

	if f.Webhook.Rehash.IsRequired {
		if !m.Hash.Required {
			problems = append(problems, "webhook.rehash requires webhook.hash.is_required")
		}
		if f.Webhook.Rehash.Secret == "" {
			problems = append(problems, "webhook.rehash.secret is required when rehash.is_required is set")
		} else {
			m.Rehash = Rehash{
				Required:  true,
				SecretEnv: f.Webhook.Rehash.Secret,
				Secret:    env(f.Webhook.Rehash.Secret),
			}
		}
	}

	if len(problems) != 0 {
		return nil, &ConfigError{Problems: problems}
	}

	return m, nil
}

// Key returns the cache key of a topic: its prefix before the first "/".
func Key(topic string) string {
	key, _, _ := strings.Cut(topic, "/")
	return key
}
