package manifest_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xraph/interceder/manifest"
)

func lookup(env map[string]string) manifest.LookupFunc {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

var testEnv = map[string]string{
	"ORG_ID_ENV":     "org-42",
	"TARGET_TENANT":  "tenant-7",
	"SIGNING_SECRET": "s3cr3t",
}

func TestOpenTOML(t *testing.T) {
	m, err := manifest.Open("testdata/interceder.toml", lookup(testEnv))
	if err != nil {
		t.Fatal(err)
	}

	if m.Address != "127.0.0.1:8080" {
		t.Errorf("address: got %q", m.Address)
	}
	if m.TargetURL != "https://target.example.com/hooks/tenant-7" {
		t.Errorf("target url: got %q", m.TargetURL)
	}
	if m.DisplayURL != "https://target.example.com/hooks/<TARGET_TENANT>" {
		t.Errorf("display url: got %q", m.DisplayURL)
	}

	want := []manifest.HeaderRule{
		{Name: "X-Key", Source: manifest.Source{Kind: manifest.FromRequest}},
		{Name: "X-Org", Source: manifest.Source{Kind: manifest.FromEnv, Env: "ORG_ID_ENV", Value: "org-42"}},
		{Name: "X-Topic", Source: manifest.Source{Kind: manifest.FromRequest}},
	}
	if diff := cmp.Diff(want, m.Headers); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"X-Key", "X-Topic", "X-Signature"}, m.RequestHeaders()); diff != "" {
		t.Errorf("request headers mismatch (-want +got):\n%s", diff)
	}

	if !m.Rehash.Required || m.Rehash.Secret != "s3cr3t" {
		t.Errorf("rehash: got %+v", m.Rehash)
	}
}

func TestOpenYAML(t *testing.T) {
	m, err := manifest.Open("testdata/interceder.yaml", lookup(nil))
	if err != nil {
		t.Fatal(err)
	}
	if m.Address != "0.0.0.0:9000" {
		t.Errorf("address: got %q", m.Address)
	}
	if m.TargetURL != "http://localhost:9999/in" {
		t.Errorf("target url: got %q", m.TargetURL)
	}
	if m.Hash.Required {
		t.Error("hash should not be required")
	}
}

func TestResolveReportsAllMissingEnv(t *testing.T) {
	f, err := manifest.Load("testdata/interceder.toml")
	if err != nil {
		t.Fatal(err)
	}

	_, err = manifest.Resolve(f, lookup(map[string]string{"ORG_ID_ENV": "x"}))
	if !errors.Is(err, manifest.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	var ce *manifest.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}

	msg := ce.Error()
	for _, name := range []string{"TARGET_TENANT", "SIGNING_SECRET"} {
		if !strings.Contains(msg, name) {
			t.Errorf("expected %s in %q", name, msg)
		}
	}
}

func TestParseRejectsMalformedHeaderRow(t *testing.T) {
	doc := `
[server]
address = "0.0.0.0"
port = "8080"

[webhook]
url = "https://example.com"
headers = [["X-Key", "req", "extra"]]
`
	_, err := manifest.Parse([]byte(doc), manifest.FormatTOML)
	if !errors.Is(err, manifest.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	doc := `
[server]
address = "0.0.0.0"
port = "8080"
verbose = true

[webhook]
url = "https://example.com"
`
	if _, err := manifest.Parse([]byte(doc), manifest.FormatTOML); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseRequiresHashHeader(t *testing.T) {
	doc := `
[server]
address = "0.0.0.0"
port = "8080"

[webhook]
url = "https://example.com"

[webhook.hash]
is_required = true
`
	if _, err := manifest.Parse([]byte(doc), manifest.FormatTOML); err == nil {
		t.Fatal("expected error for missing hash header")
	}
}

func TestResolveSignatureSettings(t *testing.T) {
	f := &manifest.File{
		Server: manifest.Server{Address: "0.0.0.0", Port: "8080"},
		Webhook: manifest.Webhook{
			URL:    "https://example.com",
			Hash:   manifest.FileHash{IsRequired: true, Header: "X-Signature"},
			Rehash: manifest.FileRehash{IsRequired: true, Secret: "SIGNING_SECRET"},
		},
	}

	m, err := manifest.Resolve(f, lookup(testEnv))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(manifest.Hash{Required: true, Header: "X-Signature"}, m.Hash); diff != "" {
		t.Errorf("hash mismatch (-want +got):\n%s", diff)
	}
	want := manifest.Rehash{Required: true, SecretEnv: "SIGNING_SECRET", Secret: "s3cr3t"}
	if diff := cmp.Diff(want, m.Rehash); diff != "" {
		t.Errorf("rehash mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveRehashWithoutHash(t *testing.T) {
	f := &manifest.File{
		Server: manifest.Server{Address: "0.0.0.0", Port: "8080"},
		Webhook: manifest.Webhook{
			URL:    "https://example.com",
			Rehash: manifest.FileRehash{IsRequired: true, Secret: "SIGNING_SECRET"},
		},
	}

	_, err := manifest.Resolve(f, lookup(testEnv))
	if !errors.Is(err, manifest.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestResolveRejectsRelativeURL(t *testing.T) {
	f := &manifest.File{
		Server:  manifest.Server{Address: "0.0.0.0", Port: "8080"},
		Webhook: manifest.Webhook{URL: "/just/a/path"},
	}

	if _, err := manifest.Resolve(f, lookup(nil)); err == nil {
		t.Fatal("expected error for relative URL")
	}
}

func TestResolveRejectsUnusableTopicKey(t *testing.T) {
	f := &manifest.File{
		Server: manifest.Server{Address: "0.0.0.0", Port: "8080"},
		Webhook: manifest.Webhook{
			URL:    "https://example.com",
			Topics: []string{"orders/updated", "../escape"},
		},
	}

	_, err := manifest.Resolve(f, lookup(nil))
	var cfgErr *manifest.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if len(cfgErr.Problems) != 1 || !strings.Contains(cfgErr.Problems[0], "../escape") {
		t.Fatalf("unexpected problems: %v", cfgErr.Problems)
	}
}

func TestKey(t *testing.T) {
	cases := map[string]string{
		"orders/updated":   "orders",
		"orders":           "orders",
		"a/b/c":            "a",
		"customers/create": "customers",
	}
	for topic, want := range cases {
		if got := manifest.Key(topic); got != want {
			t.Errorf("Key(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestViewRedactsEnvValues(t *testing.T) {
	m, err := manifest.Open("testdata/interceder.toml", lookup(testEnv))
	if err != nil {
		t.Fatal(err)
	}

	v := m.View()
	for _, h := range v.Headers {
		if h.Value == "org-42" {
			t.Fatalf("header %s leaked its value", h.Name)
		}
	}
	if strings.Contains(v.Signature, "s3cr3t") {
		t.Fatal("signature summary leaked the secret")
	}
	if strings.Contains(v.TargetURL, "tenant-7") {
		t.Fatalf("target url leaked a param value: %s", v.TargetURL)
	}
	if v.TargetURL != "https://target.example.com/hooks/<TARGET_TENANT>" {
		t.Errorf("target url: got %q", v.TargetURL)
	}
}
