package payload_test

import (
	"errors"
	"testing"

	"github.com/xraph/interceder/payload"
)

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"orders", "customers", "a.b", "..x"} {
		if err := payload.ValidateKey(key); err != nil {
			t.Errorf("ValidateKey(%q) = %v", key, err)
		}
	}
	for _, key := range []string{"", ".", "..", "a/b", `a\b`, "a\x00"} {
		if err := payload.ValidateKey(key); !errors.Is(err, payload.ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestNotFoundError(t *testing.T) {
	var err error = &payload.NotFoundError{Key: "orders"}
	if !errors.Is(err, payload.ErrNotFound) {
		t.Fatal("NotFoundError should unwrap to ErrNotFound")
	}
}
