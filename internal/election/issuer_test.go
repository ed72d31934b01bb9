package election

import (
	"encoding/base64"
	"testing"
)

func TestNewTokenValue(t *testing.T) {
	v1, err := NewTokenValue()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	v2, err := NewTokenValue()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if v1 == v2 {
		t.Error("token values should be unique")
	}

	decoded, err := base64.RawURLEncoding.DecodeString(v1)
	if err != nil {
		t.Fatalf("token should be base64url: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("token should carry 32 random bytes, got %d", len(decoded))
	}
}
