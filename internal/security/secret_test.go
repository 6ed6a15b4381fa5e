// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSecretRedactionAndJSON(t *testing.T) {
	s := FromString("supersecret")
	for _, verb := range []string{"%v", "%s", "%q", "%#v", "%+v"} {
		if got := fmt.Sprintf(verb, s); got != "[SECRET]" {
			t.Fatalf("unexpected fmt output for %s: %q", verb, got)
		}
	}
	b, err := json.Marshal(struct{ Token Secret }{s})
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if strings.Contains(string(b), "supersecret") {
		t.Fatalf("json leaked secret: %s", b)
	}
	y, err := yaml.Marshal(map[string]Secret{"token": s})
	if err != nil {
		t.Fatalf("yaml.Marshal failed: %v", err)
	}
	if strings.Contains(string(y), "supersecret") {
		t.Fatalf("yaml leaked secret: %s", y)
	}
}

func TestSecretZero(t *testing.T) {
	s := FromString("abc123")
	(&s).Zero()
	if err := s.Use(func(b []byte) error {
		for i := range b {
			if b[i] != 0 {
				t.Fatalf("expected zeroed byte at index %d, got %d", i, b[i])
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("s.Use failed: %v", err)
	}
	var nilSecret *Secret
	nilSecret.Zero()
}

func TestSecretBytesIsCopy(t *testing.T) {
	s := FromString("sensitive")
	c := s.Bytes()
	c[0] = 'X'
	if !bytes.Equal(s, []byte("sensitive")) {
		t.Fatalf("modifying copy affected original: %v", s.Expose())
	}
}

func TestSecretEqual(t *testing.T) {
	if !FromString("a").Equal(FromString("a")) {
		t.Fatalf("equal secrets compared unequal")
	}
	if FromString("a").Equal(FromString("b")) {
		t.Fatalf("different secrets compared equal")
	}
	if !Secret(nil).Empty() {
		t.Fatalf("nil secret should be empty")
	}
}

func TestInstallTokenRoundTrip(t *testing.T) {
	in := InstallToken{TunnelID: "t1", Credential: FromString("c0ffee"), Server: "tunnel.example.com:5429"}
	enc, err := in.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := ParseInstallToken(enc)
	if err != nil {
		t.Fatalf("ParseInstallToken: %v", err)
	}
	if out.TunnelID != "t1" || out.Server != in.Server || !out.Credential.Equal(in.Credential) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestParseInstallToken_RejectsBareToken(t *testing.T) {
	_, err := ParseInstallToken(FromString("not-base64-$$$"))
	if !errors.Is(err, ErrNotInstallToken) {
		t.Fatalf("expected ErrNotInstallToken, got %v", err)
	}
	if strings.Contains(err.Error(), "not-base64-$$$") {
		t.Fatalf("error leaked the secret: %v", err)
	}
}
