package auth

import "testing"

func TestNewTokenShape(t *testing.T) {
	token := NewToken()
	if len(token) != CredentialLen {
		t.Fatalf("token length = %d, want %d", len(token), CredentialLen)
	}
	for _, ch := range token {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			t.Fatalf("token contains non-hex character %q", ch)
		}
	}
}

func TestNewTokenUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token := NewToken()
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = struct{}{}
	}
}

func TestHashTokenStable(t *testing.T) {
	a := HashToken("credential")
	b := HashToken("credential")
	if a != b {
		t.Fatalf("hash not stable: %s vs %s", a, b)
	}
	if a == HashToken("other") {
		t.Fatalf("distinct inputs produced identical hashes")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64", len(a))
	}
}
