package auth

import (
	"testing"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid password", "password123", false},
		{"empty password", "", false},
		{"long password", "a" + string(make([]byte, 70)), false}, // bcrypt max is 72 bytes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("HashPassword() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && hash == "" {
				t.Error("HashPassword() returned empty hash")
			}
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	password := "testpassword123"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		hash     string
		password string
		want     bool
	}{
		{"correct password", hash, password, true},
		{"wrong password", hash, "wrongpassword", false},
		{"empty password", hash, "", false},
		{"invalid hash", "invalidhash", password, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.hash, tt.password); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testClaims() Claims {
	return Claims{UserID: "user-42", Username: "alice", Email: "alice@example.com"}
}

func TestIssueToken_RoundTrip(t *testing.T) {
	secret := "test-secret-key"
	token, err := IssueToken(testClaims(), secret, 3)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("IssueToken() returned empty token")
	}

	claims, ok := DecodeClaims(token, secret)
	if !ok {
		t.Fatal("DecodeClaims() should succeed for a fresh token")
	}
	if claims.UserID != "user-42" || claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Errorf("DecodeClaims() = %+v, want the issued identity back", claims)
	}
}

func TestVerifyToken(t *testing.T) {
	secret := "test-secret-key"
	valid, err := IssueToken(testClaims(), secret, 3)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	expired, err := IssueToken(testClaims(), secret, -1)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	otherKey, err := IssueToken(testClaims(), "another-secret", 3)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid token", valid, true},
		{"expired token", expired, false},
		{"signed with different key", otherKey, false},
		{"malformed token", "not.a.token", false},
		{"garbage", "garbage", false},
		{"empty token", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// must never panic, only report false
			if got := VerifyToken(tt.token, secret); got != tt.want {
				t.Errorf("VerifyToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeClaims_Invalid(t *testing.T) {
	secret := "test-secret"
	expired, _ := IssueToken(testClaims(), secret, -1)

	for _, token := range []string{"", "broken", expired} {
		if claims, ok := DecodeClaims(token, secret); ok || claims != nil {
			t.Errorf("DecodeClaims(%q) = (%v, %v), want (nil, false)", token, claims, ok)
		}
	}
}

func TestDecodeClaims_IncompleteClaims(t *testing.T) {
	secret := "test-secret"
	// A token missing identity fields must be rejected even with a valid signature.
	token, err := IssueToken(Claims{UserID: "user-1"}, secret, 3)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, ok := DecodeClaims(token, secret); ok {
		t.Error("DecodeClaims() should reject a token with missing claim fields")
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"with prefix", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"without prefix", "abc.def.ghi", "abc.def.ghi"},
		{"empty", "", ""},
		{"prefix only", "Bearer ", ""},
		{"first occurrence only", "Bearer Bearer x", "Bearer x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBearer(tt.raw); got != tt.want {
				t.Errorf("ExtractBearer(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
