package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	password := "testpassword"

	hash, err := HashPassword(password, 4)
	if err != nil {
		t.Errorf("HashPassword() error = %v", err)
		return
	}

	if len(hash) == 0 {
		t.Error("HashPassword() returned empty hash")
	}

	// Test that the same password produces different hashes (salt)
	hash2, err := HashPassword(password, 4)
	if err != nil {
		t.Errorf("HashPassword() error = %v", err)
		return
	}

	if hash == hash2 {
		t.Error("HashPassword() should produce different hashes due to salt")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "testpassword"

	hash, err := HashPassword(password, 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{name: "correct password", password: password, want: true},
		{name: "wrong password", password: "wrongpassword", want: false},
		{name: "empty password", password: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	b := HashToken("token-b")

	assert.Len(t, a, 64)
	assert.Equal(t, a, HashToken("token-a"))
	assert.NotEqual(t, a, b)
}

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("alice", "default", "curl/8.0", "simple_drive_api", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "default", claims.Scope)
	assert.Equal(t, "curl/8.0", claims.ClientInfo)
	assert.Equal(t, "simple_drive_api", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestGenerateJWT_Unique(t *testing.T) {
	a, err := GenerateJWT("alice", "default", "", "simple_drive_api", "secret", time.Hour)
	require.NoError(t, err)
	b, err := GenerateJWT("alice", "default", "", "simple_drive_api", "secret", time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestValidateJWT_Rejects(t *testing.T) {
	valid, err := GenerateJWT("alice", "default", "", "simple_drive_api", "secret", time.Hour)
	require.NoError(t, err)

	expired, err := GenerateJWT("alice", "default", "", "simple_drive_api", "secret", -time.Minute)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "wrong secret", token: valid, secret: "other"},
		{name: "expired", token: expired, secret: "secret"},
		{name: "garbage", token: "not.a.jwt", secret: "secret"},
		{name: "missing subject", token: noSubject, secret: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateJWT(tt.token, tt.secret)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{input: 0, want: "0 B"},
		{input: 512, want: "512 B"},
		{input: 1024, want: "1.0 KB"},
		{input: 1536, want: "1.5 KB"},
		{input: 50 << 20, want: "50.0 MB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.input))
	}
}
