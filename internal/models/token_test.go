package models

import (
	"testing"
	"time"
)

func TestNewTokenDataAt(t *testing.T) {
	created := time.Unix(1_700_000_000, 0)
	tok := NewTokenDataAt(created, "access", "refresh", 3599, "user@example.com")

	if tok.ExpiryTimestamp != created.Unix()+3599 {
		t.Errorf("ExpiryTimestamp = %d, want %d", tok.ExpiryTimestamp, created.Unix()+3599)
	}
	if tok.TokenType != TokenTypeBearer {
		t.Errorf("TokenType = %q, want %q", tok.TokenType, TokenTypeBearer)
	}
	if tok.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", tok.Email)
	}
	if !tok.ExpiresAt().Equal(created.Add(3599 * time.Second)) {
		t.Errorf("ExpiresAt() = %v", tok.ExpiresAt())
	}
}

func TestNewTokenData_UsesNow(t *testing.T) {
	before := time.Now().Unix()
	tok := NewTokenData("a", "r", 100, "")
	after := time.Now().Unix()

	if tok.ExpiryTimestamp < before+100 || tok.ExpiryTimestamp > after+100 {
		t.Errorf("ExpiryTimestamp = %d, want within [%d, %d]", tok.ExpiryTimestamp, before+100, after+100)
	}
}

func TestTokenData_IsExpiredAt(t *testing.T) {
	created := time.Unix(1000, 0)
	tok := NewTokenDataAt(created, "a", "r", 60, "")

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"BeforeExpiry", time.Unix(1059, 0), false},
		{"AtExpiry", time.Unix(1060, 0), true},
		{"AfterExpiry", time.Unix(2000, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tok.IsExpiredAt(tt.now); got != tt.want {
				t.Errorf("IsExpiredAt(%v) = %v, want %v", tt.now.Unix(), got, tt.want)
			}
		})
	}
}

func TestTokenData_ValidFor(t *testing.T) {
	tests := []struct {
		name string
		tok  TokenData
		want bool
	}{
		{"Empty", TokenData{}, false},
		{"Fresh", NewTokenData("a", "r", 3600, ""), true},
		{"InsideBuffer", NewTokenData("a", "r", 240, ""), false},
		{"Expired", NewTokenDataAt(time.Now().Add(-time.Hour), "a", "r", 60, ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tok.ValidFor(5 * time.Minute); got != tt.want {
				t.Errorf("ValidFor() = %v, want %v", got, tt.want)
			}
		})
	}
}
