package entity

import (
	"strings"
	"time"

	"github.com/shandysiswandi/gettoken/internal/pkg/valueobject"
)

// UserIdentity names a user inside a realm. An empty Login means no user.
type UserIdentity struct {
	Login string
	Realm string
}

func (u UserIdentity) IsEmpty() bool {
	return strings.TrimSpace(u.Login) == ""
}

// TokenRef is the read-only view of a token returned by the token directory.
type TokenRef struct {
	Serial string
	Type   TokenType
	Realm  string
}

// Token is the full stored record the OTP provider computes values from.
// Seed and PIN are AES-GCM ciphertexts bound to the serial.
type Token struct {
	Serial    string
	Type      TokenType
	Realm     string
	UserLogin string
	Seed      []byte
	PIN       []byte
	OTPLen    int
	Counter   int64
	TimeStep  time.Duration
	HashAlgo  string
	Active    bool
	Info      valueobject.JSONMap
	CreatedAt time.Time
}

// Ref returns the directory view of t.
func (t Token) Ref() TokenRef {
	return TokenRef{Serial: t.Serial, Type: t.Type, Realm: t.Realm}
}

type TokenType string

const (
	TokenTypeHMAC  TokenType = "hmac"
	TokenTypeTOTP  TokenType = "totp"
	TokenTypeEmail TokenType = "email"
	TokenTypeSMS   TokenType = "sms"
)

func (t TokenType) String() string {
	return string(t)
}

// CounterBased reports whether the moving factor is the stored HOTP counter.
func (t TokenType) CounterBased() bool {
	switch t {
	case TokenTypeHMAC, TokenTypeEmail, TokenTypeSMS:
		return true
	default:
		return false
	}
}

// SupportsGetOTP reports whether OTP values can be retrieved for the type.
func (t TokenType) SupportsGetOTP() bool {
	return t.CounterBased() || t == TokenTypeTOTP
}

// ParseTokenType normalizes a stored type name.
func ParseTokenType(s string) TokenType {
	return TokenType(strings.ToLower(strings.TrimSpace(s)))
}
