package concourse

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenType is the Builder's token_type field. "bearer" is by far the
// common case (Concourse's oauth2 password grant always returns it) and is
// matched case-insensitively; any other string is preserved verbatim rather
// than rejected.
type TokenType struct {
	kind  string
	other string
}

// Bearer is the well-known token type.
var Bearer = TokenType{kind: "bearer"}

// OtherTokenType wraps any token_type string the Builder returns that isn't
// "bearer".
func OtherTokenType(s string) TokenType { return TokenType{kind: "other", other: s} }

// IsBearer reports whether this is the Bearer variant.
func (t TokenType) IsBearer() bool { return t.kind == "bearer" }

// String returns "bearer" for Bearer, or the original string for Other.
func (t TokenType) String() string {
	if t.IsBearer() {
		return "bearer"
	}
	return t.other
}

func parseTokenType(s string) TokenType {
	if strings.EqualFold(s, "bearer") {
		return Bearer
	}
	return OtherTokenType(s)
}

// tokenResponse is the wire shape of a POST /sky/issuer/token response, per
// spec.md §6.2.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   uint64 `json:"expires_in"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
}

// Token is the Builder credential. The access token itself is kept behind
// SecretToken so that an accidental %v/%+v of a Token (or a log line built
// from logrus.Fields) never leaks the secret - the Go analogue of the
// wiping container the original implementation uses for its access_token
// field (original_source/src/concourse/token.rs).
type Token struct {
	AccessToken SecretToken
	ExpiresIn   time.Duration
	IDToken     string
	TokenType   TokenType
	CreatedAt   time.Time
}

// SecretToken holds an opaque bearer credential. Its String/GoString/Format
// implementations all redact the value.
type SecretToken string

func (SecretToken) String() string                 { return "REDACTED" }
func (SecretToken) GoString() string                { return "REDACTED" }
func (s SecretToken) Format(f fmt.State, verb rune) { fmt.Fprint(f, "REDACTED") }

// Reveal returns the underlying secret value. Call sites that need the raw
// token (building an Authorization header) must call this explicitly -
// there is no implicit conversion that would let the value leak into a
// format string by accident.
func (s SecretToken) Reveal() string { return string(s) }

func tokenFromResponse(resp tokenResponse, now time.Time) Token {
	return Token{
		AccessToken: SecretToken(resp.AccessToken),
		ExpiresIn:   time.Duration(resp.ExpiresIn) * time.Second,
		IDToken:     resp.IDToken,
		TokenType:   parseTokenType(resp.TokenType),
		CreatedAt:   now,
	}
}

// HasExpired implements spec.md §3's invariant:
// has_expired ⇔ now > created_at + expires_in.
func (t Token) HasExpired(now time.Time) bool {
	return now.After(t.CreatedAt.Add(t.ExpiresIn))
}

// OAuth2 renders the token as a golang.org/x/oauth2.Token. setBearer uses
// this to attach the Authorization header via the carrier's own
// SetAuthHeader/Type logic rather than formatting "Bearer <token>" by hand.
func (t Token) OAuth2() oauth2.Token {
	return oauth2.Token{
		AccessToken: t.AccessToken.Reveal(),
		TokenType:   t.TokenType.String(),
		Expiry:      t.CreatedAt.Add(t.ExpiresIn),
	}
}
