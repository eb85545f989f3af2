package concourse_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkins-x/radicle-ci/pkg/concourse"
)

func TestSecretTokenNeverPrintsItsValue(t *testing.T) {
	secret := concourse.SecretToken("super-secret-value")

	assert.Equal(t, "REDACTED", secret.String())
	assert.Equal(t, "REDACTED", fmtGoString(secret))
	assert.Equal(t, "super-secret-value", secret.Reveal())
}

func fmtGoString(s concourse.SecretToken) string {
	return (interface{ GoString() string }(s)).GoString()
}

func TestTokenHasExpired(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token := concourse.Token{
		AccessToken: concourse.SecretToken("tok"),
		ExpiresIn:   30 * time.Minute,
		CreatedAt:   created,
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before expiry", created.Add(time.Minute), false},
		{"exactly at expiry boundary", created.Add(30 * time.Minute), false},
		{"after expiry", created.Add(31 * time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, token.HasExpired(tt.now))
		})
	}
}

func TestTokenOAuth2CarriesFields(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token := concourse.Token{
		AccessToken: concourse.SecretToken("tok"),
		TokenType:   concourse.Bearer,
		ExpiresIn:   time.Hour,
		CreatedAt:   created,
	}

	oauthToken := token.OAuth2()
	assert.Equal(t, "tok", oauthToken.AccessToken)
	assert.Equal(t, created.Add(time.Hour), oauthToken.Expiry)

	req, err := http.NewRequest(http.MethodGet, "https://builder.example/api", nil)
	assert.NoError(t, err)
	oauthToken.SetAuthHeader(req)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestTokenTypeParsing(t *testing.T) {
	tests := []struct {
		name       string
		tokenType  string
		wantBearer bool
	}{
		{"bearer exact", "bearer", true},
		{"bearer mixed case", "Bearer", true},
		{"unknown type", "mac", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"access_token":"tok","expires_in":3600,"token_type":%q}`, tt.tokenType)
			}))
			defer server.Close()

			token, err := concourse.NewClient(server.URL, "user", "pass", nil).GetAccessToken()
			require.NoError(t, err)
			assert.Equal(t, tt.wantBearer, token.TokenType.IsBearer())
		})
	}
}
