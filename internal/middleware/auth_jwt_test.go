package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protected(secret string) (http.Handler, *string) {
	var subject string
	return OperatorAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = OperatorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})), &subject
}

func TestOperatorAuthAcceptsSignedToken(t *testing.T) {
	token, err := SignOperatorToken("s3cret", "miquel", time.Hour, time.Now())
	require.NoError(t, err)

	h, subject := protected("s3cret")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "miquel", *subject)
}

func TestOperatorAuthRejects(t *testing.T) {
	expired, err := SignOperatorToken("s3cret", "op", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	wrongKey, err := SignOperatorToken("other", "op", time.Hour, time.Now())
	require.NoError(t, err)
	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    OperatorIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	tests := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"expired":        "Bearer " + expired,
		"wrong key":      "Bearer " + wrongKey,
		"missing role":   "Bearer " + noRole,
		"garbage":        "Bearer not.a.token",
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			h, _ := protected("s3cret")
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"unauthorized"`)
		})
	}
}

func TestOperatorAuthDisabledWithoutSecret(t *testing.T) {
	h, _ := protected("")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSignOperatorTokenRequiresSecret(t *testing.T) {
	_, err := SignOperatorToken(" ", "op", time.Hour, time.Now())
	assert.ErrorIs(t, err, ErrInvalidToken)
}
