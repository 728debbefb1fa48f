package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/13jisse-music/ChanteEnScene-sub000/internal/domain"
	"github.com/13jisse-music/ChanteEnScene-sub000/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject, role, juryRole string, expiry time.Duration) string {
	t.Helper()

	claims := contestClaims{
		Role:     role,
		JuryRole: juryRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func authedRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestAuth_ValidTokenReachesHandler(t *testing.T) {
	var got *Principal
	handler := Auth(testSecret, logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetPrincipal(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(signToken(t, "juror-7", RoleJury, "academy", time.Hour)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "juror-7", got.Subject)
	assert.Equal(t, RoleJury, got.Role)
	assert.Equal(t, domain.RoleAcademy, got.JuryRole)
}

func TestAuth_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "missing header", token: ""},
		{name: "garbage token", token: "not-a-jwt"},
		{name: "expired token", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.token
			if tt.name == "expired token" {
				token = signToken(t, "juror-7", RoleJury, "", -time.Minute)
			}

			handler := Auth(testSecret, logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not run")
			}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, authedRequest(token))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "authentication")
		})
	}
}

func TestAuth_WrongSecretRejected(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "admin-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	handler := Auth(testSecret, logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_GatesBySuppliedRole(t *testing.T) {
	chain := func(token string) *httptest.ResponseRecorder {
		handler := Auth(testSecret, logger.NewNop())(
			RequireRole(RoleAdmin, logger.NewNop())(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				})))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(token))
		return rec
	}

	assert.Equal(t, http.StatusOK, chain(signToken(t, "admin-1", RoleAdmin, "", time.Hour)).Code)
	assert.Equal(t, http.StatusForbidden, chain(signToken(t, "juror-7", RoleJury, "academy", time.Hour)).Code)
}

func TestRateLimiter_ThrottlesPerDevice(t *testing.T) {
	rl := NewRateLimiter(1, 2, logger.NewNop())
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	fire := func(fingerprint string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/votes", nil)
		if fingerprint != "" {
			r.Header.Set("X-Device-Fingerprint", fingerprint)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec.Code
	}

	// burst of 2, then throttled
	assert.Equal(t, http.StatusOK, fire("device-a"))
	assert.Equal(t, http.StatusOK, fire("device-a"))
	assert.Equal(t, http.StatusTooManyRequests, fire("device-a"))

	// other devices keep their own budget
	assert.Equal(t, http.StatusOK, fire("device-b"))

	// no fingerprint passes through to handler validation
	assert.Equal(t, http.StatusOK, fire(""))
}
