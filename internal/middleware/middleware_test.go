package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-booking-api/internal/apperr"
	"clinic-booking-api/internal/auth"
)

const secret = "middleware-test-secret"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	return l
}

func writeErr(w http.ResponseWriter, _ *http.Request, err error) {
	e := apperr.From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{"message": e.Message})
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("Bearer   abc"))
	assert.Equal(t, "", bearerToken("Bearer"))
	assert.Equal(t, "", bearerToken("abc"))
	assert.Equal(t, "", bearerToken(""))
}

func TestAuthNoToken(t *testing.T) {
	h := Auth(secret, quietLogger(), writeErr)(http.HandlerFunc(ok))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/appointments", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", message(t, rec))
}

func expiredToken(t *testing.T) string {
	t.Helper()
	issued := time.Now().Add(-25 * time.Hour)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		ID:       1,
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(auth.TokenTTL)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestAuthBadToken(t *testing.T) {
	other, err := auth.MakeToken(1, "admin", "some-other-secret")
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not.a.jwt",
		"wrong secret": other,
		"expired":      expiredToken(t),
	} {
		t.Run(name, func(t *testing.T) {
			h := Auth(secret, quietLogger(), writeErr)(http.HandlerFunc(ok))
			req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
			req.Header.Set("Authorization", "Bearer "+tok)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, "Invalid token", message(t, rec))
		})
	}
}

func TestAuthValidTokenStoresClaims(t *testing.T) {
	tok, err := auth.MakeToken(7, "admin", secret)
	require.NoError(t, err)

	var got *auth.Claims
	h := Auth(secret, quietLogger(), writeErr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = Claims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "admin", got.Username)
}

func TestWithClaims(t *testing.T) {
	ctx := WithClaims(context.Background(), &auth.Claims{ID: 3, Username: "x"})
	c, ok := Claims(ctx)
	require.True(t, ok)
	assert.Equal(t, "x", c.Username)

	_, ok = Claims(context.Background())
	assert.False(t, ok)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	h := RateLimit(rl, writeErr)(http.HandlerFunc(ok))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:2222"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:3333"))
	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111"))
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.get("a")
	rl.get("b")
	require.Equal(t, 2, rl.size())

	rl.sweep(time.Now())
	assert.Equal(t, 2, rl.size())

	rl.sweep(time.Now().Add(rl.ttl + time.Second))
	assert.Equal(t, 0, rl.size())
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://clinic.example"})(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
	req.Header.Set("Origin", "https://clinic.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://clinic.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/appointments", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/appointments", nil)
	req.Header.Set("Origin", "https://clinic.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSWildcard(t *testing.T) {
	h := CORS([]string{"*"})(http.HandlerFunc(ok))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingRequestID(t *testing.T) {
	var seen string
	h := Logging(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

type fakeRecorder struct {
	inflight float64
	route    string
	status   int
}

func (f *fakeRecorder) InFlight(d float64) { f.inflight += d }

func (f *fakeRecorder) RecordHTTPRequest(_ string, route string, status int, _ time.Duration) {
	f.route, f.status = route, status
}

func TestInstrumentUsesRouteTemplate(t *testing.T) {
	rec := &fakeRecorder{}
	r := mux.NewRouter()
	r.Use(Instrument(rec))
	r.HandleFunc("/api/appointments/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, nil, errors.New("boom"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/appointments/42", nil))

	assert.Equal(t, "/api/appointments/{id}", rec.route)
	assert.Equal(t, http.StatusInternalServerError, rec.status)
	assert.Equal(t, 0.0, rec.inflight)
}

func TestInstrumentUnmatched(t *testing.T) {
	rec := &fakeRecorder{}
	r := mux.NewRouter()
	r.HandleFunc("/api/appointments", ok).Methods(http.MethodGet)
	r.NotFoundHandler = Instrument(rec)(http.NotFoundHandler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, "unmatched", rec.route)
	assert.Equal(t, http.StatusNotFound, rec.status)
}
