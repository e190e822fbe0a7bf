package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"intakeflow/internal/model"
	"intakeflow/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := UserIDFromContext(r.Context())
		_, _ = w.Write([]byte(id + "|" + EmailFromContext(r.Context())))
	})
}

func TestAuthMiddleware(t *testing.T) {
	verifier, err := util.NewTokenVerifier("jwt-secret")
	require.NoError(t, err)
	h := AuthMiddleware(verifier, zerolog.Nop())(echoUser())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, util.Claims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("jwt-secret"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, "user-1|a@example.com"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestInternalSecretMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	h := InternalSecretMiddleware("s3cret", zerolog.Nop())(ok)
	for header, want := range map[string]int{
		"Bearer s3cret":  http.StatusNoContent,
		"Bearer s3cret ": http.StatusUnauthorized,
		"Bearer other":   http.StatusUnauthorized,
		"":               http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodPost, "/internal/usage", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "header %q", header)
	}

	unset := InternalSecretMiddleware("", zerolog.Nop())(ok)
	req := httptest.NewRequest(http.MethodPost, "/internal/usage", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec := httptest.NewRecorder()
	unset.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubUsers struct {
	user *model.User
	err  error
}

func (s stubUsers) GetUserByID(context.Context, string) (*model.User, error) { return s.user, s.err }

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	serve := func(users UserLookup, withUser bool) int {
		req := httptest.NewRequest(http.MethodPost, "/admin/users/u/provision", nil)
		if withUser {
			req = req.WithContext(WithUser(req.Context(), "u", ""))
		}
		rec := httptest.NewRecorder()
		RequireAdmin(users, zerolog.Nop())(ok).ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, serve(stubUsers{user: &model.User{UserID: "u", IsAdmin: true}}, true))
	assert.Equal(t, http.StatusForbidden, serve(stubUsers{user: &model.User{UserID: "u"}}, true))
	assert.Equal(t, http.StatusForbidden, serve(stubUsers{}, true))
	assert.Equal(t, http.StatusInternalServerError, serve(stubUsers{err: errors.New("db down")}, true))
	assert.Equal(t, http.StatusUnauthorized, serve(stubUsers{}, false))
}

func TestPubSubAuthMiddleware_LocalBypassAndMisconfig(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	PubSubAuthMiddleware(true, "", "", zerolog.Nop())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dlq/record", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	PubSubAuthMiddleware(false, "", "", zerolog.Nop())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dlq/record", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	PubSubAuthMiddleware(false, "https://api/dlq/record", "push@sa", zerolog.Nop())(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dlq/record", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
