package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"dramclub/internal/model"
)

type fakeTokens map[string]model.Actor

func (f fakeTokens) Parse(raw string) (model.Actor, error) {
	a, ok := f[raw]
	if !ok {
		return model.Actor{}, errors.New("invalid token")
	}
	return a, nil
}

type fakeResolver struct {
	roles map[string]model.Role
	err   error
}

func (f fakeResolver) ResolveActor(_ context.Context, claimed model.Actor) (model.Actor, error) {
	if f.err != nil {
		return model.Actor{}, f.err
	}
	role, ok := f.roles[claimed.UserID]
	if !ok {
		return model.Actor{}, model.ErrUnauthorized
	}
	return model.Actor{UserID: claimed.UserID, Role: role}, nil
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tokens := fakeTokens{
		"admin-token":  {UserID: "u-admin", Role: model.RoleAdmin},
		"member-token": {UserID: "u-member", Role: model.RoleMember},
		"demoted":      {UserID: "u-demoted", Role: model.RoleAdmin},
		"deleted":      {UserID: "u-gone", Role: model.RoleAdmin},
	}
	resolver := fakeResolver{roles: map[string]model.Role{
		"u-admin":   model.RoleAdmin,
		"u-member":  model.RoleMember,
		"u-demoted": model.RoleMember,
	}}

	cases := []struct {
		name   string
		header string
		res    ActorResolver
		want   int
	}{
		{"no header", "", resolver, http.StatusUnauthorized},
		{"not bearer", "Basic abc", resolver, http.StatusUnauthorized},
		{"unknown token", "Bearer nope", resolver, http.StatusUnauthorized},
		{"member", "Bearer member-token", resolver, http.StatusForbidden},
		{"demoted admin", "Bearer demoted", resolver, http.StatusForbidden},
		{"deleted user", "Bearer deleted", resolver, http.StatusUnauthorized},
		{"resolver failure", "Bearer admin-token", fakeResolver{err: errors.New("db down")}, http.StatusInternalServerError},
		{"admin", "Bearer admin-token", resolver, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			var seen model.Actor
			r.GET("/x", RequireAdmin(tokens, tc.res), func(c *gin.Context) {
				seen = Actor(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusOK && (seen.UserID != "u-admin" || !seen.IsAdmin()) {
				t.Fatalf("expected admin actor in context, got %+v", seen)
			}
		})
	}
}

func TestActor_Missing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := Actor(c); got != (model.Actor{}) {
		t.Fatalf("expected zero actor, got %+v", got)
	}
}
