package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/treadstock/treadstock/internal/shared"
)

type staticSource struct {
	perms map[int64][]string
}

func (s staticSource) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.perms[userID], nil
}

func sessionRequest(t *testing.T, userID string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sm := shared.NewSessionManager(client, "treadstock_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(req.Context(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func protected(mw func(http.Handler) http.Handler) http.Handler {
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRequireAnyGrantsOnOnePermission(t *testing.T) {
	m := Middleware{Source: staticSource{perms: map[int64][]string{7: {"receiving.view"}}}}

	rec := httptest.NewRecorder()
	protected(m.RequireAny("receiving.view", "receiving.edit")).ServeHTTP(rec, sessionRequest(t, "7"))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	m := Middleware{Source: staticSource{perms: map[int64][]string{7: {"receiving.view"}}}}

	rec := httptest.NewRecorder()
	protected(m.RequireAll("receiving.view", "receiving.edit")).ServeHTTP(rec, sessionRequest(t, "7"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRejectsAnonymous(t *testing.T) {
	m := Middleware{Source: staticSource{}}

	rec := httptest.NewRecorder()
	protected(m.RequireAny("receiving.view")).ServeHTTP(rec, sessionRequest(t, ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireMatchesCaseInsensitive(t *testing.T) {
	m := Middleware{Source: staticSource{perms: map[int64][]string{7: {"Receiving.Edit"}}}}

	rec := httptest.NewRecorder()
	protected(m.RequireAll("RECEIVING.EDIT")).ServeHTTP(rec, sessionRequest(t, "7"))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireWithoutPermissionsPassesThrough(t *testing.T) {
	m := Middleware{Source: staticSource{}}

	rec := httptest.NewRecorder()
	protected(m.RequireAny()).ServeHTTP(rec, sessionRequest(t, ""))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
