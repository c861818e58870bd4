package spaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"spacepurchase/internal/external"
	"spacepurchase/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, r http.Handler) *external.APIClient {
	t.Helper()
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	base := external.NewBaseClient(
		&http.Client{Timeout: 5 * time.Second},
		"spaces-test",
		external.RetryPolicy{MaxRetries: 0},
		"SpacePurchase-Test/1.0",
		external.WithSleepFunc(noopSleep),
	)
	return external.NewAPIClient(base, server.URL, external.CallerToken, "org-api")
}

func callerCtx() context.Context {
	return types.WithAuthToken(context.Background(), "caller-token")
}

func TestService_CreateSpace(t *testing.T) {
	var got CreateRequest
	r := chi.NewRouter()
	r.Post("/organizations/{orgID}/spaces", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "org-1", chi.URLParam(req, "orgID"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sys":{"id":"space-9"},"name":"Marketing"}`))
	})
	svc := NewService(newTestClient(t, r), "en-US", nil)

	space, err := svc.CreateSpace(callerCtx(), "org-1", "Marketing", "medium")

	require.NoError(t, err)
	assert.Equal(t, "space-9", space.ID())
	assert.Equal(t, CreateRequest{Name: "Marketing", DefaultLocale: "en-US", ProductRatePlanID: "medium"}, got)
}

func TestService_CreateSpaceUpstreamFailure(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/organizations/{orgID}/spaces", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"name taken"}`))
	})
	svc := NewService(newTestClient(t, r), "en-US", nil)

	_, err := svc.CreateSpace(callerCtx(), "org-1", "Marketing", "medium")

	assert.Equal(t, types.ErrCodeValidationUpstreamRejected, types.CodeOf(err))
}

func TestService_ApplyTemplate(t *testing.T) {
	var got map[string]string
	r := chi.NewRouter()
	r.Post("/spaces/{spaceID}/template_installations", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "space-9", chi.URLParam(req, "spaceID"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	})
	svc := NewService(newTestClient(t, r), "en-US", nil)

	require.NoError(t, svc.ApplyTemplate(callerCtx(), "space-9", "blog"))
	assert.Equal(t, map[string]string{"templateId": "blog"}, got)
}

func TestService_GetSpace(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/spaces/{spaceID}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "spaceID") != "space-1" {
			http.NotFound(w, req)
			return
		}
		w.Write([]byte(`{"sys":{"id":"space-1","organization":{"sys":{"id":"org-1","type":"Link"}}},"name":"Docs"}`))
	})
	svc := NewService(newTestClient(t, r), "en-US", nil)

	space, err := svc.GetSpace(callerCtx(), "space-1")
	require.NoError(t, err)
	assert.Equal(t, "Docs", space.Name)
	assert.Equal(t, "org-1", space.OrganizationID())

	_, err = svc.GetSpace(callerCtx(), "space-404")
	assert.Equal(t, types.ErrCodeNotFoundSpace, types.CodeOf(err))
}

func TestService_GetOrganization(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/organizations/{orgID}", func(w http.ResponseWriter, req *http.Request) {
		if chi.URLParam(req, "orgID") != "org-1" {
			http.NotFound(w, req)
			return
		}
		w.Write([]byte(`{"sys":{"id":"org-1"},"name":"Acme","isBillable":true,"role":"owner"}`))
	})
	svc := NewService(newTestClient(t, r), "en-US", nil)

	org, err := svc.GetOrganization(callerCtx(), "org-1")
	require.NoError(t, err)
	assert.True(t, org.IsBillable)
	assert.Equal(t, types.RoleOwner, org.Role)

	_, err = svc.GetOrganization(callerCtx(), "org-2")
	assert.Equal(t, types.ErrCodeNotFoundOrg, types.CodeOf(err))
}

func TestService_RefreshToken(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/token", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer caller-token", req.Header.Get("Authorization"))
		w.Write([]byte(`{"organizations":[{"sys":{"id":"org-1"}}],"spaces":[{"sys":{"id":"space-1"}}]}`))
	})
	svc := NewService(newTestClient(t, r), "en-US", nil)

	token, err := svc.RefreshToken(callerCtx())

	require.NoError(t, err)
	require.Len(t, token.Spaces, 1)
	assert.Equal(t, "space-1", token.Spaces[0].ID())
}
