package custom

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/my-little-thingz/backend-gifts/internal/common"
	"github.com/my-little-thingz/backend-gifts/internal/events"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

type fakeRequestQueries struct {
	requests []repo.CustomRequest
}

func (f *fakeRequestQueries) InsertCustomRequest(_ context.Context, arg repo.InsertCustomRequestParams) (repo.CustomRequest, error) {
	cr := repo.CustomRequest{
		ID:          repo.NewUUID(),
		UserID:      arg.UserID,
		Title:       arg.Title,
		Description: arg.Description,
		Occasion:    arg.Occasion,
		Deadline:    arg.Deadline,
		Source:      arg.Source,
		Status:      repo.CustomRequestPending,
	}
	f.requests = append(f.requests, cr)
	return cr, nil
}

func (f *fakeRequestQueries) ListCustomRequests(_ context.Context, userID pgtype.UUID) ([]repo.CustomRequest, error) {
	var out []repo.CustomRequest
	for _, cr := range f.requests {
		if cr.UserID.Bytes == userID.Bytes {
			out = append(out, cr)
		}
	}
	return out, nil
}

func (f *fakeRequestQueries) HasCompletedCustomRequest(_ context.Context, userID pgtype.UUID) (bool, error) {
	for _, cr := range f.requests {
		if cr.UserID.Bytes == userID.Bytes && cr.Status == repo.CustomRequestCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestQueries) UpdateCustomRequestStatus(_ context.Context, requestID pgtype.UUID, status string) (int64, error) {
	for i := range f.requests {
		if f.requests[i].ID.Bytes == requestID.Bytes {
			f.requests[i].Status = status
			return 1, nil
		}
	}
	return 0, nil
}

type recordingStore struct{ topics []string }

func (r *recordingStore) InsertDomainEvent(_ context.Context, topic, _ string, _ []byte) error {
	r.topics = append(r.topics, topic)
	return nil
}

func requestRouter(q *fakeRequestQueries, store *recordingStore) http.Handler {
	svc := &Service{Q: q}
	if store != nil {
		svc.Events = &events.Bus{Store: store}
	}
	h := NewHandler(svc)
	r := chi.NewRouter()
	r.Use(common.IdentityMiddleware)
	r.Post("/api/v1/custom-requests", h.Create)
	r.Get("/api/v1/custom-requests", h.List)
	r.Get("/api/v1/custom-requests/status", h.Status)
	r.Patch("/api/v1/admin/custom-requests/{requestId}", h.Resolve)
	return r
}

func authedRequest(method, target string, uid pgtype.UUID, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(common.UserIDHeader, repo.UUIDString(uid))
	return req
}

func TestCreateRequestEmitsEvent(t *testing.T) {
	q := &fakeRequestQueries{}
	store := &recordingStore{}
	uid := repo.NewUUID()

	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/v1/custom-requests", uid, map[string]any{
		"title":    "hand painted portrait",
		"occasion": "anniversary",
		"deadline": "2025-07-01",
	})
	requestRouter(q, store).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, q.requests, 1)
	require.Equal(t, repo.CustomRequestPending, q.requests[0].Status)
	require.True(t, q.requests[0].Deadline.Valid)
	require.Equal(t, []string{events.TopicCustomRequestCreated}, store.topics)
}

func TestCreateRequestValidation(t *testing.T) {
	q := &fakeRequestQueries{}
	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/v1/custom-requests", repo.NewUUID(), map[string]any{"title": "ab"})
	requestRouter(q, nil).ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Empty(t, q.requests)
}

func TestApprovalStatusFlipsOnResolution(t *testing.T) {
	q := &fakeRequestQueries{}
	store := &recordingStore{}
	uid := repo.NewUUID()
	router := requestRouter(q, store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/api/v1/custom-requests", uid, map[string]any{"title": "resin keepsake"}))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/api/v1/custom-requests/status", uid, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"data":{"approved":false}}`, rr.Body.String())

	requestID := repo.UUIDString(q.requests[0].ID)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPatch, "/api/v1/admin/custom-requests/"+requestID, uid, map[string]any{"status": "completed"}))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/api/v1/custom-requests/status", uid, nil))
	require.JSONEq(t, `{"data":{"approved":true}}`, rr.Body.String())
	require.Equal(t, []string{events.TopicCustomRequestCreated, events.TopicCustomRequestResolved}, store.topics)
}

func TestResolveRejectsUnknownStatus(t *testing.T) {
	q := &fakeRequestQueries{}
	rr := httptest.NewRecorder()
	req := authedRequest(http.MethodPatch, "/api/v1/admin/custom-requests/"+repo.UUIDString(repo.NewUUID()), repo.NewUUID(), map[string]any{"status": "maybe"})
	requestRouter(q, nil).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
