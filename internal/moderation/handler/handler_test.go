package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressroom/internal/audit"
	"pressroom/internal/moderation/models"
	"pressroom/internal/moderation/store"
	"pressroom/internal/platform/middleware"
	dErrors "pressroom/pkg/domain-errors"
	"pressroom/pkg/testutil"
)

type stubService struct {
	transitionFn func(ctx context.Context, id string, req models.TransitionRequest) (*models.ModerationEvent, error)
	bulkFn       func(ctx context.Context, req models.BulkTransitionRequest) ([]models.ItemResult, error)
	getFn        func(ctx context.Context, id string) (*models.ModerationEvent, error)
	listFn       func(ctx context.Context, filter store.ListFilter) ([]*models.ModerationEvent, error)
	updatesFn    func(ctx context.Context, assignee string, since time.Time) ([]*models.ModerationEvent, error)
	countFn      func(ctx context.Context, userID string) (int, error)
	trailFn      func(ctx context.Context, id string) ([]audit.Record, error)
	recentFn     func(ctx context.Context, limit int) ([]audit.Record, error)
}

func (s *stubService) Transition(ctx context.Context, id string, req models.TransitionRequest) (*models.ModerationEvent, error) {
	return s.transitionFn(ctx, id, req)
}

func (s *stubService) BulkTransition(ctx context.Context, req models.BulkTransitionRequest) ([]models.ItemResult, error) {
	return s.bulkFn(ctx, req)
}

func (s *stubService) Get(ctx context.Context, id string) (*models.ModerationEvent, error) {
	return s.getFn(ctx, id)
}

func (s *stubService) List(ctx context.Context, filter store.ListFilter) ([]*models.ModerationEvent, error) {
	return s.listFn(ctx, filter)
}

func (s *stubService) UpdatesSince(ctx context.Context, assignee string, since time.Time) ([]*models.ModerationEvent, error) {
	return s.updatesFn(ctx, assignee, since)
}

func (s *stubService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.countFn(ctx, userID)
}

func (s *stubService) AuditTrail(ctx context.Context, id string) ([]audit.Record, error) {
	return s.trailFn(ctx, id)
}

func (s *stubService) RecentAudit(ctx context.Context, limit int) ([]audit.Record, error) {
	return s.recentFn(ctx, limit)
}

type allowValidator struct{}

func (allowValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != "valid-token" {
		return nil, fmt.Errorf("invalid token")
	}
	return &middleware.JWTClaims{UserID: "rev-1", SessionID: "sess-1"}, nil
}

func newTestRouter(t *testing.T, svc Service) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(svc, logger, nil, allowValidator{})
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, path, body)
	req.Header.Set("Authorization", "Bearer valid-token")
	return testutil.DoRequest(r, req)
}

func TestHandleTransition(t *testing.T) {
	svc := &stubService{
		transitionFn: func(_ context.Context, id string, req models.TransitionRequest) (*models.ModerationEvent, error) {
			assert.Equal(t, "ev-1", id)
			assert.Equal(t, "assign", req.Action)
			assert.Equal(t, "rev-1", req.Assignee)
			return &models.ModerationEvent{ID: id, Status: models.StatusInReview}, nil
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/admin/events/ev-1/transition",
		models.TransitionRequest{Action: "assign", Assignee: "rev-1"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.TransitionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, models.StatusInReview, resp.Item.Status)
}

func TestHandleTransitionNotFound(t *testing.T) {
	svc := &stubService{
		transitionFn: func(context.Context, string, models.TransitionRequest) (*models.ModerationEvent, error) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/admin/events/missing/transition",
		models.TransitionRequest{Action: "resolve"})

	testutil.AssertStatusAndError(t, w, http.StatusNotFound, "not_found")
}

func TestHandleTransitionBadBody(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/admin/events/ev-1/transition", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer valid-token")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTransitionUnauthorized(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/admin/events/ev-1/transition", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleBulkTransitionMixedResults(t *testing.T) {
	svc := &stubService{
		bulkFn: func(_ context.Context, req models.BulkTransitionRequest) ([]models.ItemResult, error) {
			assert.Equal(t, []string{"ev-1", "ev-2", "missing"}, req.IDs)
			return []models.ItemResult{
				{ID: "ev-1", OK: true},
				{ID: "ev-2", OK: true},
				{ID: "missing", OK: false, Error: models.ItemErrNotFoundOrNotInternal},
			}, nil
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/admin/events/bulk",
		models.BulkTransitionRequest{IDs: []string{"ev-1", "ev-2", "missing"}, Action: "resolve"})

	// Mixed outcomes still answer 200.
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.BulkTransitionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.Len(t, resp.Results, 3)
	assert.False(t, resp.Results[2].OK)
	assert.Equal(t, models.ItemErrNotFoundOrNotInternal, resp.Results[2].Error)
}

func TestHandleBulkTransitionEmptyIDs(t *testing.T) {
	svc := &stubService{
		bulkFn: func(_ context.Context, req models.BulkTransitionRequest) ([]models.ItemResult, error) {
			return nil, req.Validate()
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/admin/events/bulk",
		models.BulkTransitionRequest{Action: "resolve"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListStatusFilter(t *testing.T) {
	svc := &stubService{
		listFn: func(_ context.Context, filter store.ListFilter) ([]*models.ModerationEvent, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, models.StatusFlagged, *filter.Status)
			return []*models.ModerationEvent{{ID: "ev-9", Status: models.StatusFlagged}}, nil
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodGet, "/admin/events?status=flagged", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "ev-9", resp.Items[0].ID)
}

func TestHandleListRejectsUnknownStatus(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodGet, "/admin/events?status=bogus", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUpdatesSince(t *testing.T) {
	cutoff := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubService{
		updatesFn: func(_ context.Context, assignee string, since time.Time) ([]*models.ModerationEvent, error) {
			assert.Equal(t, "rev-1", assignee)
			assert.True(t, since.Equal(cutoff))
			return nil, nil
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodGet, "/admin/events/updates?since=2026-03-01T12:00:00Z", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleUpdatesSinceMissingParam(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodGet, "/admin/events/updates", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleUnreadCount(t *testing.T) {
	svc := &stubService{
		countFn: func(_ context.Context, userID string) (int, error) {
			assert.Equal(t, "rev-1", userID)
			return 4, nil
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodGet, "/admin/notifications/count", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)
}

func TestHandleAuditTrail(t *testing.T) {
	actor := "lead-1"
	svc := &stubService{
		trailFn: func(_ context.Context, id string) ([]audit.Record, error) {
			assert.Equal(t, "ev-1", id)
			return []audit.Record{
				{ID: "rec-1", Action: models.ActionAssign, ActorID: &actor, TargetID: "ev-1"},
				{ID: "rec-2", Action: models.ActionResolve, ActorID: &actor, TargetID: "ev-1"},
			}, nil
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodGet, "/admin/events/ev-1/audit", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp auditResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, models.ActionAssign, resp.Records[0].Action)
	assert.Equal(t, models.ActionResolve, resp.Records[1].Action)
}

func TestHandleAuditTrailNotFound(t *testing.T) {
	svc := &stubService{
		trailFn: func(_ context.Context, _ string) ([]audit.Record, error) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodGet, "/admin/events/missing/audit", nil)

	testutil.AssertStatusAndError(t, w, http.StatusNotFound, "not_found")
}

func TestHandleRecentAudit(t *testing.T) {
	svc := &stubService{
		recentFn: func(_ context.Context, limit int) ([]audit.Record, error) {
			assert.Equal(t, 5, limit)
			return []audit.Record{{ID: "rec-9", Action: models.ActionResolve, TargetID: "ev-9"}}, nil
		},
	}
	r := newTestRouter(t, svc)

	w := doJSON(t, r, http.MethodGet, "/admin/audit?limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp auditResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "ev-9", resp.Records[0].TargetID)
}

func TestHandleRecentAuditRejectsBadLimit(t *testing.T) {
	r := newTestRouter(t, &stubService{})

	w := doJSON(t, r, http.MethodGet, "/admin/audit?limit=many", nil)

	testutil.AssertStatusAndError(t, w, http.StatusBadRequest, "bad_request")
}
