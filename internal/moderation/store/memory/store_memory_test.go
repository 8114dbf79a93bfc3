package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressroom/internal/moderation/models"
	"pressroom/internal/moderation/store"
	"pressroom/pkg/sentinel"
)

func seedEvent(t *testing.T, s *InMemoryStore, id string, status models.Status, assignee *string) *models.ModerationEvent {
	t.Helper()
	ev := &models.ModerationEvent{
		ID:         id,
		Type:       "comment_report",
		Status:     status,
		AssignedTo: assignee,
		Visibility: models.VisibilityInternal,
		Title:      "title " + id,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, s.Save(context.Background(), ev))
	return ev
}

func strptr(s string) *string { return &s }

func TestGetReturnsCopy(t *testing.T) {
	s := NewInMemoryStore()
	seedEvent(t, s, "e1", models.StatusOpen, nil)

	got, err := s.Get(context.Background(), "e1")
	require.NoError(t, err)

	// Mutating the returned value must not leak into the store.
	got.Status = models.StatusResolved
	again, err := s.Get(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, again.Status)
}

func TestGetUnknownID(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestListFilters(t *testing.T) {
	s := NewInMemoryStore()
	seedEvent(t, s, "e1", models.StatusOpen, strptr("rev1"))
	seedEvent(t, s, "e2", models.StatusResolved, strptr("rev1"))
	seedEvent(t, s, "e3", models.StatusOpen, nil)

	status := models.StatusOpen
	got, err := s.List(context.Background(), store.ListFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assignee := "rev1"
	got, err = s.List(context.Background(), store.ListFilter{AssignedTo: &assignee})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.List(context.Background(), store.ListFilter{Status: &status, AssignedTo: &assignee})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
}

func TestCountAssignedActive(t *testing.T) {
	s := NewInMemoryStore()
	seedEvent(t, s, "e1", models.StatusOpen, strptr("rev1"))
	seedEvent(t, s, "e2", models.StatusInReview, strptr("rev1"))
	seedEvent(t, s, "e3", models.StatusFlagged, strptr("rev1"))
	seedEvent(t, s, "e4", models.StatusResolved, strptr("rev1"))
	seedEvent(t, s, "e5", models.StatusOpen, strptr("rev2"))

	count, err := s.CountAssignedActive(context.Background(), "rev1")
	require.NoError(t, err)
	assert.Equal(t, 3, count, "resolved and other users' events must not count")
}

func TestListUpdatedSince(t *testing.T) {
	s := NewInMemoryStore()
	seedEvent(t, s, "e1", models.StatusOpen, strptr("rev1"))

	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)
	seedEvent(t, s, "e2", models.StatusOpen, strptr("rev1"))
	seedEvent(t, s, "e3", models.StatusOpen, strptr("rev2"))

	got, err := s.ListUpdatedSince(context.Background(), "rev1", cutoff)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e2", got[0].ID)
}
