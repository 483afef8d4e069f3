package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateAdmitsAllWhenNoTokenConfigured(t *testing.T) {
	m := NewManager("")

	sess, err := m.Authenticate("anything-or-nothing", "client-1")
	require.NoError(t, err)
	assert.Len(t, sess.ID, 32, "128 bits hex-encoded is 32 chars")
	assert.NotEmpty(t, sess.EstablishedAt)
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	m := NewManager("correct-horse")

	_, err := m.Authenticate("wrong", "client-1")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestAuthenticateAcceptsMatchingToken(t *testing.T) {
	m := NewManager("correct-horse")

	sess, err := m.Authenticate("correct-horse", "client-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
}

func TestSessionIDsAreUnique(t *testing.T) {
	m := NewManager("")
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sess, err := m.Authenticate("", "c")
		require.NoError(t, err)
		assert.False(t, seen[sess.ID])
		seen[sess.ID] = true
	}
}

func TestGetAndInvalidate(t *testing.T) {
	m := NewManager("")
	sess, err := m.Authenticate("", "client-1")
	require.NoError(t, err)

	got, err := m.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	m.Invalidate(sess.ID)
	_, err = m.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTouchUpdatesLastActivity(t *testing.T) {
	m := NewManager("")
	sess, err := m.Authenticate("", "client-1")
	require.NoError(t, err)

	before := sess.LastActivityAt
	sess.Touch()
	assert.True(t, sess.LastActivityAt.After(before) || sess.LastActivityAt.Equal(before))
}
