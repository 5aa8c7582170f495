package calls

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_SingleCallPerAgent(t *testing.T) {
	m := NewSessionManager()
	agent := uuid.New()

	sess, err := m.Start(agent, uuid.New())
	require.NoError(t, err)
	require.NotNil(t, sess)

	// Second start for the same agent is rejected.
	_, err = m.Start(agent, uuid.New())
	assert.ErrorIs(t, err, ErrCallInProgress)

	// A different agent is unaffected.
	_, err = m.Start(uuid.New(), uuid.New())
	assert.NoError(t, err)
}

func TestSessionManager_ActiveDoesNotConsume(t *testing.T) {
	m := NewSessionManager()
	agent := uuid.New()
	lead := uuid.New()

	_, err := m.Start(agent, lead)
	require.NoError(t, err)

	// Reading the session any number of times leaves it in place.
	for i := 0; i < 3; i++ {
		sess, ok := m.Active(agent)
		require.True(t, ok)
		assert.Equal(t, lead, sess.LeadID)
	}

	m.Finish(agent)
	_, ok := m.Active(agent)
	assert.False(t, ok)

	// Finishing twice is harmless.
	m.Finish(agent)

	// And the agent can start fresh afterwards.
	_, err = m.Start(agent, uuid.New())
	assert.NoError(t, err)
}

func TestSession_Duration(t *testing.T) {
	start := time.Now()
	s := &Session{StartedAt: start}
	assert.Equal(t, 90, s.Duration(start.Add(90*time.Second)))
	assert.Equal(t, 0, s.Duration(start.Add(500*time.Millisecond)))
}
