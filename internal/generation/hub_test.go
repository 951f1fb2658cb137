package generation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sports-reconnect/certificate-portal/certificate-portal-backend/internal/batch"
)

func dialHub(t *testing.T, hub *Hub, jobID uuid.UUID) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, hub.HandleConnection(w, r, jobID))
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(jobID) == 1
	}, time.Second, 5*time.Millisecond)

	return conn
}

func TestHubDeliversProgress(t *testing.T) {
	hub := NewHub(zap.NewNop())
	jobID := uuid.New()
	conn := dialHub(t, hub, jobID)

	hub.Publish(ProgressMessage{JobID: jobID, Status: batch.StatusRunning, Progress: 0.5})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg ProgressMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, jobID, msg.JobID)
	assert.Equal(t, batch.StatusRunning, msg.Status)
	assert.Equal(t, 0.5, msg.Progress)
}

func TestHubClosesAfterTerminalStatus(t *testing.T) {
	hub := NewHub(zap.NewNop())
	jobID := uuid.New()
	conn := dialHub(t, hub, jobID)

	hub.Publish(ProgressMessage{JobID: jobID, Status: batch.StatusCompleted, Progress: 1})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg ProgressMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, batch.StatusCompleted, msg.Status)

	// The server closes the connection after the terminal frame.
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	require.Eventually(t, func() bool {
		return hub.SubscriberCount(jobID) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHubScopesMessagesToJob(t *testing.T) {
	hub := NewHub(zap.NewNop())
	jobA, jobB := uuid.New(), uuid.New()
	connA := dialHub(t, hub, jobA)

	hub.Publish(ProgressMessage{JobID: jobB, Status: batch.StatusRunning, Progress: 0.25})
	hub.Publish(ProgressMessage{JobID: jobA, Status: batch.StatusRunning, Progress: 0.75})

	connA.SetReadDeadline(time.Now().Add(time.Second))
	var msg ProgressMessage
	require.NoError(t, connA.ReadJSON(&msg))
	assert.Equal(t, jobA, msg.JobID)
	assert.Equal(t, 0.75, msg.Progress)
}
