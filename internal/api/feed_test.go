package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecom-service/internal/models"
	"ecom-service/internal/worker"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderFeedBroadcast(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/admin/orders/feed?token=" + s.token(t, models.RoleAdmin)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.feed.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.feed.Broadcast(worker.FeedMessage{
		Type:  models.EventTypeOrderPlaced,
		Event: models.OrderPlacedEvent{OrderID: 77},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type  string `json:"type"`
		Event struct {
			OrderID int64 `json:"order_id"`
		} `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, models.EventTypeOrderPlaced, msg.Type)
	assert.Equal(t, int64(77), msg.Event.OrderID)

	conn.Close()
	assert.Eventually(t, func() bool { return s.feed.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOrderFeedRequiresAdmin(t *testing.T) {
	s := newTestServer(t, nil)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/admin/orders/feed"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token="+s.token(t, models.RoleCustomer), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
