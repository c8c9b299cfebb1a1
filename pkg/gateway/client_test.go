package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessage(t *testing.T) {
	var received PeerMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(MessageResponse{Status: "ok", Received: received.Message})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(0)
	resp, err := c.SendMessage(srv.URL+"/message", "ping")
	require.NoError(t, err)

	assert.Equal(t, KindText, received.Kind())
	assert.Equal(t, "ping", received.Message)
	assert.Contains(t, resp, `"received":"ping"`)
}

func TestClient_ShareTool(t *testing.T) {
	var received PeerMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"queued","name":"square"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(0)
	_, err := c.ShareTool(srv.URL+"/message", "square", "function square(x) { return x * x; }")
	require.NoError(t, err)

	assert.Equal(t, KindToolShare, received.Kind())
	assert.Equal(t, "square", received.Name)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(50 * time.Millisecond)
	_, err := c.SendMessage(srv.URL+"/message", "slow")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestClient_ConnectionRefusedIsNotTimeout(t *testing.T) {
	c := NewClient(time.Second)
	_, err := c.SendMessage("http://127.0.0.1:1/message", "nobody home")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestPeerMessage_Kind(t *testing.T) {
	assert.Equal(t, KindText, PeerMessage{Message: "hi"}.Kind())
	assert.Equal(t, KindToolShare, PeerMessage{Name: "t", Source: "function t() {}"}.Kind())
	assert.Equal(t, KindText, PeerMessage{Name: "t"}.Kind(), "name without source is not a tool-share")
}
