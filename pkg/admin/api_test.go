package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getrelayd/relayd/pkg/broker"
	"github.com/getrelayd/relayd/pkg/sse"
	"github.com/getrelayd/relayd/pkg/websocket"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
}

func (t *fakeTransport) Write(p []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append(t.frames, append([]byte(nil), p...))
	return nil
}

func (t *fakeTransport) Close(code int, reason string) error { return nil }

func (t *fakeTransport) frameCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

func newTestAPI(t *testing.T) (*API, *sse.Broker, *websocket.Broker) {
	t.Helper()
	opts := broker.Options{HeartbeatInterval: time.Hour}
	sseBroker := sse.NewBroker(opts)
	wsBroker := websocket.NewBroker(opts)
	t.Cleanup(func() {
		sseBroker.Shutdown()
		wsBroker.Shutdown()
	})
	return NewAPI(sseBroker, wsBroker, nil), sseBroker, wsBroker
}

func TestAPI_ListConnections(t *testing.T) {
	api, sseBroker, wsBroker := newTestAPI(t)

	_, err := sseBroker.Add("s1", &fakeTransport{}, "u1", "news")
	require.NoError(t, err)
	_, err = wsBroker.Add("w1", &fakeTransport{}, "u2", "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/connections", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListConnectionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Connections, 2)

	ids := map[string]broker.TransportKind{}
	for _, c := range resp.Connections {
		ids[c.ID] = c.Transport
	}
	assert.Equal(t, broker.TransportSSE, ids["s1"])
	assert.Equal(t, broker.TransportWebSocket, ids["w1"])
}

func TestAPI_Stats(t *testing.T) {
	api, sseBroker, _ := newTestAPI(t)

	_, err := sseBroker.Add("s1", &fakeTransport{}, "u1", "news")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.SSE)
	assert.Equal(t, 1, resp.SSE.ActiveConnections)
	require.NotNil(t, resp.WebSocket)
	assert.Equal(t, 0, resp.WebSocket.ActiveConnections)
}

func TestAPI_BroadcastToChannel(t *testing.T) {
	api, sseBroker, wsBroker := newTestAPI(t)

	sseTr, wsTr := &fakeTransport{}, &fakeTransport{}
	_, err := sseBroker.Add("s1", sseTr, "", "news")
	require.NoError(t, err)
	_, err = wsBroker.Add("w1", wsTr, "", "news")
	require.NoError(t, err)

	body, _ := json.Marshal(BroadcastRequest{
		Channel: "news",
		Event:   "headline",
		Data:    map[string]any{"text": "hi"},
	})
	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/broadcast", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BroadcastResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Delivered)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 1, sseTr.frameCount())
	assert.Equal(t, 1, wsTr.frameCount())
}

func TestAPI_BroadcastSingleTransport(t *testing.T) {
	api, sseBroker, wsBroker := newTestAPI(t)

	sseTr, wsTr := &fakeTransport{}, &fakeTransport{}
	_, err := sseBroker.Add("s1", sseTr, "", "")
	require.NoError(t, err)
	_, err = wsBroker.Add("w1", wsTr, "", "")
	require.NoError(t, err)

	body, _ := json.Marshal(BroadcastRequest{Transport: "websocket", Type: "note", Data: "x"})
	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/broadcast", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, sseTr.frameCount())
	assert.Equal(t, 1, wsTr.frameCount())
}

func TestAPI_BroadcastBadBody(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/broadcast", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Disconnect(t *testing.T) {
	api, sseBroker, _ := newTestAPI(t)

	_, err := sseBroker.Add("s1", &fakeTransport{}, "u1", "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/connections/s1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, sseBroker.Get("s1"))
}

func TestAPI_DisconnectUnknown(t *testing.T) {
	api, _, _ := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/connections/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
