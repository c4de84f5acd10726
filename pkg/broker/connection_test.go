package broker

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_CloseExactlyOnce(t *testing.T) {
	r := newTestRegistry(Options{})
	tr := &fakeTransport{}
	conn := mustAdd(t, r, "c1", tr, "u1", "x")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn.Close(CloseNormal, "bye")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, tr.closeCount())
	assert.False(t, conn.Alive())
	assert.Nil(t, r.Get("c1"))

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done channel should be closed")
	}
}

func TestConnection_SendAfterClose(t *testing.T) {
	r := newTestRegistry(Options{})
	tr := &fakeTransport{}
	conn := mustAdd(t, r, "c1", tr, "", "")

	conn.Close(CloseNormal, "")

	err := conn.Send(textFrame("too late"))
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Equal(t, 0, tr.frameCount())
}

func TestConnection_WriteFailureTearsDown(t *testing.T) {
	r := newTestRegistry(Options{})
	tr := &fakeTransport{writeErr: errors.New("connection reset")}
	conn := mustAdd(t, r, "c1", tr, "u1", "x")

	err := conn.Send(textFrame("doomed"))
	require.ErrorIs(t, err, ErrWrite)

	assert.False(t, conn.Alive())
	assert.Nil(t, r.Get("c1"))
	assert.Equal(t, 0, r.CountByUser("u1"))
	assert.Equal(t, 0, r.CountByChannel("x"))
}

func TestConnection_EncodeFailureKeepsConnection(t *testing.T) {
	r := newTestRegistry(Options{})
	tr := &fakeTransport{}
	conn := mustAdd(t, r, "c1", tr, "", "")

	err := conn.Send(brokenFrame())
	require.ErrorIs(t, err, ErrEncode)

	assert.True(t, conn.Alive())
	require.NoError(t, conn.Send(textFrame("still works")))
	assert.Equal(t, 1, tr.frameCount())
}

func TestConnection_SendsDoNotInterleave(t *testing.T) {
	r := newTestRegistry(Options{})
	tr := &fakeTransport{}
	conn := mustAdd(t, r, "c1", tr, "", "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conn.Send(textFrame("frame"))
		}()
	}
	wg.Wait()

	// Every write arrived whole: the transport saw 20 intact frames.
	require.Equal(t, 20, tr.frameCount())
	for _, f := range tr.frames {
		assert.Equal(t, "frame", string(f))
	}
	assert.Equal(t, int64(20), conn.FramesSent())
}

func TestConnection_Info(t *testing.T) {
	r := newTestRegistry(Options{})
	conn := mustAdd(t, r, "c1", &fakeTransport{}, "u1", "orders")
	require.NoError(t, conn.Send(textFrame("x")))

	info := conn.Info()
	assert.Equal(t, "c1", info.ID)
	assert.Equal(t, "u1", info.UserID)
	assert.Equal(t, "orders", info.Channel)
	assert.Equal(t, TransportWebSocket, info.Transport)
	assert.Equal(t, int64(1), info.FramesSent)
}

func TestGenerateConnectionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateConnectionID()
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
