package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/kinematics"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/sim"
	"github.com/zeusync/robosim/internal/core/world"
)

func newWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(10, 10)
	require.NoError(t, err)
	_, err = w.AddRobot("scout", kinematics.NewPose(2, 5, 0), world.WithCommand(kinematics.Command{Forward: 1}))
	require.NoError(t, err)
	return w
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) world.Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var snap world.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	return snap
}

func TestSnapshotEndpoint(t *testing.T) {
	stream := NewStream(DefaultServerConfig(), log.NewNop())
	srv := httptest.NewServer(stream.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	w := newWorld(t)
	simulation, err := sim.New(w, sim.WithObserver(stream))
	require.NoError(t, err)
	require.NoError(t, simulation.Run(context.Background(), nil, sim.RunOptions{Steps: 3}))

	resp, err = http.Get(srv.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "3", resp.Header.Get("X-Robosim-Step"))

	var snap world.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, uint64(3), snap.Steps)
	require.Len(t, snap.Robots, 1)
	assert.InDelta(t, 2.3, snap.Robots[0].Pose.X, 1e-9)
}

func TestWebSocketPushesSnapshots(t *testing.T) {
	stream := NewStream(DefaultServerConfig(), log.NewNop())
	srv := httptest.NewServer(stream.Handler())
	defer srv.Close()

	w := newWorld(t)
	simulation, err := sim.New(w, sim.WithObserver(stream))
	require.NoError(t, err)
	require.NoError(t, simulation.Step())

	conn := dial(t, srv)

	// The latest snapshot is sent on connect.
	first := readSnapshot(t, conn)
	assert.Equal(t, uint64(1), first.Steps)

	require.Eventually(t, func() bool { return stream.Stats().Clients == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, simulation.Step())
	second := readSnapshot(t, conn)
	assert.Equal(t, uint64(2), second.Steps)
	assert.Equal(t, w.Snapshot().Fingerprint(), second.Fingerprint())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return stream.Stats().Clients == 0 }, time.Second, 5*time.Millisecond)
}

func TestNonFiniteCommandKeepsStreaming(t *testing.T) {
	stream := NewStream(DefaultServerConfig(), log.NewNop())
	srv := httptest.NewServer(stream.Handler())
	defer srv.Close()

	w := newWorld(t)
	scout, err := w.RobotByName("scout")
	require.NoError(t, err)
	require.NoError(t, scout.Forward(math.NaN()))

	simulation, err := sim.New(w, sim.WithObserver(stream))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, simulation.Step())
	}
	assert.Equal(t, uint64(5), stream.Stats().Frames)

	resp, err := http.Get(srv.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap world.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, uint64(5), snap.Steps)
	assert.Equal(t, 2.0, snap.Robots[0].Pose.X)
}

func TestSlowClientDropsFrames(t *testing.T) {
	stream := NewStream(Config{SendBuffer: 1}, log.NewNop())
	slow := newClient(nil, 1)
	require.NoError(t, stream.register(slow))

	w := newWorld(t)
	for i := 0; i < 3; i++ {
		stream.Observe(w.Snapshot())
	}

	stats := stream.Stats()
	assert.Equal(t, uint64(3), stats.Frames)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Len(t, slow.send, 1)

	slow.close()
	assert.False(t, slow.offer([]byte("x")), "closed clients take nothing")
}

func TestMaxClients(t *testing.T) {
	stream := NewStream(Config{MaxClients: 1}, log.NewNop())
	require.NoError(t, stream.register(newClient(nil, 1)))
	assert.ErrorIs(t, stream.register(newClient(nil, 1)), ErrMaxClientsReached)
}

func TestStartStop(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	stream := NewStream(cfg, log.NewNop())
	assert.Nil(t, stream.Addr())

	require.NoError(t, stream.Start(context.Background()))
	assert.ErrorIs(t, stream.Start(context.Background()), ErrServerAlreadyRunning)
	require.NotNil(t, stream.Addr())

	stream.Observe(newWorld(t).Snapshot())
	resp, err := http.Get("http://" + stream.Addr().String() + "/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, stream.Stop(context.Background()))
	assert.ErrorIs(t, stream.Stop(context.Background()), ErrServerNotRunning)
	assert.False(t, stream.Stats().Running)

	require.NoError(t, stream.Close())
	assert.ErrorIs(t, stream.Start(context.Background()), ErrServerClosed)
}

func TestStopsWithContext(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	stream := NewStream(cfg, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, stream.Start(ctx))
	cancel()
	assert.Eventually(t, func() bool { return !stream.Stats().Running }, 2*time.Second, 10*time.Millisecond)
}

func TestStartListenFailure(t *testing.T) {
	stream := NewStream(Config{ListenAddr: "256.0.0.1:bad"}, log.NewNop())
	err := stream.Start(context.Background())
	assert.ErrorIs(t, err, ErrListenerFailed)
	assert.False(t, stream.Stats().Running)
}
