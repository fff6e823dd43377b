package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/gang"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type fixed float64

func (f fixed) Float64() float64 { return float64(f) }
func (f fixed) Intn(n int) int   { return min(int(float64(f)*float64(n)), n-1) }

type fakeTicker struct {
	tick  uint64
	speed float64
}

func (f *fakeTicker) Tick() uint64       { return f.tick }
func (f *fakeTicker) Speed() float64     { return f.speed }
func (f *fakeTicker) SetSpeed(v float64) { f.speed = v }
func (f *fakeTicker) Step() uint64       { f.tick++; return f.tick }

func quiet() engine.Option {
	return engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newStore(t *testing.T, src fixed) *Store {
	t.Helper()
	res := engine.New(1, quiet()).InitializeGangs(gang.NewState(gang.DefaultConfig()), []gang.Seed{
		{ID: "saints", Name: "Iron Saints", Color: "red", LeaderID: "ana", MemberIDs: []string{"bo", "cy"}},
		{ID: "kings", Name: "Ghost Kings", Color: "blue", LeaderID: "dee", MemberIDs: []string{"eli", "fay"}},
	})
	require.NoError(t, res.Err)
	return NewStore(res.State, t0, 7, engine.WithSource(src), quiet())
}

func newServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := &Server{Store: newStore(t, fixed(0)), AdminKey: "letmein", Sched: &fakeTicker{speed: 1}}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func post(t *testing.T, url, token, body string, into any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestStatusAndGangs(t *testing.T) {
	_, ts := newServer(t)

	var status map[string]any
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/api/v1/status", &status))
	assert.Equal(t, 2.0, status["gangs"])
	assert.Equal(t, 6.0, status["living"])
	assert.Equal(t, "Day 1, 00:00 (week 1)", status["yard_time"])
	assert.Equal(t, 1.0, status["speed"])

	var gangs []engine.GangStats
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/api/v1/gangs", &gangs))
	require.Len(t, gangs, 2)
	assert.Equal(t, "kings", gangs[0].ID)
}

func TestGangAndMemberDetail(t *testing.T) {
	_, ts := newServer(t)

	var detail struct {
		Gang    engine.GangStats `json:"gang"`
		Members []gang.Member    `json:"members"`
	}
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/api/v1/gang/saints", &detail))
	assert.Equal(t, 3, detail.Gang.Members)
	require.Len(t, detail.Members, 3)
	assert.Equal(t, "ana", detail.Members[0].ID)
	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/api/v1/gang/nobody", nil))

	var member struct {
		Member  engine.MemberInfo `json:"member"`
		Context string            `json:"context"`
	}
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/api/v1/member/dee", &member))
	assert.True(t, member.Member.IsLeader)
	assert.Contains(t, member.Context, "You lead the Ghost Kings")
	assert.Equal(t, http.StatusNotFound, get(t, ts.URL+"/api/v1/member/nobody", nil))
}

func TestAdminAuth(t *testing.T) {
	s, ts := newServer(t)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts.URL+"/api/v1/speed", "", `{"speed":2}`, nil))
	assert.Equal(t, http.StatusUnauthorized, post(t, ts.URL+"/api/v1/speed", "wrong", `{"speed":2}`, nil))

	var speed map[string]float64
	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/api/v1/speed", "letmein", `{"speed":4}`, &speed))
	assert.Equal(t, 4.0, speed["speed"])
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/v1/speed", "letmein", `{"speed":-1}`, nil))

	s.AdminKey = ""
	assert.Equal(t, http.StatusForbidden, post(t, ts.URL+"/api/v1/speed", "letmein", `{"speed":2}`, nil))
}

func TestActions(t *testing.T) {
	s, ts := newServer(t)
	url := ts.URL + "/api/v1/action"

	var out struct {
		Message string                 `json:"message"`
		Value   engine.ViolenceOutcome `json:"value"`
		Events  []engine.Event         `json:"events"`
	}
	require.Equal(t, http.StatusOK, post(t, url, "letmein", `{"type":"violence","member_id":"bo","target_id":"eli"}`, &out))
	assert.True(t, out.Value.Success)
	assert.NotEmpty(t, out.Events)
	assert.Equal(t, 1, s.Store.Snapshot().Members["bo"].Hits)
	assert.NotEmpty(t, s.Store.Recent(10, ""))

	var fail map[string]string
	assert.Equal(t, http.StatusBadRequest, post(t, url, "letmein", `{"type":"violence","member_id":"bo","target_id":"bo"}`, &fail))
	assert.Contains(t, fail["error"], "violence")
	assert.Equal(t, http.StatusConflict, post(t, url, "letmein", `{"type":"recruit","gang_id":"saints","target_id":"cy"}`, nil))
	assert.Equal(t, http.StatusBadRequest, post(t, url, "letmein", `{"type":"dance"}`, nil))
	assert.Equal(t, http.StatusOK, post(t, url, "letmein", `{"type":"purchase","gang_id":"saints","item":"beer","member_id":"bo"}`, nil))
	assert.Equal(t, http.StatusPaymentRequired, post(t, url, "letmein", `{"type":"deal","member_id":"cy"}`, nil))
}

func TestEnvironmentEndpoint(t *testing.T) {
	s, ts := newServer(t)
	url := ts.URL + "/api/v1/environment"

	var env map[string]any
	require.Equal(t, http.StatusOK, post(t, url, "letmein", `{"intensity":0.9,"death_enabled":false}`, &env))
	assert.Equal(t, 0.9, env["intensity"])
	assert.False(t, s.Store.Snapshot().Config.DeathEnabled)

	assert.Equal(t, http.StatusBadRequest, post(t, url, "letmein", `{"rival_hostility":9}`, nil))
	require.Equal(t, http.StatusOK, get(t, url, &env))
	assert.Equal(t, 0.9, env["intensity"])
}

func TestTickEndpoint(t *testing.T) {
	s, ts := newServer(t)
	var out map[string]any
	require.Equal(t, http.StatusOK, post(t, ts.URL+"/api/v1/tick", "letmein", "", &out))
	assert.Equal(t, 1.0, out["tick"])

	s.Sched = nil
	var report engine.TickReport
	require.Equal(t, http.StatusOK, post(t, ts.URL+"/api/v1/tick", "letmein", "", &report))
	assert.Equal(t, uint64(1), report.Tick)
	assert.Equal(t, t0.Add(time.Hour), s.Store.Now())
	assert.Equal(t, http.StatusMethodNotAllowed, get(t, ts.URL+"/api/v1/tick", nil))
}

func TestBulletinFallsBackWithoutLLM(t *testing.T) {
	_, ts := newServer(t)
	var b struct {
		Content string `json:"content"`
	}
	require.Equal(t, http.StatusOK, get(t, ts.URL+"/api/v1/bulletin", &b))
	assert.Contains(t, b.Content, "THE YARD SHEET")
}

func TestSnapshotNeedsDB(t *testing.T) {
	_, ts := newServer(t)
	assert.Equal(t, http.StatusServiceUnavailable, post(t, ts.URL+"/api/v1/snapshot", "letmein", "", nil))
}

func TestEventStream(t *testing.T) {
	hub := NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	s := &Server{Store: newStore(t, fixed(0)), Hub: hub, AdminKey: "letmein"}
	s.Store.OnEvents(hub.Broadcast)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/v1/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusOK, post(t, ts.URL+"/api/v1/action", "letmein", `{"type":"interaction","member_id":"bo","target_id":"cy"}`, nil))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var batch []engine.Event
	require.NoError(t, json.Unmarshal(msg, &batch))
	require.NotEmpty(t, batch)
	assert.Equal(t, engine.CatLoyalty, batch[0].Category)
}

func TestEventStreamAfterShutdown(t *testing.T) {
	hub := NewHub(4)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	s := &Server{Store: newStore(t, fixed(0)), Hub: hub}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Zero(t, hub.Clients())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "open observers are closed on shutdown")

	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = late.ReadMessage()
	assert.Error(t, err, "a stopped hub turns new observers away")
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		assert.False(t, ne.Timeout(), "connection should be closed, not left hanging")
	}
}
