package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/textadventure/server/cache"
	"github.com/kasuganosora/textadventure/server/config"
	"github.com/kasuganosora/textadventure/server/game/session"
	"github.com/kasuganosora/textadventure/server/game/world"
	mw "github.com/kasuganosora/textadventure/server/middleware"
	"github.com/kasuganosora/textadventure/server/notify"
	"github.com/kasuganosora/textadventure/server/testutil"
)

type fixture struct {
	srv   *httptest.Server
	ps    cache.PubSub
	mgr   *session.Manager
	token string
}

func newFixture(t *testing.T, origins ...string) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, ps := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "sse-secret", JWTTTLH: time.Hour, AllowedOrigins: origins}

	w := world.New()
	require.NoError(t, w.AddScene(world.Scene{ID: "start", Name: "Start"}))
	mgr := session.NewManager(w, nil, zap.NewNop())

	token, err := mw.GenerateToken(1, "tester", sec.JWTSecret, sec.JWTTTLH)
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), mw.SessionKey(token), "1", time.Hour))

	r := gin.New()
	NewHandler(ps, mgr, sec, zap.NewNop()).Mount(r, c)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, ps: ps, mgr: mgr, token: token}
}

// open connects and waits for the connected event.
func (f *fixture) open(t *testing.T, query string) (*bufio.Reader, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/sse?token="+f.token+query, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, rd)
	require.Equal(t, "connected", name)
	return rd, func() {
		cancel()
		resp.Body.Close()
	}
}

// readEvent reads one event block, skipping keepalive comments.
func readEvent(t *testing.T, rd *bufio.Reader) (name, data string) {
	t.Helper()
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestServeSSE_RequiresToken(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeSSE_AccountStream(t *testing.T) {
	f := newFixture(t)
	rd, closeFn := f.open(t, "")
	defer closeFn()

	require.NoError(t, f.ps.Publish(context.Background(), notify.AccountChannel(1), `{"type":"level_up"}`))
	name, data := readEvent(t, rd)
	assert.Equal(t, "game", name)
	assert.JSONEq(t, `{"type":"level_up"}`, data)

	require.NoError(t, f.ps.Publish(context.Background(), notify.AnnounceChannel, `{"message":"hi"}`))
	name, data = readEvent(t, rd)
	assert.Equal(t, "announce", name)
	assert.JSONEq(t, `{"message":"hi"}`, data)
}

func TestServeSSE_SessionStream(t *testing.T) {
	f := newFixture(t)
	own := f.mgr.Create(1)
	other := f.mgr.Create(2)

	resp, err := http.Get(f.srv.URL + "/sse?token=" + f.token + "&session=" + other.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	rd, closeFn := f.open(t, "&session="+own.ID)
	defer closeFn()

	require.NoError(t, f.ps.Publish(context.Background(), notify.SessionChannel(own.ID), `{"type":"died"}`))
	name, data := readEvent(t, rd)
	assert.Equal(t, "game", name)
	assert.JSONEq(t, `{"type":"died"}`, data)
}

func TestServeSSE_OriginCheck(t *testing.T) {
	f := newFixture(t, "https://game.example")
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/sse?token="+f.token, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
