package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"land-grab/internal/api"
	"land-grab/internal/config"
	"land-grab/internal/protocol"
	"land-grab/internal/room"
)

// ============================================================================
// Helpers
// ============================================================================

func testConfig() config.AppConfig {
	return config.AppConfig{
		Server:        config.DefaultServer(),
		Arena:         config.DefaultArena(),
		Match:         config.DefaultMatch(),
		Limits:        config.DefaultLimits(),
		Observability: config.DefaultObservability(),
	}
}

func newRegistry(t *testing.T, cfg config.AppConfig) *room.Registry {
	t.Helper()
	reg := room.NewRegistry(room.SettingsFromConfig(cfg), room.WithManualTicks(), room.WithMetricsInterval(0))
	t.Cleanup(reg.Close)
	return reg
}

func newTestServer(t *testing.T) (*httptest.Server, *room.Registry) {
	t.Helper()
	cfg := testConfig()
	cfg.Server.RequestsPerSec = 1000
	cfg.Server.RequestBurst = 1000
	reg := newRegistry(t, cfg)
	srv := api.NewServer(cfg, reg)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ts.Close()
		srv.Shutdown(context.Background())
	})
	return ts, reg
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	for k, v := range payload {
		msg[k] = v
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// readUntil reads frames until one of msgType arrives and decodes it into v.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, v any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		var env struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &env) == nil && env.Type == msgType {
			if err := json.Unmarshal(data, v); err != nil {
				t.Fatalf("decode %s: %v", msgType, err)
			}
			return
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

// ============================================================================
// HTTP API Tests
// ============================================================================

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	var body map[string]string
	if code := getJSON(t, ts.URL+"/health", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", code, body)
	}
}

func TestRoomEndpoints(t *testing.T) {
	ts, reg := newTestServer(t)
	conn := dial(t, ts)
	sendMsg(t, conn, protocol.MsgJoinPublic, map[string]any{"name": "Ann"})

	var joined protocol.LobbyJoined
	readUntil(t, conn, protocol.MsgLobbyJoined, &joined)
	roomID := joined.LobbyState.RoomID

	var list struct {
		Rooms []room.Summary `json:"rooms"`
		Count int            `json:"count"`
	}
	if code := getJSON(t, ts.URL+"/api/rooms", &list); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if list.Count != 1 || list.Rooms[0].ID != roomID || list.Rooms[0].Players != 1 {
		t.Errorf("unexpected room list %+v", list)
	}

	var detail struct {
		ID    string                 `json:"id"`
		State string                 `json:"state"`
		Lobby []protocol.LobbyPlayer `json:"lobby"`
	}
	if code := getJSON(t, ts.URL+"/api/rooms/"+roomID, &detail); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if detail.State != "LOBBY" || len(detail.Lobby) != 1 || detail.Lobby[0].Name != "Ann" || !detail.Lobby[0].IsHost {
		t.Errorf("unexpected detail %+v", detail)
	}

	if code := getJSON(t, ts.URL+"/api/rooms/nope", nil); code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown room, got %d", code)
	}

	var stats struct {
		Rooms       room.Stats `json:"rooms"`
		Connections int        `json:"connections"`
	}
	getJSON(t, ts.URL+"/api/stats", &stats)
	if stats.Rooms.Rooms != 1 || stats.Rooms.Players != 1 || stats.Connections != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if err := reg.CheckInvariants(); err != nil {
		t.Error(err)
	}
}

func TestMinimapEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)
	sendMsg(t, conn, protocol.MsgJoinPublic, map[string]any{"name": "Ann"})
	var joined protocol.LobbyJoined
	readUntil(t, conn, protocol.MsgLobbyJoined, &joined)

	resp, err := http.Get(ts.URL + "/api/rooms/" + joined.LobbyState.RoomID + "/minimap.png?px=2")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 80 || b.Dy() != 60 {
		t.Errorf("expected 80x60, got %v", b)
	}

	bad, _ := http.Get(ts.URL + "/api/rooms/" + joined.LobbyState.RoomID + "/minimap.png?px=99")
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for px=99, got %d", bad.StatusCode)
	}
}

func TestHTTPRateLimit(t *testing.T) {
	reg := newRegistry(t, testConfig())
	router := api.NewRouter(api.RouterConfig{
		Rooms:          reg,
		DisableLogging: true,
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 0.001,
			Burst:             2,
			CleanupInterval:   time.Hour,
		},
	})

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 200,200,429 got %v", codes)
	}
}

// ============================================================================
// WebSocket Tests
// ============================================================================

func TestWebSocketPrivateRoomFlow(t *testing.T) {
	ts, reg := newTestServer(t)

	host := dial(t, ts)
	sendMsg(t, host, protocol.MsgCreatePrivate, map[string]any{"name": "host"})
	var joined protocol.LobbyJoined
	readUntil(t, host, protocol.MsgLobbyJoined, &joined)
	if joined.LobbyState.RoomCode == nil {
		t.Fatal("private room should carry a code")
	}

	guest := dial(t, ts)
	sendMsg(t, guest, protocol.MsgJoinPrivate, map[string]any{"name": "guest", "roomCode": strings.ToLower(*joined.LobbyState.RoomCode)})
	var guestJoined protocol.LobbyJoined
	readUntil(t, guest, protocol.MsgLobbyJoined, &guestJoined)

	var announced protocol.LobbyPlayerJoined
	readUntil(t, host, protocol.MsgLobbyPlayerJoined, &announced)
	if announced.Player.Name != "guest" {
		t.Errorf("host should see guest join, got %+v", announced.Player)
	}

	sendMsg(t, guest, protocol.MsgStartGame, nil)
	var startErr protocol.GameStartError
	readUntil(t, guest, protocol.MsgGameStartError, &startErr)
	if startErr.Error != "NOT_HOST" {
		t.Errorf("expected NOT_HOST, got %+v", startErr)
	}

	// the public listing never shows private rooms
	var list struct {
		Count int `json:"count"`
	}
	getJSON(t, ts.URL+"/api/rooms", &list)
	if list.Count != 0 {
		t.Errorf("private room leaked into listing")
	}

	host.Close()
	var left protocol.PlayerLeft
	readUntil(t, guest, protocol.MsgLobbyPlayerLeft, &left)
	var state protocol.LobbyStateUpdate
	readUntil(t, guest, protocol.MsgLobbyState, &state)
	if len(state.LobbyState.Players) != 1 || !state.LobbyState.Players[0].IsHost {
		t.Errorf("guest should be host now, got %+v", state.LobbyState.Players)
	}

	guest.Close()
	waitFor(t, "rooms to empty", func() bool { return reg.Stats().Rooms == 0 })
	if err := reg.CheckInvariants(); err != nil {
		t.Error(err)
	}
}

func TestWebSocketKickClosesWithReason(t *testing.T) {
	ts, reg := newTestServer(t)

	host := dial(t, ts)
	sendMsg(t, host, protocol.MsgCreatePrivate, map[string]any{"name": "host"})
	var joined protocol.LobbyJoined
	readUntil(t, host, protocol.MsgLobbyJoined, &joined)

	guest := dial(t, ts)
	sendMsg(t, guest, protocol.MsgJoinPrivate, map[string]any{"name": "guest", "roomCode": *joined.LobbyState.RoomCode})
	var guestJoined protocol.LobbyJoined
	readUntil(t, guest, protocol.MsgLobbyJoined, &guestJoined)

	sendMsg(t, host, protocol.MsgKickPlayer, map[string]any{"targetPlayerId": guestJoined.PlayerID})

	guest.SetReadDeadline(time.Now().Add(2 * time.Second))
	var closeErr *websocket.CloseError
	for {
		_, _, err := guest.ReadMessage()
		if err == nil {
			continue
		}
		if !errors.As(err, &closeErr) {
			t.Fatalf("expected a close frame, got %v", err)
		}
		break
	}
	if closeErr.Code != websocket.CloseNormalClosure || closeErr.Text != room.KickReason {
		t.Errorf("close = %d %q, want %d %q", closeErr.Code, closeErr.Text, websocket.CloseNormalClosure, room.KickReason)
	}

	var left protocol.PlayerLeft
	readUntil(t, host, protocol.MsgLobbyPlayerLeft, &left)
	if left.PlayerID != guestJoined.PlayerID {
		t.Errorf("host saw %s leave, want %s", left.PlayerID, guestJoined.PlayerID)
	}
	waitFor(t, "guest to be unmapped", func() bool {
		_, ok := reg.RoomOf(guestJoined.PlayerID)
		return !ok
	})
}

func TestWebSocketDropsMalformedFrames(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dial(t, ts)

	conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"name":"no type"}`))
	sendMsg(t, conn, "SOMETHING_ELSE", nil)
	sendMsg(t, conn, protocol.MsgJoinPublic, map[string]any{"name": "still here"})

	var joined protocol.LobbyJoined
	readUntil(t, conn, protocol.MsgLobbyJoined, &joined)
	if joined.PlayerID == "" {
		t.Error("expected a player id")
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	ts, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %+v", resp)
	}
}

func TestWebSocketPerIPLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxWSPerIP = 1
	reg := newRegistry(t, cfg)
	srv := api.NewServer(cfg, reg)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	first := dial(t, ts)
	defer first.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second connection from the same IP should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %+v", resp)
	}
}
