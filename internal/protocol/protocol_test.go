package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestDecodeEnvelope reads the type and keeps the body
func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"JOIN_PRIVATE","name":"ann","roomCode":"ab12cd"}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if env.Type != MsgJoinPrivate {
		t.Errorf("type = %q", env.Type)
	}
	msg, err := DecodePayload[JoinPrivate](env)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if msg.Name != "ann" || msg.RoomCode != "ab12cd" {
		t.Errorf("payload = %+v", msg)
	}
}

// TestDecodeEnvelopeErrors rejects junk without panicking
func TestDecodeEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"not json", "hello"},
		{"no type", `{"name":"x"}`},
		{"array", `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEnvelope([]byte(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

// TestDecodePayloadTypeMismatch surfaces bad field types
func TestDecodePayloadTypeMismatch(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"LOBBY_SET_READY","isReady":"yes"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodePayload[SetReady](env); err == nil {
		t.Error("expected decode error for string isReady")
	}
}

// TestEncodeLobbyState keeps a null room code for public rooms and a null
// element for members who have not picked one
func TestEncodeLobbyState(t *testing.T) {
	data, err := Encode(LobbyStateUpdate{
		Type: MsgLobbyState,
		LobbyState: LobbyState{RoomID: "r1", MaxPlayers: 4, Players: []LobbyPlayer{
			{ID: "p1", Name: "Ann", IsHost: true},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if string(m["type"]) != `"LOBBY_STATE_UPDATE"` {
		t.Errorf("type = %s", m["type"])
	}
	if !strings.Contains(string(m["lobbyState"]), `"roomCode":null`) {
		t.Errorf("lobbyState = %s", m["lobbyState"])
	}
	if !strings.Contains(string(m["lobbyState"]), `"element":null`) {
		t.Errorf("unpicked element should encode as null: %s", m["lobbyState"])
	}
	if _, err := Encode(nil); err == nil {
		t.Error("Encode(nil) should fail")
	}
}

// TestTextureHashMatchesBrowser pins values produced by the web renderer
func TestTextureHashMatchesBrowser(t *testing.T) {
	tests := []struct {
		row, col int
		key      string
		want     int64
	}{
		{0, 0, "default_abc", 309828216},
		{3, 7, "p1_42", 1442776703},
		{12, 5, "ünï_x", 402716672},
		{40, 29, "9b2f6c1e-aaaa_7", 21737292},
	}
	for _, tt := range tests {
		if got := TextureHash(tt.row, tt.col, tt.key); got != tt.want {
			t.Errorf("TextureHash(%d,%d,%q) = %d, want %d", tt.row, tt.col, tt.key, got, tt.want)
		}
	}
}

// TestTextureVariantRange stays within [0,n)
func TestTextureVariantRange(t *testing.T) {
	for row := 0; row < 20; row++ {
		for col := 0; col < 20; col++ {
			v := TextureVariant(row, col, "owner", "seed", 3)
			if v < 0 || v >= 3 {
				t.Fatalf("variant %d out of range", v)
			}
		}
	}
	if TextureVariant(1, 1, "", "abc", 0) != 0 {
		t.Error("n=0 should yield 0")
	}
	if TextureVariant(0, 0, "", "abc", 1000) != int(309828216%1000) {
		t.Error("unclaimed cells should hash as default")
	}
}
