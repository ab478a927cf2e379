package chat

import (
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg RateLimitConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	rl := NewRateLimiter(cfg)
	rl.now = clock.now
	return rl, clock
}

// TestRateLimiterCooldown rejects messages sent too close together
func TestRateLimiterCooldown(t *testing.T) {
	rl, clock := newTestLimiter(DefaultRateLimitConfig())
	defer rl.Stop()

	if !rl.Allow("p1") {
		t.Fatal("first message rejected")
	}
	if rl.Allow("p1") {
		t.Error("message within cooldown accepted")
	}
	if !rl.Allow("p2") {
		t.Error("other players are independent")
	}
	clock.advance(400 * time.Millisecond)
	if !rl.Allow("p1") {
		t.Error("message after cooldown rejected")
	}
}

// TestRateLimiterWindow caps messages per window and resets afterwards
func TestRateLimiterWindow(t *testing.T) {
	cfg := RateLimitConfig{MaxPerWindow: 3, WindowDuration: time.Second, CooldownDuration: 0}
	rl, clock := newTestLimiter(cfg)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("p1") {
			t.Fatalf("message %d rejected", i)
		}
		clock.advance(10 * time.Millisecond)
	}
	if rl.Allow("p1") {
		t.Error("fourth message in window accepted")
	}
	clock.advance(time.Second)
	if !rl.Allow("p1") {
		t.Error("new window should allow")
	}

	rl.Forget("p1")
	if !rl.Allow("p1") {
		t.Error("forgotten player should start fresh")
	}
}

// TestSanitize trims, strips and truncates
func TestSanitize(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		max    int
		want   string
		wantOK bool
	}{
		{"plain", "hello", 10, "hello", true},
		{"trim", "  hi  ", 10, "hi", true},
		{"control chars", "a\x00b\nc", 10, "abc", true},
		{"blank", " \t\n", 10, "", false},
		{"truncate runes", "ééééé", 3, "ééé", true},
		{"no limit", strings.Repeat("x", 300), 0, strings.Repeat("x", 300), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Sanitize(tt.in, tt.max)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Sanitize(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// TestName falls back for blank names and caps length
func TestName(t *testing.T) {
	if got := Name("   ", "Player"); got != "Player" {
		t.Errorf("blank name = %q", got)
	}
	if got := Name(strings.Repeat("n", 40), "Player"); len([]rune(got)) != MaxNameRunes {
		t.Errorf("long name kept %d runes", len([]rune(got)))
	}
}
