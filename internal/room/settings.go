package room

import (
	"land-grab/internal/chat"
	"land-grab/internal/config"
	"land-grab/internal/game"
	"land-grab/internal/protocol"
)

// Settings is the slice of app configuration a room needs.
type Settings struct {
	Arena config.ArenaConfig
	Match config.MatchConfig
	Chat  chat.RateLimitConfig
}

// SettingsFromConfig maps app configuration onto room settings.
func SettingsFromConfig(cfg config.AppConfig) Settings {
	return Settings{
		Arena: cfg.Arena,
		Match: cfg.Match,
		Chat: chat.RateLimitConfig{
			MaxPerWindow:     cfg.Limits.ChatMaxPerWindow,
			WindowDuration:   cfg.Limits.ChatWindow,
			CooldownDuration: cfg.Limits.ChatCooldown,
		},
	}
}

// DefaultSettings uses the config package defaults.
func DefaultSettings() Settings {
	return Settings{
		Arena: config.DefaultArena(),
		Match: config.DefaultMatch(),
		Chat:  chat.DefaultRateLimitConfig(),
	}
}

func (s Settings) engineConfig(seed int64) game.EngineConfig {
	return game.EngineConfig{
		Width:         s.Arena.Width,
		Height:        s.Arena.Height,
		TickRate:      s.Match.TickRate,
		MoveEvery:     s.Match.MoveEvery,
		MatchDuration: s.Match.Duration,
		Seed:          seed,
	}
}

func (s Settings) arena() protocol.Arena {
	return protocol.Arena{
		Width:    s.Arena.Width,
		Height:   s.Arena.Height,
		CellSize: s.Arena.CellSize,
	}
}

func (s Settings) fullStateEvery() uint64 {
	if s.Match.FullStateEvery < 1 {
		return 60
	}
	return uint64(s.Match.FullStateEvery)
}

func (s Settings) deltaEvery() uint64 {
	if s.Match.DeltaEvery < 1 {
		return 1
	}
	return uint64(s.Match.DeltaEvery)
}
