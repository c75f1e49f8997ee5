package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Errorf("api base url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("api timeout = %v", cfg.API.Timeout)
	}
	if cfg.Channel.MaxReconnect != 8 {
		t.Errorf("max reconnect = %d", cfg.Channel.MaxReconnect)
	}
	if cfg.Channel.ReconnectBase != 3*time.Second {
		t.Errorf("reconnect base = %v", cfg.Channel.ReconnectBase)
	}
	if cfg.Channel.ReconnectJitter != 2*time.Second {
		t.Errorf("reconnect jitter = %v", cfg.Channel.ReconnectJitter)
	}
	if cfg.Status.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %v", cfg.Status.PollInterval)
	}
	if cfg.Poll.TickInterval != time.Second {
		t.Errorf("tick interval = %v", cfg.Poll.TickInterval)
	}
	if cfg.Playback.MPVBinary != "mpv" {
		t.Errorf("mpv binary = %q", cfg.Playback.MPVBinary)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PIXELCAST_API", "https://api.pixelcast.tv")
	t.Setenv("PIXELCAST_WS", "wss://chat.pixelcast.tv")
	t.Setenv("PIXELCAST_MEDIA", "https://media.pixelcast.tv")
	t.Setenv("PIXELCAST_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.API.BaseURL != "https://api.pixelcast.tv" {
		t.Errorf("api base url = %q", cfg.API.BaseURL)
	}
	if cfg.Channel.BaseURL != "wss://chat.pixelcast.tv" {
		t.Errorf("channel base url = %q", cfg.Channel.BaseURL)
	}
	if cfg.Playback.MediaOrigin != "https://media.pixelcast.tv" {
		t.Errorf("media origin = %q", cfg.Playback.MediaOrigin)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}
