package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API      APIConfig
	Channel  ChannelConfig
	Playback PlaybackConfig
	Status   StatusConfig
	Poll     PollConfig
	Log      LogConfig
}

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout time.Duration
}

type ChannelConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	MaxReconnect    int           `mapstructure:"max_reconnect"`
	ReconnectBase   time.Duration `mapstructure:"reconnect_base"`
	ReconnectJitter time.Duration `mapstructure:"reconnect_jitter"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
}

type PlaybackConfig struct {
	MediaOrigin string `mapstructure:"media_origin"`
	MPVBinary   string `mapstructure:"mpv_binary"`
}

type StatusConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type PollConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("viewer")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/pixelcast")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file, rely on defaults and env vars.
	}

	// Set defaults
	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("channel.base_url", "ws://localhost:8000")
	v.SetDefault("channel.max_reconnect", 8)
	v.SetDefault("channel.reconnect_base", "3s")
	v.SetDefault("channel.reconnect_jitter", "2s")
	v.SetDefault("channel.ping_interval", "30s")
	v.SetDefault("channel.pong_wait", "60s")
	v.SetDefault("channel.write_wait", "10s")
	v.SetDefault("channel.max_message_size", 4096)
	v.SetDefault("playback.media_origin", "http://localhost:8888")
	v.SetDefault("playback.mpv_binary", "mpv")
	v.SetDefault("status.poll_interval", "5s")
	v.SetDefault("poll.tick_interval", "1s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	// Override from environment
	v.BindEnv("api.base_url", "PIXELCAST_API")
	v.BindEnv("channel.base_url", "PIXELCAST_WS")
	v.BindEnv("playback.media_origin", "PIXELCAST_MEDIA")
	v.BindEnv("playback.mpv_binary", "PIXELCAST_MPV")
	v.BindEnv("log.level", "PIXELCAST_LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.API.Timeout = parseDuration(v, "api.timeout", 10*time.Second)
	cfg.Channel.ReconnectBase = parseDuration(v, "channel.reconnect_base", 3*time.Second)
	cfg.Channel.ReconnectJitter = parseDuration(v, "channel.reconnect_jitter", 2*time.Second)
	cfg.Channel.PingInterval = parseDuration(v, "channel.ping_interval", 30*time.Second)
	cfg.Channel.PongWait = parseDuration(v, "channel.pong_wait", 60*time.Second)
	cfg.Channel.WriteWait = parseDuration(v, "channel.write_wait", 10*time.Second)
	cfg.Status.PollInterval = parseDuration(v, "status.poll_interval", 5*time.Second)
	cfg.Poll.TickInterval = parseDuration(v, "poll.tick_interval", time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
