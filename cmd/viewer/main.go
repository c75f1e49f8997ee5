package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pixelcast/viewer/internal/api"
	"github.com/pixelcast/viewer/internal/config"
	"github.com/pixelcast/viewer/internal/log"
	"github.com/pixelcast/viewer/internal/playback"
	"github.com/pixelcast/viewer/internal/session"
	"github.com/pixelcast/viewer/internal/view"
)

var (
	flagToken    string
	flagAPI      string
	flagWS       string
	flagMedia    string
	flagLogLevel string
	flagNoMedia  bool
)

var rootCmd = &cobra.Command{
	Use:   "viewer",
	Short: "pixelcast live broadcast viewer",
}

var watchCmd = &cobra.Command{
	Use:   "watch <channel>",
	Short: "Watch a channel: live media, chat, polls, activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return watch(args[0])
	},
}

func init() {
	watchCmd.Flags().StringVar(&flagToken, "token", "", "bearer token; empty means read-only")
	watchCmd.Flags().StringVar(&flagAPI, "api", "", "REST base URL override")
	watchCmd.Flags().StringVar(&flagWS, "ws", "", "websocket base URL override")
	watchCmd.Flags().StringVar(&flagMedia, "media", "", "media origin override")
	watchCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level override")
	watchCmd.Flags().BoolVar(&flagNoMedia, "no-media", false, "skip media playback, chat only")
	rootCmd.AddCommand(watchCmd)
}

func watch(room string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg)

	log.Init(log.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger := log.L()

	token := flagToken
	if token == "" {
		token = os.Getenv("PIXELCAST_TOKEN")
	}
	sess := session.New(token)
	if sess.Authenticated() {
		logger.Info().Str(log.FieldUsername, sess.Username()).Msg("signed in")
	} else {
		logger.Info().Msg("read-only session, chat and votes disabled")
	}

	client := api.NewClient(cfg.API, sess)

	var sink playback.Sink = playback.NewMPVSink(cfg.Playback.MPVBinary, logger)
	if flagNoMedia {
		sink = nullSink{}
	}

	render := newRenderer(os.Stdout)
	v := view.Mount(view.Options{
		Config:   cfg,
		Session:  sess,
		Room:     room,
		Observer: render,
		Logger:   logger,
		Client:   client,
		Sink:     sink,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGINT/SIGTERM unmount the view; SIGCONT (resumed from background)
	// triggers the live-edge resync.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGCONT)
	go func() {
		for sig := range sigs {
			if sig == syscall.SIGCONT {
				v.Resync()
				continue
			}
			cancel()
			return
		}
	}()

	go readInput(ctx, v, render)

	logger.Info().Str(log.FieldChannel, room).Msg("watching")
	if err := v.Run(ctx); err != nil {
		return err
	}

	// Offline endscreen: suggest something else to watch.
	if recs, err := client.Recommended(context.Background()); err == nil && len(recs) > 0 {
		render.Recommendations(recs)
	}
	return nil
}

func applyFlags(cfg *config.Config) {
	if flagAPI != "" {
		cfg.API.BaseURL = flagAPI
	}
	if flagWS != "" {
		cfg.Channel.BaseURL = flagWS
	}
	if flagMedia != "" {
		cfg.Playback.MediaOrigin = flagMedia
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
}

// nullSink renders nothing; used with --no-media.
type nullSink struct{}

func (nullSink) Attach(playback.Source) error { return nil }
func (nullSink) Detach()                      {}
func (nullSink) SeekToLiveEdge() error        { return nil }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
