package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/wildcastradio/radiolink/internal/connection"
	"github.com/wildcastradio/radiolink/internal/model"
	"github.com/wildcastradio/radiolink/internal/subscription"
	"github.com/wildcastradio/radiolink/internal/topic"
)

type listenOptions struct {
	broadcasts    []int64
	topics        []string
	global        bool
	notifications bool
	join          bool
	metricsPort   int
	output        string
}

func newListenCommand(g *globalOptions) *cobra.Command {
	opts := &listenOptions{}

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to broadcast topics and print every message",
		Example: `  radiolink listen --broadcast 42 --join
  radiolink listen --global --notifications --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			return runListen(cmd.Context(), a, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.Int64SliceVarP(&opts.broadcasts, "broadcast", "b", nil, "broadcast id to follow (status, chat and polls); repeatable")
	f.StringSliceVarP(&opts.topics, "topic", "t", nil, "additional topic to subscribe to; repeatable")
	f.BoolVar(&opts.global, "global", false, "follow the global broadcast status and live topics")
	f.BoolVar(&opts.notifications, "notifications", false, "follow the per-user notification queue")
	f.BoolVar(&opts.join, "join", false, "announce joining each broadcast as a listener")
	f.IntVar(&opts.metricsPort, "metrics-port", 0, "serve /health and metrics on this port (0 uses metrics.port when metrics.enabled)")
	f.StringVarP(&opts.output, "output", "o", "text", "message output: text, json or none")
	return cmd
}

// listenTopics expands the flags into the topic set, deduplicated in order.
func listenTopics(opts *listenOptions) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	for _, id := range opts.broadcasts {
		if id <= 0 {
			return nil, fmt.Errorf("invalid broadcast id %d", id)
		}
		for _, t := range topic.ForBroadcast(id) {
			add(t)
		}
	}
	if opts.global {
		add(topic.BroadcastStatus)
		add(topic.BroadcastLive)
	}
	if opts.notifications {
		add(topic.UserNotifications)
	}
	for _, t := range opts.topics {
		if !topic.IsValid(t) {
			return nil, fmt.Errorf("invalid topic %q", t)
		}
		add(t)
	}

	if len(out) == 0 {
		return nil, errors.New("nothing to listen to: pass --broadcast, --topic, --global or --notifications")
	}
	return out, nil
}

func runListen(parent context.Context, a *app, opts *listenOptions, out io.Writer) error {
	topics, err := listenTopics(opts)
	if err != nil {
		return err
	}
	printer, err := newPrinter(opts.output, out)
	if err != nil {
		return err
	}

	a.logStart("listen")

	ctx, cancel := signalContext(parent, a.logger)
	defer cancel()

	mgr, err := a.newManager()
	if err != nil {
		return err
	}
	defer mgr.Disconnect()

	port := opts.metricsPort
	if port == 0 && a.cfg.Metrics.Enabled {
		port = a.cfg.Metrics.Port
	}
	if port > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           createHealthHandler(mgr, a.reg, a.cfg.Metrics.Path),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("starting health server", "port", port, "metrics_path", a.cfg.Metrics.Path)
			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				a.logger.Error("health server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := mgr.Connect(ctx, a.cred); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	for _, t := range topics {
		if _, err := mgr.Subscribe(ctx, t, handlerFor(t, printer, a.logger), a.cred); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	a.logger.Info("listening", "topics", len(topics))

	if opts.join {
		announce(mgr, opts.broadcasts, topic.JoinDestination, a.logger)
		defer announce(mgr, opts.broadcasts, topic.LeaveDestination, a.logger)
	}

	<-ctx.Done()
	a.logger.Info("shutting down...")
	return nil
}

func announce(mgr *connection.Manager, ids []int64, dest func(int64) string, logger *slog.Logger) {
	for _, id := range ids {
		if err := mgr.Publish(dest(id), map[string]any{"broadcastId": id}); err != nil {
			logger.Warn("announce failed", "destination", dest(id), "error", err)
		}
	}
}

// handlerFor decodes chat and poll topics into their typed payloads; other
// topics keep the generic JSON payload.
func handlerFor(t string, p *printer, logger *slog.Logger) subscription.Handler {
	h := subscription.Func(func(env model.Envelope) error {
		return p.print(env)
	})

	id, ok := topic.BroadcastID(t)
	if !ok {
		return h
	}
	switch t {
	case topic.Chat(id):
		return subscription.WithParser(h, decodeAs[model.ChatMessage])
	case topic.Polls(id):
		return subscription.WithParser(h, decodeAs[model.PollEvent])
	case topic.Broadcast(id):
		return subscription.WithParser(h, decodeAs[model.BroadcastEvent])
	}
	logger.Debug("no typed parser for topic", "topic", t)
	return h
}

func decodeAs[T any](body []byte) (any, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// printer writes envelopes to the command output.
type printer struct {
	mu     sync.Mutex
	format string
	w      io.Writer
}

func newPrinter(format string, w io.Writer) (*printer, error) {
	switch format {
	case "text", "json", "none":
	default:
		return nil, fmt.Errorf("unknown output %q", format)
	}
	if w == nil {
		w = os.Stdout
	}
	return &printer{format: format, w: w}, nil
}

func (p *printer) print(env model.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.format {
	case "none":
		return nil
	case "json":
		return json.NewEncoder(p.w).Encode(struct {
			Topic      string          `json:"topic"`
			ReceivedAt time.Time       `json:"receivedAt"`
			Payload    json.RawMessage `json:"payload"`
		}{env.Topic, env.ReceivedAt, rawJSON(env.Body)})
	}

	_, err := fmt.Fprintf(p.w, "%s %s %s\n", env.ReceivedAt.Format(time.TimeOnly), env.Topic, summary(env))
	return err
}

// summary renders the typed payloads in one line.
func summary(env model.Envelope) string {
	switch v := env.Payload.(type) {
	case *model.ChatMessage:
		name := "anonymous"
		if v.Sender != nil {
			name = v.Sender.DisplayName()
		}
		return fmt.Sprintf("%s: %s", name, v.Content)
	case *model.PollEvent:
		return fmt.Sprintf("poll %d %s %q", v.PollID, v.Type, v.Question)
	case *model.BroadcastEvent:
		if v.Broadcast != nil {
			return fmt.Sprintf("%s %s (dj %d)", v.Type, v.Broadcast.Status, v.Broadcast.ActiveDJID())
		}
		return v.Type
	}
	return string(nonEmpty(env.Body))
}

func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return []byte("null")
	}
	return b
}

// rawJSON embeds a JSON body as-is and quotes anything else.
func rawJSON(b []byte) json.RawMessage {
	b = nonEmpty(b)
	if json.Valid(b) {
		return b
	}
	quoted, _ := json.Marshal(string(b))
	return quoted
}
