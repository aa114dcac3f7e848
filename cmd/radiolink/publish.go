package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wildcastradio/radiolink/internal/topic"
)

type publishOptions struct {
	destination string
	chat        int64
	body        string
}

func newPublishCommand(g *globalOptions) *cobra.Command {
	opts := &publishOptions{}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Send one application message over the STOMP session",
		Example: `  radiolink publish --chat 42 --body '{"content":"hello"}'
  radiolink publish --destination /app/broadcast/42/join --body '{}'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			return runPublish(cmd.Context(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.destination, "destination", "d", "", "application destination, e.g. /app/broadcast/42/join")
	f.Int64Var(&opts.chat, "chat", 0, "send to the chat destination of this broadcast")
	f.StringVar(&opts.body, "body", "{}", "JSON payload")
	return cmd
}

func (o *publishOptions) resolve() (string, json.RawMessage, error) {
	dest := o.destination
	switch {
	case dest != "" && o.chat != 0:
		return "", nil, errors.New("--destination and --chat are mutually exclusive")
	case o.chat > 0:
		dest = topic.ChatDestination(o.chat)
	case dest == "":
		return "", nil, errors.New("one of --destination or --chat is required")
	}
	if !strings.HasPrefix(dest, "/app/") {
		return "", nil, fmt.Errorf("destination %q must start with /app/", dest)
	}

	body := json.RawMessage(o.body)
	if !json.Valid(body) {
		return "", nil, errors.New("--body must be valid JSON")
	}
	return dest, body, nil
}

func runPublish(parent context.Context, a *app, opts *publishOptions) error {
	dest, body, err := opts.resolve()
	if err != nil {
		return err
	}

	a.logStart("publish")

	ctx, cancel := signalContext(parent, a.logger)
	defer cancel()

	mgr, err := a.newManager()
	if err != nil {
		return err
	}
	defer mgr.Disconnect()

	if err := mgr.Connect(ctx, a.cred); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := mgr.Publish(dest, body); err != nil {
		return fmt.Errorf("publish %s: %w", dest, err)
	}

	a.logger.Info("message sent", "destination", dest, "bytes", len(body))
	return nil
}
