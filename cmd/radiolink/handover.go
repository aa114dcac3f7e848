package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wildcastradio/radiolink/internal/apierror"
)

type handoverOptions struct {
	broadcast int64
	dj        int64
	reason    string
	asJSON    bool
}

func newHandoverCommand(g *globalOptions) *cobra.Command {
	opts := &handoverOptions{}

	cmd := &cobra.Command{
		Use:     "handover",
		Short:   "Hand a live broadcast to another DJ and wait until it is visible",
		Example: `  radiolink handover --broadcast 42 --dj 7 --reason "shift change"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			return runHandover(cmd.Context(), a, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.Int64Var(&opts.broadcast, "broadcast", 0, "broadcast id")
	f.Int64Var(&opts.dj, "dj", 0, "user id of the DJ taking over")
	f.StringVar(&opts.reason, "reason", "", "reason recorded with the handover")
	f.BoolVar(&opts.asJSON, "json", false, "print the outcome as JSON")
	_ = cmd.MarkFlagRequired("broadcast")
	_ = cmd.MarkFlagRequired("dj")
	return cmd
}

type handoverReport struct {
	HandoverID int64  `json:"handoverId,omitempty"`
	Confirmed  bool   `json:"confirmed"`
	Attempts   int    `json:"attempts"`
	ActiveDJ   int64  `json:"activeDjId,omitempty"`
	Warning    string `json:"warning,omitempty"`
}

func runHandover(parent context.Context, a *app, opts *handoverOptions, out io.Writer) error {
	a.logStart("handover")

	ctx, cancel := signalContext(parent, a.logger)
	defer cancel()

	outcome, err := a.newHandoverService().Handover(ctx, opts.broadcast, opts.dj, opts.reason)
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return errors.New(apiErr.UserMessage)
		}
		return err
	}

	report := handoverReport{
		Confirmed: outcome.Confirmed,
		Attempts:  outcome.Attempts,
		Warning:   outcome.Warning,
	}
	if outcome.Handover != nil {
		report.HandoverID = outcome.Handover.ID
	}
	if outcome.Broadcast != nil {
		report.ActiveDJ = outcome.Broadcast.ActiveDJID()
	}

	if opts.asJSON {
		return json.NewEncoder(out).Encode(report)
	}

	if report.Confirmed {
		_, err = fmt.Fprintf(out, "handover %d confirmed after %d read(s): DJ %d is on air\n",
			report.HandoverID, report.Attempts, report.ActiveDJ)
		return err
	}
	_, err = fmt.Fprintf(out, "handover %d accepted, not yet confirmed after %d read(s)\nwarning: %s\n",
		report.HandoverID, report.Attempts, report.Warning)
	return err
}
