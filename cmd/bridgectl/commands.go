package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/zou/appbridge/internal/client"
	"github.com/zou/appbridge/internal/shared/types"
)

// argJSON keeps integer arguments exact on their way to the host
var argJSON = sonic.Config{UseNumber: true}.Froze()

type rootOptions struct {
	url     string
	channel string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "bridgectl",
		Short:         "Talk to an appbridge host over its channel",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.url, "url", "http://127.0.0.1:8000", "Host base URL")
	root.PersistentFlags().StringVar(&opts.channel, "channel", "dingtalk_service", "Channel name")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "Request timeout")

	root.AddCommand(
		newInstalledCmd(opts),
		newOpenCmd(opts),
		newCallCmd(opts),
		newAppsCmd(opts),
	)
	return root
}

func (o *rootOptions) client() *client.Client {
	cfg := client.DefaultConfig()
	cfg.Timeout = o.timeout
	return client.NewWithConfig(o.url, o.channel, cfg)
}

func (o *rootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func newInstalledCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "installed <app-id>",
		Short: "Report whether an application is installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			installed, err := opts.client().IsAppInstalled(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), installed)
			return nil
		},
	}
}

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <app-id>",
		Short: "Bring an application to the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			opened, err := opts.client().OpenApp(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), opened)
			return nil
		},
	}
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [key=value | key:=json]...",
		Short: "Send a raw method call and print the reply",
		Long: `Send a raw method call and print the reply envelope.

Arguments are key=value for strings or key:=json for any JSON value,
for example packageName:=null.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := parseArgs(args[1:])
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			reply, err := opts.client().Call(ctx, args[0], callArgs)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), reply)
		},
	}
}

func newAppsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List the host's registered applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			entries, err := opts.client().Apps(ctx)
			if err != nil {
				return err
			}
			for _, e := range entries {
				marker := " "
				if e.Launchable() {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-40s %s\n", marker, e.ID, e.Name)
			}
			return nil
		},
	}
}

func parseArgs(pairs []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		if key, raw, ok := strings.Cut(pair, ":="); ok && key != "" && !strings.Contains(key, "=") {
			var v interface{}
			if err := argJSON.UnmarshalFromString(raw, &v); err != nil {
				return nil, fmt.Errorf("invalid JSON for %q: %w", key, err)
			}
			out[key] = v
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value or key:=json", pair)
		}
		out[key] = value
	}
	return out, nil
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// exitCode maps a bridge failure to a process exit status
func exitCode(err error) int {
	var bridgeErr *client.Error
	if !errors.As(err, &bridgeErr) {
		return 1
	}
	switch bridgeErr.Code {
	case types.MissingArgument:
		return 2
	case types.UnknownMethod:
		return 3
	default:
		return 4
	}
}
