package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dishankoza/svcsync/internal/hlc"
	"github.com/dishankoza/svcsync/internal/rpc"
)

var (
	addr    string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "svcsync-client",
	Short:         "Talk to a svcsync registry node over gRPC",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <service>",
	Short: "Show the node's record for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *rpc.Client) error {
			svc, err := c.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(svc)
		})
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch <service>",
	Short: "Dispatch a request for a service and print the stamped candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *rpc.Client) error {
			res, err := c.Touch(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(res)
		})
	},
}

var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Ask the node for a fresh HLC timestamp",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, c *rpc.Client) error {
			ts, err := c.Now(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", ts.Encode(), ts)
			return nil
		})
	},
}

var observeCmd = &cobra.Command{
	Use:   "observe <timestamp>",
	Short: "Merge an encoded timestamp into the node's clock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		remote, err := hlc.ParseTimestamp(args[0])
		if err != nil {
			return err
		}
		return withClient(cmd.Context(), func(ctx context.Context, c *rpc.Client) error {
			ts, err := c.Observe(ctx, remote)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", ts.Encode(), ts)
			return nil
		})
	},
}

func withClient(parent context.Context, fn func(context.Context, *rpc.Client) error) error {
	c, err := rpc.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return fn(ctx, c)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "localhost:50051", "node gRPC address")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "per-call timeout")
	rootCmd.AddCommand(lookupCmd, touchCmd, nowCmd, observeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
