package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scriptd/internal/convert"
	"scriptd/internal/manager"
	"scriptd/pkg/types"
)

type invokeOptions struct {
	*rootOptions
	args  string
	async bool
}

func newInvokeCommand(root *rootOptions) *cobra.Command {
	opts := &invokeOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "invoke <module> [entry]",
		Short: "Call one entry point and print its result",
		Long: `Start the runtime, call module.entry once and tear the runtime down.

Example:
  scriptd invoke math.add --args '[1, 2]'
  scriptd invoke text.upper shout --args '["hi"]' --async`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry := ""
			if len(args) == 2 {
				entry = args[1]
			}
			return opts.run(cmd, args[0], entry)
		},
	}
	cmd.Flags().StringVar(&opts.args, "args", "[]", "arguments as a JSON array")
	cmd.Flags().BoolVar(&opts.async, "async", false, "run on the worker pool")
	return cmd
}

func (o *invokeOptions) run(cmd *cobra.Command, module, entry string) (err error) {
	args, err := convert.ParseArgs([]byte(o.args))
	if err != nil {
		return fmt.Errorf("invalid --args JSON array: %w", err)
	}
	sched, err := o.newScheduler(nil)
	if err != nil {
		return err
	}
	svc, err := manager.NewService(cmd.Context(), sched, o.engineKind(), o.lister())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); err == nil {
			err = cerr
		}
	}()

	resp, err := svc.Invoke(cmd.Context(), types.InvokeRequest{
		Module: module, Entry: entry, Args: args, Async: o.async,
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if o.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	b, err := json.Marshal(resp.Result)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, strings.TrimSpace(string(b)))
	return err
}
