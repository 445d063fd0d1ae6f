package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scriptd/internal/config"
	"scriptd/internal/manager"
)

// rootOptions holds global flags shared by every command.
type rootOptions struct {
	configPath string
	format     string
	cfg        config.Config

	log  zerolog.Logger
	logW io.Writer
	// scheduler builds the runtime scheduler. The default registers cfg with
	// the process-wide scheduler; tests swap in isolated ones.
	scheduler func(manager.Config) *manager.Scheduler
}

var validFormats = []string{"text", "json"}

func sharedScheduler(cfg manager.Config) *manager.Scheduler {
	manager.Configure(cfg)
	return manager.Shared()
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&rootOptions{scheduler: sharedScheduler})
}

func newRootCommandWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scriptd",
		Short:         "scriptd hosts script modules on one embedded runtime",
		Long:          "scriptd starts a single embedded runtime (JavaScript, WebAssembly or llama.cpp) and serves calls into its modules from a worker pool.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (.yaml, .json or .toml)")
	f.StringVar(&opts.format, "format", "text", "output format (text|json)")
	f.StringVar(&opts.cfg.Engine, "engine", "js", "engine kind (js|wasm|llama)")
	f.StringVar(&opts.cfg.ModulesDir, "modules-dir", "./modules", "directory holding module files")
	f.StringVar(&opts.cfg.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	f.IntVar(&opts.cfg.Workers, "workers", manager.DefaultWorkers, "async worker goroutines")
	f.IntVar(&opts.cfg.QueueDepth, "queue-depth", 0, "max queued async invocations (0=default)")
	f.StringVar(&opts.cfg.DequeueTimeout, "dequeue-timeout", "", "idle worker poll interval, e.g. 100ms")
	f.StringVar(&opts.cfg.DrainTimeout, "drain-timeout", "", "max time shutdown waits for queued work, e.g. 5s")
	f.IntVar(&opts.cfg.LlamaContext, "llama-ctx", 0, "llama context size in tokens")
	f.IntVar(&opts.cfg.LlamaThreads, "llama-threads", 0, "llama CPU threads")
	f.IntVar(&opts.cfg.MemoryLimitPages, "memory-limit-pages", 0, "wasm linear memory cap in 64KiB pages")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newInvokeCommand(opts))
	cmd.AddCommand(newModulesCommand(opts))
	return cmd
}

// resolve merges the config file under the flags: a flag set on the command
// line wins, otherwise the file value replaces the flag default.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	if !isValidFormat(o.format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.format, validFormats)
	}
	var file config.Config
	if o.configPath != "" {
		var err error
		if file, err = config.Load(o.configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		merge(cmd, &o.cfg, file)
	}
	if v := os.Getenv("SCRIPTD_ADDR"); v != "" && !cmd.Flags().Changed("addr") && file.Addr == "" {
		o.cfg.Addr = v
	}
	if err := o.cfg.Validate(); err != nil {
		return err
	}
	log, err := newLogger(o.cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.log = log
	o.logW = cmd.ErrOrStderr()
	return nil
}

func merge(cmd *cobra.Command, dst *config.Config, file config.Config) {
	changed := cmd.Flags().Changed
	setStr := func(flag string, d *string, v string) {
		if v != "" && !changed(flag) {
			*d = v
		}
	}
	setInt := func(flag string, d *int, v int) {
		if v != 0 && !changed(flag) {
			*d = v
		}
	}
	setStr("addr", &dst.Addr, file.Addr)
	setStr("engine", &dst.Engine, file.Engine)
	setStr("modules-dir", &dst.ModulesDir, file.ModulesDir)
	setStr("log-level", &dst.LogLevel, file.LogLevel)
	setInt("workers", &dst.Workers, file.Workers)
	setInt("queue-depth", &dst.QueueDepth, file.QueueDepth)
	setStr("dequeue-timeout", &dst.DequeueTimeout, file.DequeueTimeout)
	setStr("drain-timeout", &dst.DrainTimeout, file.DrainTimeout)
	setStr("journal", &dst.JournalPath, file.JournalPath)
	setInt("llama-ctx", &dst.LlamaContext, file.LlamaContext)
	setInt("llama-threads", &dst.LlamaThreads, file.LlamaThreads)
	setInt("memory-limit-pages", &dst.MemoryLimitPages, file.MemoryLimitPages)
	if file.CORSEnabled && !changed("cors-enabled") {
		dst.CORSEnabled = true
	}
	if len(file.CORSAllowedOrigins) > 0 && !changed("cors-origins") {
		dst.CORSAllowedOrigins = file.CORSAllowedOrigins
	}
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (o *rootOptions) logOut() io.Writer {
	if o.logW == nil {
		return os.Stderr
	}
	return o.logW
}
