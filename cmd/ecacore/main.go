// ecacore runs a data-driven event-condition-action scene.
// Usage: ecacore [--version] [--config <file>] [--plain] [--script <file>] [--trace] <content_directory>
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/nathoo/ecacore/cli"
	"github.com/nathoo/ecacore/config"
	"github.com/nathoo/ecacore/engine"
	"github.com/nathoo/ecacore/loader"
	"github.com/nathoo/ecacore/metric"
	"github.com/nathoo/ecacore/pkg/logger"
	"github.com/nathoo/ecacore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = "Usage: ecacore [--version] [--config <file>] [--plain] [--script <file>] [--trace] <content_directory>\n"

func main() {
	plain := false
	trace := false
	var contentDir, scriptFile, configFile string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version":
			fmt.Printf("ecacore %s (commit %s, built %s)\n", version, commit, date)
			return
		case "--plain":
			plain = true
		case "--trace":
			trace = true
		case "--script", "--config":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires a file path\n", args[i])
				os.Exit(1)
			}
			if args[i] == "--script" {
				scriptFile = args[i+1]
			} else {
				configFile = args[i+1]
			}
			i++
		default:
			if contentDir == "" {
				contentDir = args[i]
			}
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if contentDir == "" {
		contentDir = cfg.Content
	}
	if contentDir == "" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	// Logs go to stderr so they never interleave with scripted output.
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	reg := prometheus.NewRegistry()
	metrics := metric.New(reg)
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector())
		go serveMetrics(cfg.Metrics.Addr, reg, logger.Component(log, "metrics"))
	}

	defs, err := loader.Load(contentDir, loader.WithLogger(logger.Component(log, "loader")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scene: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(defs,
		engine.WithLogger(logger.Component(log, "engine")),
		engine.WithMetrics(metrics),
	)

	newCLI := func() *cli.CLI {
		c := cli.New(eng, defs)
		if cfg.SaveDir != "" {
			c.SaveDir = cfg.SaveDir
		}
		c.TickMs = cfg.TickMs
		c.Trace = trace
		return c
	}

	// Script mode: open file, force plain, echo input.
	if scriptFile != "" {
		f, err := os.Open(scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		c := newCLI()
		c.In = f
		c.EchoInput = true
		c.Run()
		return
	}

	// Use plain CLI if --plain flag or stdout is not a terminal.
	if plain || !isTerminal() {
		newCLI().Run()
		return
	}

	// The TUI owns the terminal; keep it clear of log output.
	log.SetOutput(io.Discard)

	opts := tui.Options{
		TickInterval: cfg.TickInterval(),
		SaveDir:      cfg.SaveDir,
		Trace:        trace,
	}
	if err := tui.Run(eng, defs, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.WithField("addr", addr).Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics server stopped")
	}
}

// isTerminal returns true if stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
