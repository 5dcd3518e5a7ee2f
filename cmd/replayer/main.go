// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

// Run using
//  go run ./cmd/replayer --config <file> <command> <flags>

var (
	configFlag = cli.StringFlag{
		Name:     "config",
		Usage:    "path of the JSON configuration file",
		Required: true,
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level, 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	}
	logFormatFlag = cli.StringFlag{
		Name:  "log.format",
		Usage: "log output format, either terminal or json",
		Value: "terminal",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "address to serve prometheus metrics on, overrides the configuration file",
	}
	errorPolicyFlag = cli.StringFlag{
		Name:  "error-policy",
		Usage: "abort or continue once retries are exhausted, overrides the configuration file",
	}
	diagnosticsFlag = cli.IntFlag{
		Name:  "diagnostic-port",
		Usage: "enable hosting of a realtime diagnostic server by providing a port",
		Value: 0,
	}
	cpuProfileFlag = cli.StringFlag{
		Name:  "cpuprofile",
		Usage: "sets the target file for storing CPU profiles to, disabled if empty",
		Value: "",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "replayer",
		Usage: "replays persisted shreds into a verified ledger and accumulates account state roots",
		Flags: []cli.Flag{
			&configFlag,
			&verbosityFlag,
			&logFormatFlag,
			&metricsAddrFlag,
			&errorPolicyFlag,
			&diagnosticsFlag,
			&cpuProfileFlag,
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			&InitDb,
			&Replay,
			&ReplayRange,
			&Accumulate,
			&Info,
			&Roots,
		},
	}
}

func setupLogging(context *cli.Context) error {
	level := log.FromLegacyLevel(context.Int(verbosityFlag.Name))
	var handler slog.Handler
	switch format := context.String(logFormatFlag.Name); format {
	case "terminal":
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, false)
	case "json":
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	log.SetDefault(log.NewLogger(handler))
	return nil
}

func addPerformanceDiagnoses(action cli.ActionFunc) cli.ActionFunc {
	return func(context *cli.Context) error {

		// Start the diagnostic service if requested.
		diagnosticPort := context.Int(diagnosticsFlag.Name)
		startDiagnosticServer(diagnosticPort)

		// Start CPU profiling.
		cpuProfileFileName := context.String(cpuProfileFlag.Name)
		if strings.TrimSpace(cpuProfileFileName) != "" {
			if err := startCpuProfiler(cpuProfileFileName); err != nil {
				return err
			}
			defer pprof.StopCPUProfile()
		}

		return action(context)
	}
}

func startDiagnosticServer(port int) {
	if port <= 0 || port >= (1<<16) {
		return
	}
	addr := fmt.Sprintf("localhost:%d", port)
	log.Info("Starting diagnostic server", "url", "http://"+addr+"/debug/pprof")
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Warn("Diagnostic server stopped", "err", err)
		}
	}()
	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)
}

func startCpuProfiler(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %s", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return fmt.Errorf("could not start CPU profile: %s", err)
	}
	return nil
}
