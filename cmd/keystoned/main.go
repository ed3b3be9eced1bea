/*
DESCRIPTION
  keystoned is the video transform service daemon: it opens a V4L2
  capture device, runs the capture -> decode -> color-correct ->
  perspective-warp -> output pipeline, serves the HTTP control plane,
  and watches its config file for external edits.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the keystoned daemon entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/loopvid/keystone/control"
	"github.com/loopvid/keystone/device/capture"
	"github.com/loopvid/keystone/device/output"
	"github.com/loopvid/keystone/pipeline"
	"github.com/loopvid/keystone/pipeline/config"
	"github.com/loopvid/keystone/pool"
	"github.com/loopvid/keystone/state"
	"github.com/loopvid/keystone/watch"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = false
)

const pkg = "keystoned: "

func main() {
	showVersion := flag.Bool("version", false, "show version")
	cfgPath := flag.String("config", "/etc/keystone/keystone.conf", "path to the persisted config file")
	input := flag.String("input", "", "capture device path, e.g. /dev/video0 (overrides config)")
	outputPath := flag.String("output", "", "loopback output device path, e.g. /dev/video10 (overrides config)")
	width := flag.Int("width", 0, "capture width (overrides config)")
	height := flag.Int("height", 0, "capture height (overrides config)")
	fps := flag.Int("fps", 0, "capture frame rate (overrides config)")
	host := flag.String("host", "", "HTTP control plane bind host (overrides config)")
	port := flag.Int("port", 0, "HTTP control plane bind port (overrides config)")
	verbose := flag.Bool("verbose", false, "also log to stderr")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%sload config: %v\n", pkg, err)
		os.Exit(1)
	}
	cfg.ConfigPath = *cfgPath
	applyFlagOverrides(cfg, *input, *outputPath, *width, *height, *fps, *host, *port)

	fileLog := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	var w io.Writer = fileLog
	if *verbose {
		w = io.MultiWriter(fileLog, os.Stderr)
	}
	log := logging.New(cfg.LogLevel, w, logSuppress)
	cfg.Logger = log

	log.Info(pkg+"starting", "version", version, "input", cfg.InputPath, "output", cfg.OutputPath)

	if err := run(cfg, log); err != nil {
		log.Fatal(pkg+"exiting", "error", err.Error())
	}
}

func applyFlagOverrides(cfg *config.Config, input, output string, width, height, fpsVal int, host string, port int) {
	if input != "" {
		cfg.InputPath = input
	}
	if output != "" {
		cfg.OutputPath = output
	}
	if width > 0 {
		cfg.Width = width
	}
	if height > 0 {
		cfg.Height = height
	}
	if fpsVal > 0 {
		cfg.FPS = fpsVal
	}
	if host != "" {
		cfg.Host = host
	}
	if port > 0 {
		cfg.Port = port
	}
}

func run(cfg *config.Config, log logging.Logger) error {
	p := pool.New(cfg.PoolSize, log)

	timeout := time.Duration(cfg.CaptureTimeoutMS) * time.Millisecond
	src, err := capture.Open(cfg.InputPath, uint32(cfg.Width), uint32(cfg.Height), uint32(cfg.FPS), true, uint32(cfg.PoolSize), timeout, p, log)
	if err != nil {
		if _, ok := err.(*capture.FormatChanged); !ok {
			return fmt.Errorf("open capture device: %w", err)
		}
	}
	applied := src.Applied()

	snk, err := output.Open(cfg.OutputPath, applied.Width, applied.Height, log)
	if err != nil {
		return fmt.Errorf("open output device: %w", err)
	}

	shared := state.New(cfg.InitialCalibration(), cfg.InitialColor())

	pl := pipeline.New(src, snk, p, shared, log)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pl.Run(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}

	appliedFn := func() pipeline.AppliedDevice {
		a := src.Applied()
		return pipeline.AppliedDevice{Width: a.Width, Height: a.Height, FPS: a.FPS, InputFormat: a.Format}
	}
	srv := control.New(shared, cfg, pl, appliedFn, log)
	httpSrv := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: srv}

	watcher, err := watch.New(cfg, log, func(updated *config.Config) {
		shared.UpdateColor(func(c *state.ColorState) { *c = *updated.InitialColor() })
	})
	if err != nil {
		log.Warning(pkg+"config watch not started", "error", err.Error())
	} else {
		defer watcher.Close()
	}

	go func() {
		log.Info(pkg+"control plane listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(pkg+"control plane stopped", "error", err.Error())
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info(pkg+"received signal, shutting down", "signal", sig.String())
	case err := <-pl.Err():
		log.Error(pkg+"pipeline stopped unexpectedly", "error", err.Error())
		runErr = fmt.Errorf("pipeline: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)

	cancel()
	pl.Stop()
	return runErr
}
