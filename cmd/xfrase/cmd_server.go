package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/akamensky/argparse"

	"github.com/dreamware/xfrase/internal/config"
	"github.com/dreamware/xfrase/internal/handler"
	"github.com/dreamware/xfrase/internal/indexset"
	"github.com/dreamware/xfrase/internal/methylome"
	"github.com/dreamware/xfrase/internal/methylomeset"
	"github.com/dreamware/xfrase/internal/server"
	"github.com/dreamware/xfrase/internal/xlog"
)

type serverArgs struct {
	configFile   *string
	hostname     *string
	port         *int
	methylomeDir *string
	indexDir     *string
	maxResident  *int
	threads      *int
	stepTimeout  *float64
	daemonize    *bool
	logLevel     *string
	logFile      *string
}

func bindServerArgs(cmd *argparse.Command) *serverArgs {
	return &serverArgs{
		configFile:   cmd.String("c", "config-file", &argparse.Options{Help: "Load a config file written by 'xfrase config'"}),
		hostname:     cmd.String("s", "hostname", &argparse.Options{Help: "Address to bind (default 0.0.0.0)"}),
		port:         cmd.Int("p", "port", &argparse.Options{Help: "Port to bind (default 5000)"}),
		methylomeDir: cmd.String("m", "methylome-dir", &argparse.Options{Required: true, Help: "Directory of .m16 methylome files"}),
		indexDir:     cmd.String("x", "index-dir", &argparse.Options{Required: true, Help: "Directory of .cpg_idx files"}),
		maxResident:  cmd.Int("r", "max-resident", &argparse.Options{Help: "Max resident methylomes (default 32)"}),
		threads:      cmd.Int("t", "threads", &argparse.Options{Help: "Worker threads (default 1)"}),
		stepTimeout:  cmd.Float("", "step-timeout", &argparse.Options{Help: "Per-step deadline in seconds (default 3)"}),
		daemonize:    cmd.Flag("d", "daemonize", &argparse.Options{Help: "Detach and run in the background"}),
		logLevel:     cmd.String("v", "log-level", &argparse.Options{Help: "debug|info|warning|error|critical (default info)"}),
		logFile:      cmd.String("l", "log-file", &argparse.Options{Help: "Log file path (default stderr)"}),
	}
}

func resolveServerConfig(a *serverArgs) (config.Config, error) {
	cfg := config.Default()
	if *a.configFile != "" {
		loaded, err := config.Load(*a.configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if *a.hostname != "" {
		cfg.Hostname = *a.hostname
	}
	if *a.port != 0 {
		cfg.Port = *a.port
	}
	if *a.methylomeDir != "" {
		cfg.MethylomeDir = *a.methylomeDir
	}
	if *a.indexDir != "" {
		cfg.IndexDir = *a.indexDir
	}
	if *a.maxResident != 0 {
		cfg.MaxResident = *a.maxResident
	}
	if *a.threads != 0 {
		cfg.Threads = *a.threads
	}
	if *a.stepTimeout != 0 {
		cfg.StepTimeoutS = *a.stepTimeout
	}
	if *a.daemonize {
		cfg.Daemonize = true
	}
	if *a.logLevel != "" {
		cfg.LogLevel = xlog.Level(*a.logLevel)
	}
	if *a.logFile != "" {
		cfg.LogFile = *a.logFile
	}
	return cfg, nil
}

func runServer(a *serverArgs) error {
	cfg, err := resolveServerConfig(a)
	if err != nil {
		return err
	}

	if cfg.Daemonize {
		isParent, err := server.Daemonize()
		if err != nil {
			return err
		}
		if isParent {
			return nil
		}
	}

	if err := xlog.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		return err
	}
	defer xlog.Shutdown()

	indices, err := indexset.Scan(cfg.IndexDir)
	if err != nil {
		return err
	}

	loader := func(accession string) (*methylome.Methylome, methylome.Meta, error) {
		meta, err := methylome.PeekMeta(cfg.MethylomeDir, accession)
		if err != nil {
			return nil, methylome.Meta{}, err
		}
		idx, _, err := indices.Get(meta.Assembly)
		if err != nil {
			return nil, methylome.Meta{}, err
		}
		path := filepath.Join(cfg.MethylomeDir, accession+methylome.FileExtension)
		return methylome.Load(path, int(idx.NCpGsTotal()))
	}
	h := handler.New(indices, methylomeset.New(cfg.MaxResident, loader), cfg.MethylomeDir)

	srv := server.New(h, cfg.Threads, time.Duration(cfg.StepTimeoutS*float64(time.Second)))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		xlog.Info("received shutdown signal", nil)
		if err := srv.Shutdown(); err != nil {
			xlog.Warn("shutdown error", xlog.Fields{"error": err.Error()})
		}
	}()

	return srv.ListenAndServe(cfg.Hostname, cfg.Port)
}
