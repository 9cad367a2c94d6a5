package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	// Registers the postgres driver for the recovery gate.
	_ "github.com/lib/pq"

	"github.com/lttle-cloud/ignition/internal/config"
	"github.com/lttle-cloud/ignition/internal/daemon"
	"github.com/lttle-cloud/ignition/internal/ipc"
	"github.com/lttle-cloud/ignition/internal/journal"
	"github.com/lttle-cloud/ignition/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	j, err := journal.Open(cfg.Daemon.DataDir)
	if err != nil {
		logger.Error("open journal", logging.Error(err))
		return
	}
	defer j.Close()

	d, err := daemon.New(cfg, j, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("flashd shutting down")
}
