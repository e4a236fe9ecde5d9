package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/thereayou/cipherchat/cmd/server"
	"github.com/thereayou/cipherchat/internal/config"
	"github.com/thereayou/cipherchat/pkg/encryption"
)

func main() {
	var (
		envFile     string
		generateKey bool
	)
	flagSet := pflag.NewFlagSet("cipherchat", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", "", "load environment from this file instead of .env.local/.env")
	flagSet.BoolVar(&generateKey, "generate-key", false, "print a new MESSAGE_ENCRYPTION_KEY and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	if generateKey {
		key, err := encryption.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(key)
		return
	}

	log := logrus.New()
	if err := config.LoadEnvFiles(envFile, log); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	log = config.NewLogger(cfg)
	gin.SetMode(cfg.GinMode)

	srv, err := server.NewServer(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Startup failed")
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.WithError(err).Warn("Error closing connections")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("Server stopped with error")
		stop()
		_ = srv.Close()
		os.Exit(1)
	}
}
