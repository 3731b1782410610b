package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/rl1809/lottery-cart/internal/adapter/notify"
	"github.com/rl1809/lottery-cart/internal/config"
	"github.com/rl1809/lottery-cart/internal/logging"
)

func main() {
	var envFile, output string
	pflag.StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	pflag.StringVar(&output, "output", "logs/cart.log", "file the notifications are appended to")
	pflag.Parse()

	if err := config.LoadEnvFile(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("consuming notifications", "queue", notify.QueueName, "output", output)
	err = notify.NewConsumer(cfg.RabbitMQURL, output, log).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "err", err)
		os.Exit(1)
	}
}
