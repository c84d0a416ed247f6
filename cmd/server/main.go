package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Brownie44l1/animal-recognizer/internal/app"
	"github.com/Brownie44l1/animal-recognizer/internal/config"
	"github.com/Brownie44l1/animal-recognizer/internal/handlers"
	"github.com/Brownie44l1/animal-recognizer/internal/metrics"
	"github.com/Brownie44l1/animal-recognizer/internal/predictor"
	"github.com/Brownie44l1/animal-recognizer/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:          "animal-server",
		Short:        "Serve animal image predictions over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config.BindFlags(v, cmd.Flags())
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	config.AddCommonFlags(flags)
	flags.Int("port", 8000, "Port to listen on (env PORT)")
	flags.String("host", "0.0.0.0", "Host to listen on")
	flags.String("environment", config.EnvDevelopment, "Environment: development, production or test")
	flags.String("log-file", "", "Also write JSON logs to this rotating file")

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	a, err := app.New(v)
	if err != nil {
		return err
	}
	defer a.Close()

	log := a.Logger
	pred := predictor.ForUpload(a.Status)
	m := metrics.New()
	h := handlers.NewHandler(pred, log, m, a.Config.MaxUploadBytes)
	srv := server.NewServer(a.Config, h, m, log)

	log.Info("animal recognizer ready",
		zap.String("mode", string(pred.Mode())),
		zap.String("predictor", predictor.Describe(pred)),
		zap.Strings("allowed_origins", a.Config.AllowedOrigins),
	)
	log.Info("endpoints",
		zap.String("health", "GET /"),
		zap.String("predict", "POST /predict (multipart field \""+handlers.FileField+"\")"),
		zap.Bool("metrics", a.Config.MetricsEnabled),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("received shutdown signal")
	}

	return srv.Stop(context.Background())
}
