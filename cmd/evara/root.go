package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"evara/internal/app"
	"evara/internal/config"
)

func newRootCmd() *cobra.Command {
	env := config.NewEnv()

	cmd := &cobra.Command{
		Use:           "evara",
		Short:         "Evara Telegram assistant bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), env)
		},
	}

	cmd.PersistentFlags().String("config", "", "Settings file (YAML or JSON). Optional; environment variables always win.")
	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error.")
	_ = env.BindPFlag(config.EnvConfigPath, cmd.PersistentFlags().Lookup("config"))
	_ = env.BindPFlag(config.EnvLogLevel, cmd.PersistentFlags().Lookup("log-level"))

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func run(parent context.Context, env *viper.Viper) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, app.Options{
		ConfigPath: env.GetString(config.EnvConfigPath),
		Env:        env,
		Version:    version,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return err
	}
	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = a.Stop(stopCtx, app.StopFatalError)
		stopCancel()
		return err
	}

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	reason := app.StopSignal
	if ctx.Err() == nil {
		reason = app.StopFatalError
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		return a.Err()
	}
	return nil
}
