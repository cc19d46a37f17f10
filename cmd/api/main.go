package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "funnel",
		Short:         "Course registration API and confirmation mailer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("env", "", "environment name (production enables JSON logs)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("store", "", "lead store driver: postgres or mongo")
	root.PersistentFlags().String("queue", "", "notification queue driver: memory, rabbitmq or asynq")
	_ = v.BindPFlag("ENV", root.PersistentFlags().Lookup("env"))
	_ = v.BindPFlag("LOG_LEVEL", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("STORE_DRIVER", root.PersistentFlags().Lookup("store"))
	_ = v.BindPFlag("QUEUE_DRIVER", root.PersistentFlags().Lookup("queue"))

	serve := newServeCmd(v)
	root.AddCommand(serve, newWorkerCmd(v), newMigrateCmd(v))
	root.RunE = serve.RunE

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
