package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/aleksaelezovic/hexastore/pkg/hexastore"
	"github.com/aleksaelezovic/hexastore/pkg/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.1.0"
)

var (
	tripleStore *store.TripleStore

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "hexastore",
		Short: "triplestore indexed under all six field orderings",
		Long: fmt.Sprintf(`hexastore (v%s)

Stores subject-predicate-object triples in BadgerDB under all six
orderings of their fields, so any combination of bound fields is
answered with a single prefix scan.`, Version),
		PersistentPreRunE:  openStore,
		PersistentPostRunE: closeStore,
		SilenceUsage:       true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of hexastore",
		// overrides the root hooks, no store is needed
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hexastore v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(putCmd)
	RootCmd.AddCommand(getCmd)
	RootCmd.AddCommand(countCmd)
	RootCmd.AddCommand(statsCmd)
	RootCmd.AddCommand(deleteCmd)
	RootCmd.AddCommand(loadCmd)
	RootCmd.AddCommand(demoCmd)

	RootCmd.PersistentFlags().String("path", "./hexastore_data", "directory of the database")
	RootCmd.PersistentFlags().Bool("sync-writes", true, "flush every commit to disk before returning")
	RootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().Bool("print-metrics", false, "print store metrics in Prometheus format on exit")
}

// initConfig loads .env files and maps HEXASTORE_* environment variables
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("hexastore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}

func openStore(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	logger, err := newLogger(viper.GetString("log-level"), os.Stderr)
	if err != nil {
		return err
	}

	tripleStore, err = hexastore.Open(
		viper.GetString("path"),
		hexastore.WithLogger(logger),
		hexastore.WithSyncWrites(viper.GetBool("sync-writes")),
	)
	return err
}

func closeStore(*cobra.Command, []string) error {
	if tripleStore == nil {
		return nil
	}
	if viper.GetBool("print-metrics") {
		store.WriteMetrics(os.Stderr)
	}
	err := tripleStore.Close()
	tripleStore = nil
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := RootCmd.ExecuteContext(ctx)
	stop()

	// PersistentPostRunE is skipped when a command fails
	if closeErr := closeStore(RootCmd, nil); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		os.Exit(1)
	}
}
