package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/arbor/pkg/store"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Inspect and manage branching conversation threads",
	Long: `arbor manages conversation threads with non-linear history: edited and
regenerated messages become sibling branches, and exactly one linear path
through the tree is visible at a time.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(viper.GetString("log-level"))
		if err != nil {
			return errors.Wrap(err, "invalid log level")
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		return nil
	},
}

func initConfig() {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".arbor"))
	}
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("ARBOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn().Err(err).Msg("could not read config file")
		}
	}
}

func defaultStorePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".arbor", "threads")
}

// openStore builds the configured thread store backend.
func openStore() (store.ThreadStore, error) {
	backend := viper.GetString("store")
	path := viper.GetString("store-path")
	if path == "" {
		path = defaultStorePath()
	}

	switch backend {
	case "", "file":
		return store.NewFileStore(path)
	case "pebble":
		return store.NewPebbleStore(path)
	default:
		return nil, errors.Errorf("unknown store backend %s (want file or pebble)", backend)
	}
}

func main() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("log-level", "info", "zerolog level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store", "file", "thread store backend (file or pebble)")
	rootCmd.PersistentFlags().String("store-path", "", "thread store location (default ~/.arbor/threads)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("store-path", rootCmd.PersistentFlags().Lookup("store-path"))

	rootCmd.AddCommand(
		newShowCommand(),
		newThreadsCommand(),
		newBranchesCommand(),
		newSelectCommand(),
		newMergeCommand(),
		newDeleteCommand(),
		newServeCommand(),
		newSchemaCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
