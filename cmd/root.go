// Copyright (C) 2022-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/luxfi/hydra/cmd/clientcmd"
	"github.com/luxfi/hydra/cmd/networkcmd"
	"github.com/luxfi/hydra/cmd/releasecmd"
	"github.com/luxfi/hydra/pkg/application"
	"github.com/luxfi/hydra/pkg/config"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/journal"
	"github.com/luxfi/hydra/pkg/prompts"
	"github.com/luxfi/hydra/pkg/ux"
	"github.com/luxfi/hydra/pkg/version"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	app *application.Hydra
	jrn *journal.Journal

	logLevel       string
	cfgFile        string
	nonInteractive bool
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "hydra",
		Long: `Hydra provisions validator networks on AWS and bootstraps their nodes.

COMMAND OVERVIEW:

  network   Provision, collect, configure and publish networks (operator side)
  client    Bootstrap, configure and supervise a node (runs on the node)
  release   Build and upload the node distribution
  info      Show resolved configuration and AWS identity

TYPICAL WORKFLOW:

  hydra network provision alpha --size 4
  hydra network bootstrap alpha
  hydra network configure alpha
  hydra network publish alpha

The network name may be omitted when HYDRA_NETWORK is set or a default
network was saved with 'hydra network set-default'.`,
		PersistentPreRunE:  createApp,
		PersistentPostRunE: closeApp,
		Version:            version.Version,
		SilenceUsage:       true,
		SilenceErrors:      true,
	}

	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./hydra.yaml, then $HOME/.hydra/hydra.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "console log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false,
		"Disable prompts; fail if required values are missing (also enabled when stdin is not a TTY or CI=1)")

	rootCmd.AddCommand(networkcmd.NewCmd(app))
	rootCmd.AddCommand(clientcmd.NewCmd(app))
	rootCmd.AddCommand(releasecmd.NewCmd(app))
	rootCmd.AddCommand(newInfoCmd())

	return rootCmd
}

func createApp(_ *cobra.Command, _ []string) error {
	baseDir, err := setupEnv()
	if err != nil {
		return err
	}
	log, err := setupLogging(baseDir)
	if err != nil {
		return err
	}

	if err := loadDotEnv(log); err != nil {
		return err
	}
	cf, err := initConfig(log)
	if err != nil {
		return err
	}

	if nonInteractive {
		_ = os.Setenv(prompts.EnvNonInteractive, "1")
	}
	prompter := prompts.NewPrompterForMode(nonInteractive)
	if err := app.Setup(baseDir, log, cf, prompter); err != nil {
		return err
	}
	app.Version = version.Version

	jrn, err = journal.Open(context.Background(), app.GetJournalPath(), log)
	if err != nil {
		// the journal is history only; commands still run without it
		ux.Logger.Warn("transition journal unavailable: %s", err)
		return nil
	}
	app.AddRegistryHook(jrn)
	networkcmd.SetJournal(jrn)
	return nil
}

func closeApp(_ *cobra.Command, _ []string) error {
	if jrn != nil {
		if err := jrn.Close(); err != nil {
			app.Log.Warn("failed closing journal", zap.Error(err))
		}
	}
	if app.Log != nil {
		_ = app.Log.Sync()
	}
	return nil
}

func setupEnv() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		// no logger here yet
		fmt.Printf("unable to get home directory %s\n", err)
		return "", err
	}
	baseDir := filepath.Join(home, constants.BaseDirName)
	if err := os.MkdirAll(filepath.Join(baseDir, constants.LogDir), 0o750); err != nil {
		fmt.Printf("failed creating the basedir %s: %s\n", baseDir, err)
		return "", err
	}
	return baseDir, nil
}

// setupLogging writes JSON logs to a rotated file and human readable lines
// at --log-level to stderr.
func setupLogging(baseDir string) (*zap.Logger, error) {
	consoleLevel, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(baseDir, constants.LogDir, constants.LogFileName),
		MaxSize:    constants.MaxLogFileSize,
		MaxBackups: constants.MaxNumOfLogFiles,
	}
	fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.AddSync(rotator), zapcore.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), consoleLevel),
	)
	log := zap.New(core).Named("hydra")

	// user facing lines go to stdout, logs to the file and stderr
	ux.NewUserLog(log, os.Stdout)
	return log, nil
}

func loadDotEnv(log *zap.Logger) error {
	if _, err := os.Stat(constants.DotEnvFileName); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(constants.DotEnvFileName); err != nil {
		return fmt.Errorf("failed loading %s: %w", constants.DotEnvFileName, err)
	}
	log.Debug("loaded environment file", zap.String("file", constants.DotEnvFileName))
	return nil
}

// initConfig reads the config file and HYDRA_ environment variables.
// Priority: env vars > config file > defaults
func initConfig(log *zap.Logger) (*config.Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(home, constants.BaseDirName))
		v.SetConfigType(constants.DefaultConfigFileType)
		v.SetConfigName(constants.DefaultConfigFileName)
	}
	config.ConfigureEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed reading config: %w", err)
		}
	} else {
		log.Debug("using config file", zap.String("config-file", v.ConfigFileUsed()))
	}
	return config.Load(v)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	app = application.New()
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\nERROR: %s\n", err)
		os.Exit(1)
	}
}
