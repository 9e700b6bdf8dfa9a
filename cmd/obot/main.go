package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"obot/internal"
	"obot/internal/initialization"
	"obot/internal/logger"
	"obot/internal/setup"
)

func main() {
	configPath := flag.StringP("config", "c", "", "configuration file (default $OBOT_CONFIG, ~/.obot.toml, ./data/config.toml)")
	verbosity := flag.CountP("verbose", "v", "increase verbosity (repeat up to 3 times)")
	hashPassphrase := flag.Bool("hash-passphrase", false, "prompt for an admin passphrase and print its irc_admin_hash")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(internal.BOT_VERSION)
		return
	}
	if *hashPassphrase {
		if _, err := setup.PromptPassphraseHash(os.Stdin, os.Stdout); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		return
	}

	app, err := initialization.Initialize(initialization.Options{
		ConfigPath: *configPath,
		Verbosity:  *verbosity,
	})
	if err != nil {
		logger.Errorf("Initialization error: %v", err)
		os.Exit(1)
	}
	defer func() {
		app.Close()
		logger.Infof("All log files closed")
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer context.AfterFunc(ctx, func() {
		logger.Infof("Shutdown signal received, exiting...")
	})()

	if err := app.Run(ctx); err != nil {
		logger.Errorf("%v", err)
	}
}
