// Command vvmsync keeps the local voicemail store of each configured
// phone account in sync with the carrier's visual voicemail mailbox.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nhle/vvm-sync/internal/app"
	"github.com/nhle/vvm-sync/internal/logger"
	"github.com/nhle/vvm-sync/internal/model"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "Path to the YAML configuration")
	envFile := flag.String("env", ".env", "Optional .env file loaded before the configuration")
	flag.Usage = printUsage
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	role := "cli"
	if args[0] == "run" {
		role = "daemon"
	}
	log := logger.New(role, cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("starting vvmsync")
	}

	err = dispatch(ctx, a, args[0], args[1:])
	if cerr := a.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("closing store")
	}
	if err != nil {
		log.Error().Err(err).Str("command", args[0]).Msg("command failed")
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "run":
		return runCommand(ctx, a)
	case "sync":
		return syncCommand(ctx, a, args)
	case "provision":
		return provisionCommand(a, args)
	case "list":
		return listCommand(ctx, a, args)
	case "fetch":
		return fetchCommand(ctx, a, args)
	case "mark-read":
		return markReadCommand(ctx, a, args)
	case "delete":
		return deleteCommand(ctx, a, args)
	case "enable":
		return setEnabledCommand(ctx, a, "enable", true, args)
	case "disable":
		return setEnabledCommand(ctx, a, "disable", false, args)
	case "unprovision":
		return unprovisionCommand(ctx, a, args)
	case "status":
		return statusCommand(ctx, a)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `vvmsync - visual voicemail sync daemon

Usage:
  vvmsync [-config FILE] [-env FILE] <command> [flags]

Commands:
  run                                   Run the sync daemon (SIGHUP forces a full sync)
  sync -account ID -action ACTION       Run one sync (full_sync, upload_only, download_only)
  provision -account ID -server HOST -port PORT -user USER
                                        Store IMAP credentials (password is prompted)
  list -account ID                      List local voicemails
  fetch -account ID -uid UID [-out F]   Download the audio of a voicemail
  mark-read -id ID                      Mark a voicemail read
  delete -id ID                         Delete a voicemail
  enable -account ID                    Enable visual voicemail for an account
  disable -account ID                   Disable visual voicemail for an account
  unprovision -account ID               Remove the stored IMAP credentials
  status                                Show the sync state of every account
`)
}
