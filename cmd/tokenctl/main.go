// tokenctl drives the SPL token and metadata lifecycle from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/whiteelite/tokenforge/config"
	"github.com/whiteelite/tokenforge/internal/log"
)

func main() {
	args := os.Args[1:]
	envFile := ""
	for len(args) > 0 && strings.HasPrefix(args[0], "--env") {
		if v, ok := strings.CutPrefix(args[0], "--env="); ok {
			envFile = v
			args = args[1:]
			continue
		}
		if args[0] != "--env" || len(args) < 2 {
			break
		}
		envFile = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	cmd, cmdArgs := args[0], args[1:]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		usage()
		return
	}

	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		fatal("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration:\n%v", err)
	}
	if err := log.Init(cfg.LogLevel, cfg.LogJSON, cfg.LogFile); err != nil {
		fatal("init logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
	if err := run(ctx, cfg, cmdArgs); err != nil {
		stop()
		if isUnknown(err) {
			fmt.Fprintln(os.Stderr, "The transaction may still land; re-check it with: tokenctl status <signature>")
		}
		fatal("%s: %v", cmd, err)
	}
}

type command func(ctx context.Context, cfg *config.Config, args []string) error

var commands = map[string]command{
	"keygen":          cmdKeygen,
	"create-mint":     cmdCreateMint,
	"create-account":  cmdCreateAccount,
	"mint-to":         cmdMintTo,
	"transfer":        cmdTransfer,
	"burn":            cmdBurn,
	"balance":         cmdBalance,
	"metadata-create": cmdMetadataCreate,
	"metadata-update": cmdMetadataUpdate,
	"metadata-show":   cmdMetadataShow,
	"demo":            cmdDemo,
	"status":          cmdStatus,
	"events":          cmdEvents,
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: tokenctl [--env <file>] <command> [flags]

Configuration comes from the environment and an optional .env file
(SOLANA_NETWORK, SOLANA_RPC_URL, KEYPAIR_PATH, STORAGE_BACKEND, ...).

Commands:
  keygen            Generate a keypair file
  create-mint       Create a new mint (--decimals, --freeze-authority)
  create-account    Resolve or create the token account for --mint and --owner
  mint-to           Mint --amount of --mint to --to (owner)
  transfer          Transfer --amount of --mint from the signer to --to (owner)
  burn              Burn --amount of --mint from the signer's account
  balance           Show the token balance of --owner for --mint
  metadata-create   Upload --image and create the metadata record of --mint
  metadata-update   Upload --image and update the metadata record of --mint
  metadata-show     Print the metadata record of --mint
  demo              Run the full lifecycle on a fresh mint
  status            Re-check a signature, or every unknown outcome in the journal
  events            Print lifecycle events from Kafka
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
