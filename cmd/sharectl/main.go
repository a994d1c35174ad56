// Command sharectl administers share ledgers on a sharestored server.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bitfsorg/sharestore-go/config"
	"github.com/bitfsorg/sharestore-go/wallet"
)

const (
	envServer   = "SHARESTORE_URL"
	envPassword = "SHARESTORE_WALLET_PASS"

	defaultServer = "http://127.0.0.1:8646"
)

type command struct {
	usage string
	run   func(g *globals, args []string) error
}

var commands = map[string]command{
	"keygen":        {"keygen [-label name] [-mnemonic words]", runKeygen},
	"create":        {"create -name name [-asset hex] [-decimals n]", runCreate},
	"show":          {"show <ledger>", runShow},
	"list":          {"list [admin]", runList},
	"set-holders":   {"set-holders <ledger> <identity:bps>...", runSetHolders},
	"add-holder":    {"add-holder <ledger> <identity:bps>", runAddHolder},
	"remove-holder": {"remove-holder <ledger> <identity>", runRemoveHolder},
	"enable":        {"enable <ledger>", runToggle(true)},
	"disable":       {"disable <ledger>", runToggle(false)},
	"deposit":       {"deposit <ledger> <amount>", runDeposit},
	"distribute":    {"distribute <ledger> [destination...]", runDistribute},
	"token-account": {"token-account <asset> | token-account -show <handle>", runTokenAccount},
	"balance":       {"balance [account]", runBalance},
}

// globals are the flags every subcommand accepts.
type globals struct {
	server   string
	keystore string
	label    string
	passEnv  string
}

func (g *globals) register(fs *flag.FlagSet) {
	server := os.Getenv(envServer)
	if server == "" {
		server = defaultServer
	}
	fs.StringVar(&g.server, "server", server, "sharestored base URL")
	fs.StringVar(&g.keystore, "keystore", filepath.Join(config.DefaultDataDir(), "keys"), "wallet keystore directory")
	fs.StringVar(&g.label, "key", wallet.DefaultKeyLabel, "signing key label")
	fs.StringVar(&g.passEnv, "pass-env", envPassword, "environment variable holding the keystore password")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(1)
	}
	if err := cmd.run(&globals{}, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("sharectl <command> [flags] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s\n", commands[name].usage)
	}
	fmt.Println()
	fmt.Println("Every command accepts -server, -keystore, -key and -pass-env.")
}
