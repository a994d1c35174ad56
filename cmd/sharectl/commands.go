package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bitfsorg/sharestore-go/api"
	"github.com/bitfsorg/sharestore-go/revshare"
	"github.com/bitfsorg/sharestore-go/wallet"
)

const requestTimeout = 30 * time.Second

// parse registers the global flags plus any extra ones, parses args and
// returns the positional arguments.
func (g *globals) parse(name string, args []string, extra func(*flag.FlagSet)) []string {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	g.register(fs)
	if extra != nil {
		extra(fs)
	}
	fs.Parse(args)
	return fs.Args()
}

func (g *globals) password() (string, error) {
	if g.passEnv == "" {
		return "", nil
	}
	val, ok := os.LookupEnv(g.passEnv)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", g.passEnv)
	}
	return val, nil
}

// signer unlocks the keystore and returns the selected key.
func (g *globals) signer() (*wallet.KeyPair, error) {
	password, err := g.password()
	if err != nil {
		return nil, err
	}
	ks, err := wallet.OpenKeystore(g.keystore, password)
	if err != nil {
		return nil, err
	}
	return ks.Signer(g.label)
}

func (g *globals) client() (*api.Client, error) {
	kp, err := g.signer()
	if err != nil {
		return nil, err
	}
	return api.NewClient(g.server, kp.PrivateKey), nil
}

func (g *globals) readOnlyClient() *api.Client {
	return api.NewClient(g.server, nil)
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// ---------------------------------------------------------------------------
// Keys
// ---------------------------------------------------------------------------

func runKeygen(g *globals, args []string) error {
	var label, mnemonic string
	g.parse("keygen", args, func(fs *flag.FlagSet) {
		fs.StringVar(&label, "label", "", "add a key with this label to an existing keystore")
		fs.StringVar(&mnemonic, "mnemonic", "", "restore from an existing BIP39 mnemonic")
	})
	password, err := g.password()
	if err != nil {
		return err
	}

	if label != "" {
		ks, err := wallet.OpenKeystore(g.keystore, password)
		if err != nil {
			return err
		}
		kp, err := ks.NewKey(label)
		if err != nil {
			return err
		}
		fmt.Printf("Key %q: %s (%s)\n", label, kp.Identity, kp.Path)
		return nil
	}

	generated := mnemonic == ""
	if generated {
		if mnemonic, err = wallet.GenerateMnemonic(wallet.Mnemonic12Words); err != nil {
			return err
		}
	}
	ks, err := wallet.InitKeystore(g.keystore, mnemonic, "", password)
	if err != nil {
		return err
	}
	kp, err := ks.Signer(wallet.DefaultKeyLabel)
	if err != nil {
		return err
	}
	if generated {
		fmt.Printf("Mnemonic (store it offline): %s\n", mnemonic)
	}
	fmt.Printf("Identity: %s\n", kp.Identity)
	return nil
}

// ---------------------------------------------------------------------------
// Ledgers
// ---------------------------------------------------------------------------

func runCreate(g *globals, args []string) error {
	var (
		name     string
		assetHex string
		decimals uint
	)
	g.parse("create", args, func(fs *flag.FlagSet) {
		fs.StringVar(&name, "name", "", "ledger name (1-32 bytes)")
		fs.StringVar(&assetHex, "asset", "", "fungible asset identity; empty for a native ledger")
		fs.UintVar(&decimals, "decimals", 0, "decimal places of the asset")
	})
	if decimals > 255 {
		return fmt.Errorf("decimals %d out of range", decimals)
	}
	var assetID *revshare.Identity
	if assetHex != "" {
		id, err := revshare.ParseIdentity(assetHex)
		if err != nil {
			return err
		}
		assetID = &id
	}

	c, err := g.client()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout()
	defer cancel()
	l, err := c.CreateLedger(ctx, name, assetID, uint8(decimals))
	if err != nil {
		return err
	}
	return printJSON(l)
}

func runShow(g *globals, args []string) error {
	pos := g.parse("show", args, nil)
	id, err := ledgerArg(pos)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout()
	defer cancel()
	l, err := g.readOnlyClient().GetLedger(ctx, id)
	if err != nil {
		return err
	}
	return printLedger(l)
}

func printLedger(l *revshare.Ledger) error {
	if err := printJSON(l); err != nil {
		return err
	}
	fmt.Printf("Total distributed: %s\n", revshare.FormatAmount(l.TotalDistributed, l.Kind.Decimals))
	if l.LastDistributedAt != 0 {
		fmt.Printf("Last distribution: %s\n", time.Unix(l.LastDistributedAt, 0).UTC().Format(time.RFC3339))
	}
	return nil
}

func runList(g *globals, args []string) error {
	pos := g.parse("list", args, nil)
	var admin revshare.Identity
	if len(pos) > 0 {
		id, err := revshare.ParseIdentity(pos[0])
		if err != nil {
			return err
		}
		admin = id
	} else {
		kp, err := g.signer()
		if err != nil {
			return err
		}
		admin = kp.Identity
	}
	ctx, cancel := withTimeout()
	defer cancel()
	ls, err := g.readOnlyClient().ListLedgers(ctx, admin)
	if err != nil {
		return err
	}
	for _, l := range ls {
		state := "enabled"
		if !l.Enabled {
			state = "disabled"
		}
		fmt.Printf("%s  %-32s  %d holders  %s\n", l.ID, l.Name, len(l.Holders), state)
	}
	return nil
}

func runSetHolders(g *globals, args []string) error {
	pos := g.parse("set-holders", args, nil)
	id, err := ledgerArg(pos)
	if err != nil {
		return err
	}
	hs := make([]revshare.Holder, 0, len(pos)-1)
	for _, arg := range pos[1:] {
		h, err := parseHolder(arg)
		if err != nil {
			return err
		}
		hs = append(hs, h)
	}
	return g.mutate(func(ctx context.Context, c *api.Client) (*revshare.Ledger, error) {
		return c.SetHolders(ctx, id, hs)
	})
}

func runAddHolder(g *globals, args []string) error {
	pos := g.parse("add-holder", args, nil)
	id, err := ledgerArg(pos)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return errors.New("add-holder takes exactly one <identity:bps>")
	}
	h, err := parseHolder(pos[1])
	if err != nil {
		return err
	}
	return g.mutate(func(ctx context.Context, c *api.Client) (*revshare.Ledger, error) {
		return c.AddHolder(ctx, id, h)
	})
}

func runRemoveHolder(g *globals, args []string) error {
	pos := g.parse("remove-holder", args, nil)
	id, err := ledgerArg(pos)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return errors.New("remove-holder takes exactly one <identity>")
	}
	holder, err := revshare.ParseIdentity(pos[1])
	if err != nil {
		return err
	}
	return g.mutate(func(ctx context.Context, c *api.Client) (*revshare.Ledger, error) {
		return c.RemoveHolder(ctx, id, holder)
	})
}

func runToggle(enabled bool) func(*globals, []string) error {
	name := "disable"
	if enabled {
		name = "enable"
	}
	return func(g *globals, args []string) error {
		pos := g.parse(name, args, nil)
		id, err := ledgerArg(pos)
		if err != nil {
			return err
		}
		return g.mutate(func(ctx context.Context, c *api.Client) (*revshare.Ledger, error) {
			return c.SetEnabled(ctx, id, enabled)
		})
	}
}

func (g *globals) mutate(fn func(context.Context, *api.Client) (*revshare.Ledger, error)) error {
	c, err := g.client()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout()
	defer cancel()
	l, err := fn(ctx, c)
	if err != nil {
		return err
	}
	return printLedger(l)
}

// ---------------------------------------------------------------------------
// Value movement
// ---------------------------------------------------------------------------

func runDeposit(g *globals, args []string) error {
	pos := g.parse("deposit", args, nil)
	id, err := ledgerArg(pos)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return errors.New("deposit takes <ledger> <amount>")
	}
	amount, err := strconv.ParseUint(pos[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", pos[1], err)
	}
	c, err := g.client()
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout()
	defer cancel()
	if err := c.Deposit(ctx, id, amount); err != nil {
		return err
	}
	fmt.Printf("Deposited %d into %s\n", amount, id)
	return nil
}

func runDistribute(g *globals, args []string) error {
	pos := g.parse("distribute", args, nil)
	id, err := ledgerArg(pos)
	if err != nil {
		return err
	}
	var dests []revshare.Identity
	for _, arg := range pos[1:] {
		d, err := revshare.ParseIdentity(arg)
		if err != nil {
			return err
		}
		dests = append(dests, d)
	}
	ctx, cancel := withTimeout()
	defer cancel()
	receipt, err := g.readOnlyClient().Distribute(ctx, id, dests)
	if err != nil {
		return err
	}
	if receipt.Distributed == 0 {
		fmt.Println("Nothing to distribute")
		return nil
	}
	return printJSON(receipt)
}

func runTokenAccount(g *globals, args []string) error {
	var show string
	pos := g.parse("token-account", args, func(fs *flag.FlagSet) {
		fs.StringVar(&show, "show", "", "print the token account with this handle")
	})
	ctx, cancel := withTimeout()
	defer cancel()

	if show != "" {
		handle, err := revshare.ParseIdentity(show)
		if err != nil {
			return err
		}
		acct, err := g.readOnlyClient().TokenAccount(ctx, handle)
		if err != nil {
			return err
		}
		return printJSON(acct)
	}

	if len(pos) != 1 {
		return errors.New("token-account takes exactly one <asset>")
	}
	assetID, err := revshare.ParseIdentity(pos[0])
	if err != nil {
		return err
	}
	c, err := g.client()
	if err != nil {
		return err
	}
	handle, err := c.OpenTokenAccount(ctx, assetID)
	if err != nil {
		return err
	}
	fmt.Printf("Token account: %s\n", handle)
	return nil
}

func runBalance(g *globals, args []string) error {
	pos := g.parse("balance", args, nil)
	var account revshare.Identity
	if len(pos) > 0 {
		id, err := revshare.ParseIdentity(pos[0])
		if err != nil {
			return err
		}
		account = id
	} else {
		kp, err := g.signer()
		if err != nil {
			return err
		}
		account = kp.Identity
	}
	ctx, cancel := withTimeout()
	defer cancel()
	bal, err := g.readOnlyClient().Balance(ctx, account)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %d\n", account, bal)
	return nil
}

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

func ledgerArg(pos []string) (revshare.Identity, error) {
	if len(pos) == 0 {
		return revshare.Identity{}, errors.New("missing <ledger> argument")
	}
	return revshare.ParseIdentity(pos[0])
}

// parseHolder parses "identity:bps".
func parseHolder(arg string) (revshare.Holder, error) {
	idHex, bpsStr, ok := strings.Cut(arg, ":")
	if !ok {
		return revshare.Holder{}, fmt.Errorf("holder %q: want identity:bps", arg)
	}
	id, err := revshare.ParseIdentity(idHex)
	if err != nil {
		return revshare.Holder{}, fmt.Errorf("holder %q: %w", arg, err)
	}
	bps, err := strconv.ParseUint(bpsStr, 10, 16)
	if err != nil {
		return revshare.Holder{}, fmt.Errorf("holder %q: invalid basis points: %w", arg, err)
	}
	return revshare.Holder{Identity: id, ShareBps: uint16(bps)}, nil
}
