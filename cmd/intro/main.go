package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"StudentIntro/client"
	"StudentIntro/internal/address"
)

const usage = `Usage: intro [flags] <command> [args]

Commands:
  init-mint                 initialize the reward mint
  add <name> <message>      create your intro and collect the reward
  update <name> <message>   replace your intro's message
  delete <name>             delete your intro
  get <name> [owner]        show an intro (default owner: your wallet)
  mint                      show the reward mint
  balance [owner]           show a reward balance (default owner: your wallet)
  address <name>            print your intro's address
  snapshot <file>           download a ledger snapshot

Flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run parses flags, dispatches the command and prints its result to out.
func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("intro", flag.ContinueOnError)
	node := fs.String("node", "127.0.0.1:8080", "Node HTTP address")
	keyPath := fs.String("key", "wallet.key", "Wallet key path (generates new if missing)")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	w, err := client.LoadWallet(*keyPath)
	if err != nil {
		return fmt.Errorf("load wallet:\n%w", err)
	}

	cmd, cmdArgs := rest[0], rest[1:]

	if cmd == "address" {
		if err := needArgs(cmd, cmdArgs, 1); err != nil {
			return err
		}

		addr, err := w.IntroAddress(cmdArgs[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(out, addr)
		return nil
	}

	c, err := client.NewClient(*node)
	if err != nil {
		return err
	}

	res, err := dispatch(c, w, cmd, cmdArgs)
	if err != nil {
		return err
	}

	if raw, ok := res.([]byte); ok {
		return writeSnapshot(out, cmdArgs[0], raw)
	}

	return printJSON(out, res)
}

// dispatch runs one command and returns its printable result.
func dispatch(c *client.Client, w *client.Wallet, cmd string, args []string) (any, error) {
	switch cmd {
	case "init-mint":
		return w.InitializeMint(c)

	case "add":
		if err := needArgs(cmd, args, 2); err != nil {
			return nil, err
		}
		return w.AddIntro(c, args[0], args[1])

	case "update":
		if err := needArgs(cmd, args, 2); err != nil {
			return nil, err
		}
		return w.UpdateIntro(c, args[0], args[1])

	case "delete":
		if err := needArgs(cmd, args, 1); err != nil {
			return nil, err
		}
		return w.DeleteIntro(c, args[0])

	case "get":
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("get: expected <name> [owner]")
		}

		owner, err := ownerArg(w, args[1:])
		if err != nil {
			return nil, err
		}
		return c.GetIntroByName(owner, args[0])

	case "mint":
		return c.GetMint()

	case "balance":
		owner, err := ownerArg(w, args)
		if err != nil {
			return nil, err
		}
		return c.Balance(owner)

	case "snapshot":
		if err := needArgs(cmd, args, 1); err != nil {
			return nil, err
		}
		return c.Snapshot()

	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

// needArgs checks the positional argument count.
func needArgs(cmd string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d arguments, got %d", cmd, n, len(args))
	}

	return nil
}

// ownerArg parses an optional owner address, defaulting to the wallet.
func ownerArg(w *client.Wallet, args []string) (address.Address, error) {
	if len(args) == 0 {
		return w.Address(), nil
	}

	return address.Parse(args[0])
}

// printJSON writes v as indented JSON.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// writeSnapshot saves snapshot bytes to path.
func writeSnapshot(out io.Writer, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot:\n%w", err)
	}

	fmt.Fprintf(out, "wrote %d bytes to %s\n", len(data), path)

	return nil
}
