package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/rvnlabs/rvnassets/address"
	"github.com/rvnlabs/rvnassets/rvncfg"
	"github.com/rvnlabs/rvnassets/rvndb"
	"github.com/rvnlabs/rvnassets/rvnrpc"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "[rvncli] %v\n", err)
	os.Exit(1)
}

// getParams returns the parameters of the network selected by the global
// network flag.
func getParams(ctx *cli.Context) (*address.ChainParams, error) {
	return address.ParamsForNet(ctx.GlobalString("network"))
}

// getClient returns a client of the node's JSON-RPC interface as described by
// the global flags, together with a function to shut it down again.
func getClient(ctx *cli.Context) (*rvnrpc.Client, func(), error) {
	params, err := getParams(ctx)
	if err != nil {
		return nil, nil, err
	}

	cfg := &rvnrpc.Config{
		Host:     rvncfg.NodeHost(ctx.GlobalString("rpcserver"), params),
		User:     ctx.GlobalString("rpcuser"),
		Pass:     ctx.GlobalString("rpcpass"),
		TLS:      ctx.GlobalBool("tls"),
		CertPath: ctx.GlobalString("rpccert"),
	}
	if cfg.User != "" && cfg.Pass == "" {
		pw, err := readPassword("RPC password: ")
		if err != nil {
			return nil, nil, fmt.Errorf("unable to read password: %w",
				err)
		}
		cfg.Pass = string(pw)
	}

	var certs []byte
	if cfg.CertPath != "" {
		if !cfg.TLS {
			return nil, nil, fmt.Errorf("--rpccert requires --tls")
		}

		certs, err = os.ReadFile(rvncfg.CleanAndExpandPath(cfg.CertPath))
		if err != nil {
			return nil, nil, fmt.Errorf("unable to read rpc cert: %w",
				err)
		}
	}

	client, err := rvnrpc.New(cfg, params, certs)
	if err != nil {
		return nil, nil, err
	}

	return client, client.Stop, nil
}

// getStore opens the scanner database selected by the global flags. The
// database must exist already.
func getStore(ctx *cli.Context) (*rvndb.AssetStore, func(), error) {
	dbFile := ctx.GlobalString("dbfile")
	if dbFile == "" {
		params, err := getParams(ctx)
		if err != nil {
			return nil, nil, err
		}
		dbFile = rvncfg.DatabasePath(params.Name)
	}
	dbFile = rvncfg.CleanAndExpandPath(dbFile)

	if _, err := os.Stat(dbFile); err != nil {
		return nil, nil, fmt.Errorf("unable to open database: %w", err)
	}

	db, err := rvndb.NewSqliteStore(&rvndb.SqliteConfig{
		DatabaseFileName: dbFile,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanUp := func() {
		_ = db.Close()
	}

	return rvndb.NewSqliteAssetStore(db), cleanUp, nil
}

// readPassword reads a password from the terminal. This requires there to be an
// actual TTY so passing in a password from stdin won't work.
func readPassword(text string) ([]byte, error) {
	fmt.Print(text)

	// The variable syscall.Stdin is of a different type in the Windows API
	// that's why we need the explicit cast.
	pw, err := term.ReadPassword(int(syscall.Stdin)) // nolint:unconvert
	fmt.Println()
	return pw, err
}

// promptForConfirmation continuously prompts the user for the message until
// receiving a response of "yes" or "no" and returns their answer as a bool.
func promptForConfirmation(msg string) bool {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print(msg)

		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}

		answer = strings.ToLower(strings.TrimSpace(answer))

		switch {
		case answer == "yes":
			return true
		case answer == "no":
			return false
		default:
			continue
		}
	}
}
