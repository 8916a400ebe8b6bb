package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lightningnetwork/lnd/signal"
	"github.com/rvnlabs/rvnassets"
	"github.com/urfave/cli"
)

const (
	// Environment variables names that can be used to set the global flags.
	envVarNetwork = "RVNCLI_NETWORK"
	envVarRPCHost = "RVNCLI_RPCSERVER"
	envVarRPCUser = "RVNCLI_RPCUSER"
	envVarRPCPass = "RVNCLI_RPCPASS"
	envVarRPCCert = "RVNCLI_RPCCERT"
	envVarDBFile  = "RVNCLI_DBFILE"

	defaultNetwork = "mainnet"
)

// NewApp creates a new rvncli app with all the available commands.
func NewApp() cli.App {
	app := cli.NewApp()
	app.Name = "rvncli"
	app.Version = rvnassets.Version()
	app.Usage = "inspect, validate and issue assets of a ravencoin " +
		"style chain"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name: "network, n",
			Usage: "The network to operate on, e.g. mainnet, " +
				"testnet or regtest.",
			Value:  defaultNetwork,
			EnvVar: envVarNetwork,
		},
		cli.StringFlag{
			Name: "rpcserver",
			Usage: "The host:port of the node's JSON-RPC " +
				"interface, the network's default port is " +
				"used if none is given.",
			EnvVar: envVarRPCHost,
		},
		cli.StringFlag{
			Name:   "rpcuser",
			Usage:  "Username for RPC connections.",
			EnvVar: envVarRPCUser,
		},
		cli.StringFlag{
			Name: "rpcpass",
			Usage: "Password for RPC connections, prompted for " +
				"if a user is set but no password.",
			EnvVar: envVarRPCPass,
		},
		cli.BoolFlag{
			Name:  "tls",
			Usage: "Connect to the node over TLS.",
		},
		cli.StringFlag{
			Name: "rpccert",
			Usage: "File containing the certificate of a TLS " +
				"proxy in front of the node.",
			TakesFile: true,
			EnvVar:    envVarRPCCert,
		},
		cli.StringFlag{
			Name: "dbfile",
			Usage: "The scanner database to read, defaults to " +
				"the database of rvnscand for the network.",
			TakesFile: true,
			EnvVar:    envVarDBFile,
		},
	}

	// Add all the available commands.
	app.Commands = []cli.Command{
		versionCommand,
	}
	app.Commands = append(app.Commands, payloadCommands...)
	app.Commands = append(app.Commands, nameCommands...)
	app.Commands = append(app.Commands, burnCommands...)
	app.Commands = append(app.Commands, metadataCommands...)
	app.Commands = append(app.Commands, nodeCommands...)
	app.Commands = append(app.Commands, storeCommands...)

	return *app
}

var (
	appCtxOnce sync.Once
	appCtx     context.Context
)

// getContext returns a context that is canceled once the process is asked to
// shut down. The signal interceptor can only be started once per process.
func getContext() context.Context {
	appCtxOnce.Do(func() {
		shutdownInterceptor, err := signal.Intercept()
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		ctxc, cancel := context.WithCancel(context.Background())
		go func() {
			<-shutdownInterceptor.ShutdownChannel()
			cancel()
		}()
		appCtx = ctxc
	})

	return appCtx
}

// output returns the writer of the app, stdout unless it was replaced.
func output(ctx *cli.Context) io.Writer {
	if ctx.App != nil && ctx.App.Writer != nil {
		return ctx.App.Writer
	}

	return os.Stdout
}

func printJSON(ctx *cli.Context, resp interface{}) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("unable to encode response: %w", err)
	}

	var out bytes.Buffer
	_ = json.Indent(&out, b, "", "\t")
	out.WriteString("\n")
	_, err = out.WriteTo(output(ctx))

	return err
}

var versionCommand = cli.Command{
	Name:  "version",
	Usage: "Display rvncli version info.",
	Description: `
	Returns version information about the rvncli binary.
	`,
	Action: version,
}

type versionResponse struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	GoVersion string   `json:"go_version"`
	Tags      []string `json:"build_tags"`
	UserAgent string   `json:"user_agent"`
}

func version(ctx *cli.Context) error {
	return printJSON(ctx, versionResponse{
		Version:   rvnassets.Version(),
		Commit:    rvnassets.Commit,
		GoVersion: rvnassets.GoVersion,
		Tags:      rvnassets.Tags(),
		UserAgent: rvnassets.UserAgent(),
	})
}
