package main

import (
	"fmt"
	"os"

	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/kaspa-bridge/deposit-sender/pkg/deposit"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "deposit-sender",
		Usage: "Send a Kaspa deposit transaction with a Hyperlane payload to the bridge escrow",
		Description: `Signs and broadcasts one transaction paying --amount sompi to --escrow, carrying
the hex --payload produced by the bridge SDK. On success the transaction id is the only
output on stdout; logs and diagnostics go to stderr.

The wallet must already exist (see "wallet create") and hold enough KAS.`,
		Version: "1.0.0",
		Flags:   depositFlags(),
		Action:  runDeposit,
		Commands: []*cli.Command{
			{
				Name:  "wallet",
				Usage: "Manage the local wallet used for deposits",
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "Create a wallet with one account",
						Flags:  walletCreateFlags(),
						Action: runWalletCreate,
					},
					{
						Name:   "accounts",
						Usage:  "List wallet accounts and their receive addresses",
						Flags:  walletFlags(),
						Action: runWalletAccounts,
					},
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		if kind := deposit.KindOf(err); kind != 0 {
			fmt.Fprintf(os.Stderr, "deposit failed (%s): %v\n", kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		}
		os.Exit(1)
	}
}

// networkUsage lists the accepted network selectors
var networkUsage = fmt.Sprintf("Kaspa network: %s", config.GetSupportedNetworksString())
