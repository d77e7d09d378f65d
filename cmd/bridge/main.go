package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/podnetwork/pod-sdk-sub000/logging"
)

const appName = "bridge"

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the YAML configuration file",
		Value:   "config.yml",
		EnvVars: []string{"BRIDGE_CONFIG"},
	}
	privateKeyFlag = &cli.StringFlag{
		Name:    "private-key",
		Usage:   "Hex encoded key of the account that deposits and claims, serve without --resume runs read-only",
		EnvVars: []string{"PRIVATE_KEY"},
	}
	recipientFlag = &cli.StringFlag{
		Name:  "recipient",
		Usage: "Destination address, defaults to the signer",
	}
	amountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "Amount in the smallest unit of the asset",
		Value: "1000000",
	}
	requestIDFlag = &cli.StringFlag{
		Name:  "request-id",
		Usage: "Request to resume, all unfinished requests are resumed when omitted",
	}
	resumeFlag = &cli.BoolFlag{
		Name:  "resume",
		Usage: "Resume unfinished requests from the journal on start",
	}
)

func main() {
	logger := logging.New()

	transferFlags := []cli.Flag{configFlag, privateKeyFlag, recipientFlag, amountFlag}
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "Settle certified deposits between the source chain and the settlement chain"
	app.Commands = []*cli.Command{
		{
			Name:   "deposit-native-to-settlement",
			Usage:  "Deposit native currency on the source chain and claim it on the settlement chain",
			Flags:  transferFlags,
			Action: transferAction(logger, toSettlement, nativeTransfer),
		},
		{
			Name:   "deposit-token-to-settlement",
			Usage:  "Deposit tokens on the source chain and claim them on the settlement chain",
			Flags:  transferFlags,
			Action: transferAction(logger, toSettlement, tokenTransfer),
		},
		{
			Name:   "transfer-native-from-settlement",
			Usage:  "Deposit native currency on the settlement chain and claim it on the source chain",
			Flags:  transferFlags,
			Action: transferAction(logger, fromSettlement, nativeTransfer),
		},
		{
			Name:   "transfer-token-from-settlement",
			Usage:  "Deposit tokens on the settlement chain and claim them on the source chain",
			Flags:  transferFlags,
			Action: transferAction(logger, fromSettlement, tokenTransfer),
		},
		{
			Name:   "resume",
			Usage:  "Continue timed out or interrupted requests recorded in the journal",
			Flags:  []cli.Flag{configFlag, privateKeyFlag, requestIDFlag},
			Action: resumeAction(logger),
		},
		{
			Name:   "serve",
			Usage:  "Serve the settlement journal over HTTP together with metrics",
			Flags:  []cli.Flag{configFlag, privateKeyFlag, resumeFlag},
			Action: serveAction(logger),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.WithError(err).Fatal("bridge command failed")
	}
}
