package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/db"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
	"github.com/podnetwork/pod-sdk-sub000/ledger"
	"github.com/podnetwork/pod-sdk-sub000/logging"
	"github.com/podnetwork/pod-sdk-sub000/presenter"
	"github.com/podnetwork/pod-sdk-sub000/repository"
	"github.com/podnetwork/pod-sdk-sub000/settlement"
	"github.com/podnetwork/pod-sdk-sub000/utils"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrJournalRequired  = errors.New("postgres section is required for this command")
	ErrKeyRequired      = errors.New("private key is required for this command")
	ErrUnknownDirection = errors.New("unknown request direction")
)

type direction int

const (
	toSettlement direction = iota
	fromSettlement
)

type assetKind int

const (
	nativeTransfer assetKind = iota
	tokenTransfer
)

type app struct {
	logger     logging.Logger
	cfg        *config.Config
	signer     common.Address
	source     ledger.BridgeLedger
	settlement ledger.BridgeLedger
	dbConn     *db.DB
	repo       *repository.Repo
}

// newApp dials both chains. Without a private key the clients can only read, which is enough
// for serving the journal.
func newApp(c *cli.Context, logger logging.Logger, needsKey bool) (*app, error) {
	cfg, err := config.ReadConfigFromFile(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)

	key, signer, err := signerKey(c.String(privateKeyFlag.Name), needsKey)
	if err != nil {
		return nil, err
	}

	sourceClient, err := dial(cfg.SourceChain, key)
	if err != nil {
		return nil, fmt.Errorf("can't dial source chain rpc client: %w", err)
	}
	settlementClient, err := dial(cfg.SettlementChain, key)
	if err != nil {
		return nil, fmt.Errorf("can't dial settlement chain rpc client: %w", err)
	}

	a := &app{
		logger:     logger,
		cfg:        cfg,
		signer:     signer,
		source:     ledger.NewSourceLedger(sourceClient, cfg.SourceChain),
		settlement: ledger.NewSettlementLedger(settlementClient, cfg.SettlementChain),
	}
	if cfg.DBConfig != nil {
		a.dbConn, err = db.ConnectToDBAndMigrate(c.Context, cfg.DBConfig)
		if err != nil {
			return nil, fmt.Errorf("can't connect to database and apply migrations: %w", err)
		}
		a.repo = repository.NewRepo(a.dbConn)
	}
	logger.WithFields(logrus.Fields{
		"signer":              signer,
		"source_chain_id":     sourceClient.ChainID(),
		"settlement_chain_id": settlementClient.ChainID(),
		"journal":             a.repo != nil,
	}).Info("initialized bridge")
	return a, nil
}

func signerKey(hexKey string, required bool) (*ecdsa.PrivateKey, common.Address, error) {
	key, signer, err := utils.ParsePrivateKey(hexKey)
	switch {
	case errors.Is(err, utils.ErrEmptyPrivateKey) && !required:
		return nil, common.Address{}, nil
	case errors.Is(err, utils.ErrEmptyPrivateKey):
		return nil, common.Address{}, ErrKeyRequired
	case err != nil:
		return nil, common.Address{}, err
	}
	return key, signer, nil
}

func dial(side *config.BridgeSideConfig, key *ecdsa.PrivateKey) (ethclient.Client, error) {
	rpcCfg := side.Chain.RPC
	return ethclient.NewClient(rpcCfg.Host, rpcCfg.Timeout, side.Chain.ChainID, key)
}

func (a *app) close() {
	if a.dbConn != nil {
		if err := a.dbConn.Close(); err != nil {
			a.logger.WithError(err).Warn("can't close database connection")
		}
	}
}

func (a *app) serveMetrics() {
	if a.cfg.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.ListenAndServe(a.cfg.MetricsAddr, mux)
		if err != nil {
			a.logger.WithError(err).Error("can't start listener for prometheus metrics")
		}
	}()
}

func (a *app) orchestrator(origin entity.LedgerID) *settlement.Orchestrator {
	src, dst := a.source, a.settlement
	if origin == entity.LedgerSettlement {
		src, dst = a.settlement, a.source
	}
	var opts []settlement.Option
	if a.repo != nil {
		opts = append(opts, settlement.WithJournal(a.repo.Settlements))
	}
	return settlement.NewOrchestrator(a.logger, src, dst, a.cfg.Settlement, opts...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q: %w", s, ErrInvalidAddress)
	}
	return common.HexToAddress(s), nil
}

func transferAction(logger logging.Logger, dir direction, kind assetKind) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c, logger, true)
		if err != nil {
			return err
		}
		defer a.close()
		a.serveMetrics()

		amount, ok := new(big.Int).SetString(c.String(amountFlag.Name), 10)
		if !ok || amount.Sign() <= 0 {
			return fmt.Errorf("%q: %w", c.String(amountFlag.Name), ErrInvalidAmount)
		}
		recipient := a.signer
		if s := c.String(recipientFlag.Name); s != "" {
			if recipient, err = parseAddress(s); err != nil {
				return err
			}
		}

		origin := a.source
		if dir == fromSettlement {
			origin = a.settlement
		}
		// the destination bridge mirrors only the configured token_address of the origin side
		asset := entity.NativeAsset()
		if kind == tokenTransfer {
			asset = entity.TokenAsset(origin.Token())
		}

		ctx, cancel := signalContext()
		defer cancel()

		req, err := a.orchestrator(origin.ID()).Start(ctx, asset, amount, recipient)
		if err != nil {
			var timeoutErr *entity.TimeoutError
			if req != nil && errors.As(err, &timeoutErr) {
				a.logger.WithFields(logrus.Fields{
					"request_id": req.ID,
					"stage":      timeoutErr.Stage,
				}).Warn("request timed out, it can be continued with the resume command")
			}
			return err
		}
		a.logger.WithFields(logrus.Fields{
			"request_id":      req.ID,
			"deposit_tx_hash": req.DepositTxHash,
			"claim_tx_hash":   req.ClaimTxHash,
			"amount":          req.Amount,
			"recipient":       req.Recipient,
		}).Info("transfer confirmed")
		return nil
	}
}

func resumeAction(logger logging.Logger) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c, logger, true)
		if err != nil {
			return err
		}
		defer a.close()
		if a.repo == nil {
			return ErrJournalRequired
		}
		a.serveMetrics()

		ctx, cancel := signalContext()
		defer cancel()

		if s := c.String(requestIDFlag.Name); s != "" {
			id := common.HexToHash(s)
			row, err := a.repo.Settlements.GetByRequestID(ctx, id)
			if err != nil {
				return fmt.Errorf("can't load request %s: %w", id, err)
			}
			if row.Origin != entity.LedgerSource && row.Origin != entity.LedgerSettlement {
				return fmt.Errorf("%q: %w", row.Origin, ErrUnknownDirection)
			}
			req, err := a.orchestrator(row.Origin).ResumeByID(ctx, id)
			if err != nil {
				return err
			}
			a.logger.WithFields(logrus.Fields{
				"request_id": req.ID,
				"status":     req.Status,
			}).Info("request resumed")
			return nil
		}
		return a.resumePending(ctx)
	}
}

func (a *app) resumePending(ctx context.Context) error {
	return errors.Join(
		a.orchestrator(entity.LedgerSource).ResumePending(ctx),
		a.orchestrator(entity.LedgerSettlement).ResumePending(ctx),
	)
}

func serveAction(logger logging.Logger) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c, logger, c.Bool(resumeFlag.Name))
		if err != nil {
			return err
		}
		defer a.close()
		if a.repo == nil {
			return ErrJournalRequired
		}
		a.serveMetrics()

		ctx, cancel := signalContext()
		defer cancel()

		if a.cfg.Presenter != nil {
			pr := presenter.NewPresenter(a.logger.WithField("service", "presenter"), a.repo, a.cfg)
			go func() {
				if err := pr.Serve(a.cfg.Presenter.Host); err != nil {
					a.logger.WithError(err).Error("can't serve presenter")
					cancel()
				}
			}()
		}
		if c.Bool(resumeFlag.Name) {
			go func() {
				if err := a.resumePending(ctx); err != nil {
					a.logger.WithError(err).Error("some requests were not resumed")
				}
			}()
		}

		<-ctx.Done()
		a.logger.Warn("caught termination signal, gracefully terminating")
		return nil
	}
}
