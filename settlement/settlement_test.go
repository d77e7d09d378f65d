package settlement_test

import (
	"context"
	"database/sql"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ledger/ledgertest"
	"github.com/podnetwork/pod-sdk-sub000/logging"
	"github.com/podnetwork/pod-sdk-sub000/settlement"
)

var recipient = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func noSleep(ctx context.Context, _ time.Duration) bool {
	return ctx.Err() == nil
}

func testConfig() *config.SettlementConfig {
	return &config.SettlementConfig{
		FinalityTimeout:          time.Minute,
		FinalityPollInterval:     10 * time.Second,
		ConfirmationTimeout:      10 * time.Second,
		ConfirmationPollInterval: 2 * time.Second,
		EvidenceInitialDelay:     200 * time.Millisecond,
		EvidenceMaxDelay:         5 * time.Second,
		EvidenceMaxAttempts:      8,
		VerifyProofs:             true,
	}
}

type journal struct {
	mu      sync.Mutex
	rows    map[common.Hash]*entity.Settlement
	history []entity.Status
}

func newJournal() *journal {
	return &journal{rows: make(map[common.Hash]*entity.Settlement)}
}

func (j *journal) Ensure(_ context.Context, s *entity.Settlement) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows[s.RequestID] = s
	j.history = append(j.history, s.Status)
	return nil
}

func (j *journal) GetByRequestID(_ context.Context, id common.Hash) (*entity.Settlement, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s, ok := j.rows[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (j *journal) FindByStatus(_ context.Context, statuses ...entity.Status) ([]*entity.Settlement, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var res []*entity.Settlement
	for _, s := range j.rows {
		for _, status := range statuses {
			if s.Status == status {
				res = append(res, s)
			}
		}
	}
	return res, nil
}

func TestOrchestrator_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name         string
		FromSource   bool
		Token        bool
		Amount       int64
		PriorBalance int64
	}{
		{Name: "native to settlement", FromSource: true, Amount: 1_000_000},
		{Name: "token to settlement", FromSource: true, Token: true, Amount: 1_000_000, PriorBalance: 5},
		{Name: "native from settlement", Amount: 1_000_000, PriorBalance: 7},
		{Name: "token from settlement", Token: true, Amount: 1_000_000},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()

			origin, destination := ledgertest.NewSettlement(), ledgertest.NewSource()
			if test.FromSource {
				origin, destination = ledgertest.NewSource(), ledgertest.NewSettlement()
			}
			asset := entity.NativeAsset()
			if test.Token {
				asset = entity.TokenAsset(origin.Token())
			}
			destination.SetBalance(asset.Kind, recipient, big.NewInt(test.PriorBalance))

			o := settlement.NewOrchestrator(logging.Discard(), origin, destination, testConfig(), settlement.WithSleep(noSleep))
			req, err := o.Start(context.Background(), asset, big.NewInt(test.Amount), recipient)
			require.NoError(t, err)
			require.Equal(t, entity.StatusConfirmed, req.Status)
			require.Equal(t, origin.ID(), req.Origin)
			require.Equal(t, destination.ID(), req.Destination)
			require.Equal(t, asset, req.Asset)
			require.NotEqual(t, common.Hash{}, req.ClaimTxHash)

			balance, err := destination.Balance(context.Background(), asset.Kind, recipient)
			require.NoError(t, err)
			require.Equal(t, test.PriorBalance+test.Amount, balance.Int64())
			require.Equal(t, 1, destination.Claims())
			require.True(t, destination.Processed(req.ID))
		})
	}
}

func TestOrchestrator_RecipientPaysClaimFee(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name     string
		Signer   common.Address
		Asset    func(origin *ledgertest.Ledger) entity.Asset
		ClaimFee *big.Int
		Balance  int64
	}{
		{
			Name:     "recipient claims native",
			Signer:   recipient,
			Asset:    func(*ledgertest.Ledger) entity.Asset { return entity.NativeAsset() },
			ClaimFee: big.NewInt(21_000),
			Balance:  10_979_000,
		},
		{
			Name:    "relayer claims native",
			Signer:  common.HexToAddress("0x0e"),
			Asset:   func(*ledgertest.Ledger) entity.Asset { return entity.NativeAsset() },
			Balance: 11_000_000,
		},
		{
			Name:    "recipient claims token",
			Signer:  recipient,
			Asset:   func(origin *ledgertest.Ledger) entity.Asset { return entity.TokenAsset(origin.Token()) },
			Balance: 11_000_000,
		},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()

			origin, destination := ledgertest.NewSettlement(), ledgertest.NewSource()
			destination.ClaimSigner = test.Signer
			destination.ClaimGasPrice = 1
			destination.BalanceLag = 2
			asset := test.Asset(origin)
			destination.SetBalance(asset.Kind, recipient, big.NewInt(10_000_000))
			j := newJournal()

			o := settlement.NewOrchestrator(logging.Discard(), origin, destination, testConfig(),
				settlement.WithSleep(noSleep), settlement.WithJournal(j))
			req, err := o.Start(context.Background(), asset, big.NewInt(1_000_000), recipient)
			require.NoError(t, err)
			require.Equal(t, entity.StatusConfirmed, req.Status)
			require.Equal(t, test.ClaimFee, req.ClaimFee)

			balance, err := destination.Balance(context.Background(), asset.Kind, recipient)
			require.NoError(t, err)
			require.Equal(t, test.Balance, balance.Int64())

			row, err := j.GetByRequestID(context.Background(), req.ID)
			require.NoError(t, err)
			require.Equal(t, test.ClaimFee != nil, row.ClaimFee != nil)
		})
	}
}

func TestOrchestrator_AlreadyProcessedIsClaimed(t *testing.T) {
	t.Parallel()

	origin, destination := ledgertest.NewSettlement(), ledgertest.NewSource()
	o := settlement.NewOrchestrator(logging.Discard(), origin, destination, testConfig(), settlement.WithSleep(noSleep))

	req, err := o.Start(context.Background(), entity.NativeAsset(), big.NewInt(1_000_000), recipient)
	require.NoError(t, err)

	replay := *req
	replay.Status = entity.StatusEvidenceReady
	replay.ClaimTxHash = common.Hash{}
	require.NoError(t, o.Resume(context.Background(), &replay))
	require.Equal(t, entity.StatusConfirmed, replay.Status)

	require.Equal(t, 2, destination.Claims())
	balance, err := destination.Balance(context.Background(), entity.AssetNative, recipient)
	require.NoError(t, err)
	require.Equal(t, int64(1_000_000), balance.Int64())
}

func TestOrchestrator_DepositLogCountInvariant(t *testing.T) {
	t.Parallel()

	origin, destination := ledgertest.NewSource(), ledgertest.NewSettlement()
	origin.ExtraDepositLogs = []*types.Log{{Address: common.HexToAddress("0x01")}}

	o := settlement.NewOrchestrator(logging.Discard(), origin, destination, testConfig(), settlement.WithSleep(noSleep))
	req, err := o.Start(context.Background(), entity.NativeAsset(), big.NewInt(1_000_000), recipient)
	require.ErrorIs(t, err, entity.ErrProtocolInvariant)
	require.Nil(t, req)
	require.Equal(t, 0, destination.Claims())
}

func TestOrchestrator_MalformedCertificateSendsNothing(t *testing.T) {
	t.Parallel()

	origin, destination := ledgertest.NewSettlement(), ledgertest.NewSource()
	origin.TamperCertificate = func(l *entity.VerifiableLog) {
		l.PodMetadata.Receipt = nil
	}
	j := newJournal()

	o := settlement.NewOrchestrator(logging.Discard(), origin, destination, testConfig(),
		settlement.WithSleep(noSleep), settlement.WithJournal(j))
	req, err := o.Start(context.Background(), entity.NativeAsset(), big.NewInt(1_000_000), recipient)
	require.ErrorIs(t, err, entity.ErrMalformedCertificate)
	require.Equal(t, entity.StatusRejected, req.Status)
	require.Equal(t, 0, destination.Claims())

	row, err := j.GetByRequestID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StatusRejected, row.Status)
	require.NotNil(t, row.LastError)
}

func TestOrchestrator_FinalityGatesClaim(t *testing.T) {
	t.Parallel()

	origin, destination := ledgertest.NewSource(), ledgertest.NewSettlement()
	origin.FinalityLag = 1000

	cfg := testConfig()
	cfg.FinalityTimeout = 30 * time.Second
	o := settlement.NewOrchestrator(logging.Discard(), origin, destination, cfg, settlement.WithSleep(noSleep))
	req, err := o.Start(context.Background(), entity.NativeAsset(), big.NewInt(1_000_000), recipient)
	require.ErrorIs(t, err, entity.ErrTimeout)

	var timeoutErr *entity.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, entity.StageFinality, timeoutErr.Stage)
	require.Equal(t, entity.StatusTimedOut, req.Status)
	require.Equal(t, 0, destination.Claims())
}

func TestOrchestrator_ConfirmationTimeoutThenResume(t *testing.T) {
	t.Parallel()

	origin, destination := ledgertest.NewSource(), ledgertest.NewSettlement()
	destination.BalanceLag = 5
	j := newJournal()

	cfg := testConfig()
	cfg.ConfirmationPollInterval = time.Second
	cfg.ConfirmationTimeout = 2 * time.Second
	o := settlement.NewOrchestrator(logging.Discard(), origin, destination, cfg,
		settlement.WithSleep(noSleep), settlement.WithJournal(j))

	req, err := o.Start(context.Background(), entity.NativeAsset(), big.NewInt(1_000_000), recipient)
	require.ErrorIs(t, err, entity.ErrTimeout)

	var timeoutErr *entity.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, entity.StageConfirmation, timeoutErr.Stage)
	require.Equal(t, entity.StatusClaimed, timeoutErr.Status)
	require.Equal(t, entity.StatusTimedOut, req.Status)
	// one prior balance read and three confirmation polls
	require.Equal(t, 4, destination.BalanceReads())

	resumed, err := o.ResumeByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, entity.StatusConfirmed, resumed.Status)
	require.Equal(t, 1, destination.Claims())
	require.Equal(t, []entity.Status{
		entity.StatusDeposited,
		entity.StatusAwaitingFinality,
		entity.StatusEvidenceReady,
		entity.StatusClaimed,
		entity.StatusTimedOut,
		entity.StatusConfirmed,
	}, j.history)
}

func TestOrchestrator_ResumePending(t *testing.T) {
	t.Parallel()

	origin, destination := ledgertest.NewSource(), ledgertest.NewSettlement()
	origin.FinalityLag = 1000
	j := newJournal()

	cfg := testConfig()
	cfg.FinalityTimeout = 10 * time.Second
	o := settlement.NewOrchestrator(logging.Discard(), origin, destination, cfg,
		settlement.WithSleep(noSleep), settlement.WithJournal(j))

	for i := 0; i < 3; i++ {
		_, err := o.Start(context.Background(), entity.NativeAsset(), big.NewInt(1_000_000), recipient)
		require.ErrorIs(t, err, entity.ErrTimeout)
	}
	require.Equal(t, 0, destination.Claims())

	origin.FinalityLag = 0
	require.NoError(t, o.ResumePending(context.Background()))
	require.Equal(t, 3, destination.Claims())

	rows, err := j.FindByStatus(context.Background(), entity.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestOrchestrator_ResumeWrongDirection(t *testing.T) {
	t.Parallel()

	o := settlement.NewOrchestrator(logging.Discard(), ledgertest.NewSource(), ledgertest.NewSettlement(), testConfig())
	err := o.Resume(context.Background(), &entity.BridgeRequest{
		Origin:      entity.LedgerSettlement,
		Destination: entity.LedgerSource,
		Status:      entity.StatusClaimed,
	})
	require.ErrorIs(t, err, entity.ErrFatalMisuse)

	_, err = o.ResumeByID(context.Background(), common.Hash{})
	require.ErrorIs(t, err, settlement.ErrJournalDisabled)
}
