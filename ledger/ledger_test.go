package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/podnetwork/pod-sdk-sub000/config"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ethclient/mocks"
	"github.com/podnetwork/pod-sdk-sub000/ledger"
)

var (
	side = &config.BridgeSideConfig{
		BridgeAddress: common.HexToAddress("0x0b"),
		TokenAddress:  common.HexToAddress("0x0c"),
	}
	user = common.HexToAddress("0xaa")
)

func TestSourceLedger_FinalizedBlock(t *testing.T) {
	t.Parallel()

	client := mocks.NewClient(t)
	client.On("HeaderByTag", mock.Anything, rpc.FinalizedBlockNumber).
		Return(&types.Header{Number: big.NewInt(120)}, nil).Once()
	client.On("HeaderByTag", mock.Anything, rpc.FinalizedBlockNumber).
		Return(nil, errors.New("boom")).Once()

	l := ledger.NewSourceLedger(client, side)
	require.True(t, l.ClaimsWithCertificate())
	require.Equal(t, entity.LedgerSource, l.ID())

	n, err := l.FinalizedBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(120), n)

	_, err = l.FinalizedBlock(context.Background())
	require.ErrorIs(t, err, entity.ErrChain)
}

func TestSettlementLedger_FinalizedBlock(t *testing.T) {
	t.Parallel()

	client := mocks.NewClient(t)
	client.On("BlockNumber", mock.Anything).Return(uint64(77), nil).Once()

	l := ledger.NewSettlementLedger(client, side)
	require.False(t, l.ClaimsWithCertificate())
	require.Equal(t, entity.LedgerSettlement, l.ID())

	n, err := l.FinalizedBlock(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(77), n)
}

func TestLedger_Balance(t *testing.T) {
	t.Parallel()

	client := mocks.NewClient(t)
	client.On("BalanceAt", mock.Anything, user).Return(big.NewInt(5), nil).Once()
	client.On("CallContract", mock.Anything, mock.MatchedBy(func(msg ethereum.CallMsg) bool {
		return *msg.To == side.TokenAddress
	})).Return(common.BigToHash(big.NewInt(9)).Bytes(), nil).Once()

	l := ledger.NewSettlementLedger(client, side)
	native, err := l.Balance(context.Background(), entity.AssetNative, user)
	require.NoError(t, err)
	require.Equal(t, int64(5), native.Int64())

	token, err := l.Balance(context.Background(), entity.AssetToken, user)
	require.NoError(t, err)
	require.Equal(t, int64(9), token.Int64())
}

func TestSourceLedger_ClaimWithoutCertificate(t *testing.T) {
	t.Parallel()

	client := mocks.NewClient(t)
	l := ledger.NewSourceLedger(client, side)
	_, err := l.Claim(context.Background(), &entity.BridgeRequest{Asset: entity.NativeAsset()}, nil)
	require.ErrorIs(t, err, entity.ErrMalformedCertificate)
	client.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
}
