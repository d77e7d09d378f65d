package mocks

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/mock"

	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
)

// Client is a testify mock of ethclient.Client.
type Client struct {
	mock.Mock
}

var _ ethclient.Client = (*Client)(nil)

// NewClient creates a mock that asserts its expectations on test cleanup.
func NewClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *Client {
	m := &Client{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (_m *Client) ChainID() string {
	ret := _m.Called()
	return ret.String(0)
}

func (_m *Client) Sender() common.Address {
	ret := _m.Called()
	return ret.Get(0).(common.Address)
}

func (_m *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(uint64), ret.Error(1)
}

func (_m *Client) HeaderByNumber(ctx context.Context, n uint64) (*types.Header, error) {
	ret := _m.Called(ctx, n)
	header, _ := ret.Get(0).(*types.Header)
	return header, ret.Error(1)
}

func (_m *Client) HeaderByTag(ctx context.Context, tag rpc.BlockNumber) (*types.Header, error) {
	ret := _m.Called(ctx, tag)
	header, _ := ret.Get(0).(*types.Header)
	return header, ret.Error(1)
}

func (_m *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	ret := _m.Called(ctx, account)
	balance, _ := ret.Get(0).(*big.Int)
	return balance, ret.Error(1)
}

func (_m *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	ret := _m.Called(ctx, q)
	logs, _ := ret.Get(0).([]types.Log)
	return logs, ret.Error(1)
}

func (_m *Client) FilterLogsSafe(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	ret := _m.Called(ctx, q)
	logs, _ := ret.Get(0).([]types.Log)
	return logs, ret.Error(1)
}

func (_m *Client) VerifiableLogs(ctx context.Context, q ethereum.FilterQuery) ([]entity.VerifiableLog, error) {
	ret := _m.Called(ctx, q)
	logs, _ := ret.Get(0).([]entity.VerifiableLog)
	return logs, ret.Error(1)
}

func (_m *Client) TransactionReceiptByHash(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ret := _m.Called(ctx, hash)
	receipt, _ := ret.Get(0).(*types.Receipt)
	return receipt, ret.Error(1)
}

func (_m *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	ret := _m.Called(ctx, msg)
	res, _ := ret.Get(0).([]byte)
	return res, ret.Error(1)
}

func (_m *Client) SendTransaction(ctx context.Context, req ethclient.TxRequest) (*types.Receipt, error) {
	ret := _m.Called(ctx, req)
	receipt, _ := ret.Get(0).(*types.Receipt)
	return receipt, ret.Error(1)
}
