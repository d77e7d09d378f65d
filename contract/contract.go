package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/podnetwork/pod-sdk-sub000/contract/abi"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
)

type Contract struct {
	address common.Address
	client  ethclient.Client
	abi     abi.ABI
}

func NewContract(client ethclient.Client, addr common.Address, abi abi.ABI) *Contract {
	return &Contract{addr, client, abi}
}

func (c *Contract) Address() common.Address {
	return c.address
}

func (c *Contract) Call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot encode abi calldata: %w", err)
	}
	res, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot call %s(...): %w", method, DecodeRevert(c.abi, err))
	}
	return res, nil
}

// Transact sends a state changing call and returns the receipt of the mined transaction.
// Reverts are classified into the protocol error sentinels.
func (c *Contract) Transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (*types.Receipt, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot encode abi calldata: %w", err)
	}
	receipt, err := c.client.SendTransaction(ctx, ethclient.TxRequest{
		To:    c.address,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return receipt, fmt.Errorf("cannot send %s(...): %w", method, DecodeRevert(c.abi, err))
	}
	return receipt, nil
}
