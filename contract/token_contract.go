package contract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/podnetwork/pod-sdk-sub000/contract/bridgeabi"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
)

type TokenContract struct {
	*Contract
}

func NewTokenContract(client ethclient.Client, addr common.Address) *TokenContract {
	return &TokenContract{NewContract(client, addr, bridgeabi.ERC20ABI)}
}

func (c *TokenContract) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	res, err := c.Call(ctx, "balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("cannot obtain token balance: %w", err)
	}
	values, err := c.abi.Unpack("balanceOf", res)
	if err != nil {
		return nil, fmt.Errorf("cannot decode token balance: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", values[0])
	}
	return balance, nil
}
