package ethclient

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/podnetwork/pod-sdk-sub000/entity"
)

var (
	ErrIncompatibleChainID = errors.New("rpc url returned incompatible chainID")
	ErrNodeIsNotSynced     = errors.New("node is not synced to the requested block")
	ErrInvalidLogsQuery    = errors.New("invalid logs filter query")
	ErrNoSigner            = errors.New("client has no signer key")
	ErrTxReverted          = errors.New("transaction reverted")
)

// gas estimate is multiplied by gasLimitMarginPercent/100
const gasLimitMarginPercent = 120

// TxRequest describes a contract call to be signed by the client key.
type TxRequest struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// RevertError carries the raw revert payload so callers can decode custom contract errors.
type RevertError struct {
	Data []byte
	Err  error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("execution reverted with data %s: %v", hexutil.Encode(e.Data), e.Err)
}

func (e *RevertError) Unwrap() error {
	return e.Err
}

type Client interface {
	ChainID() string
	Sender() common.Address
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, n uint64) (*types.Header, error)
	HeaderByTag(ctx context.Context, tag rpc.BlockNumber) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	FilterLogsSafe(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	VerifiableLogs(ctx context.Context, q ethereum.FilterQuery) ([]entity.VerifiableLog, error)
	TransactionReceiptByHash(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	SendTransaction(ctx context.Context, req TxRequest) (*types.Receipt, error)
}

type rpcClient struct {
	chainID   string
	url       string
	timeout   time.Duration
	rawClient *rpc.Client
	client    *ethclient.Client
	signer    types.Signer

	key    *ecdsa.PrivateKey
	sender common.Address
	// sendMu serializes nonce assignment and broadcast for the key
	sendMu sync.Mutex
}

// NewClient dials the node and checks its chain id. The key may be nil for a read-only client.
func NewClient(url string, timeout time.Duration, chainID string, key *ecdsa.PrivateKey) (Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rawClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("can't dial JSON rpc url: %w", err)
	}
	client := &rpcClient{
		chainID:   chainID,
		url:       url,
		timeout:   timeout,
		rawClient: rawClient,
		client:    ethclient.NewClient(rawClient),
		key:       key,
	}
	if key != nil {
		client.sender = crypto.PubkeyToAddress(key.PublicKey)
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), timeout)
	defer cancel2()
	rpcChainID, err := client.client.ChainID(ctx2)
	if err != nil {
		return nil, fmt.Errorf("can't get chainID: %w", err)
	}
	if chainID != "" && rpcChainID.String() != chainID {
		return nil, fmt.Errorf("received chainID %s != expected %s: %w", rpcChainID, chainID, ErrIncompatibleChainID)
	}
	client.chainID = rpcChainID.String()
	client.signer = types.LatestSignerForChainID(rpcChainID)
	return client, nil
}

func (c *rpcClient) ChainID() string {
	return c.chainID
}

func (c *rpcClient) Sender() common.Address {
	return c.sender
}

func (c *rpcClient) BlockNumber(ctx context.Context) (uint64, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_blockNumber")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n, err := c.client.BlockNumber(ctx)
	ObserveError(c.chainID, c.url, "eth_blockNumber", err)
	return n, err
}

func (c *rpcClient) HeaderByNumber(ctx context.Context, n uint64) (*types.Header, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getBlockByNumber")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(n))
	ObserveError(c.chainID, c.url, "eth_getBlockByNumber", err)
	return header, err
}

// HeaderByTag accepts the negative rpc tags, e.g. rpc.FinalizedBlockNumber.
func (c *rpcClient) HeaderByTag(ctx context.Context, tag rpc.BlockNumber) (*types.Header, error) {
	query := "eth_getBlockByNumber_" + tag.String()
	defer ObserveDuration(c.chainID, c.url, query)()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(ctx, big.NewInt(tag.Int64()))
	ObserveError(c.chainID, c.url, query, err)
	return header, err
}

func (c *rpcClient) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getBalance")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	balance, err := c.client.BalanceAt(ctx, account, nil)
	ObserveError(c.chainID, c.url, "eth_getBalance", err)
	return balance, err
}

func (c *rpcClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getLogs")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logs, err := c.client.FilterLogs(ctx, q)
	ObserveError(c.chainID, c.url, "eth_getLogs", err)
	return logs, err
}

// FilterLogsSafe is the same as FilterLogs, but makes an additional eth_blockNumber
// request to ensure that the node behind RPC is synced to the needed point.
func (c *rpcClient) FilterLogsSafe(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getLogsSafe")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var err error
	defer func() {
		ObserveError(c.chainID, c.url, "eth_getLogsSafe", err)
	}()

	var arg interface{}
	arg, err = toFilterArg(q)
	if err != nil {
		return nil, fmt.Errorf("can't encode filter argument: %w", err)
	}
	var logs []types.Log
	var blockNumber hexutil.Uint64
	batches := []rpc.BatchElem{
		{
			Method: "eth_getLogs",
			Args:   []interface{}{arg},
			Result: &logs,
		},
		{
			Method: "eth_blockNumber",
			Result: &blockNumber,
		},
	}
	err = c.rawClient.BatchCallContext(ctx, batches)
	if err != nil {
		return nil, fmt.Errorf("can't make batch request: %w", err)
	}
	if err = batches[0].Error; err != nil {
		return nil, fmt.Errorf("can't request logs: %w", err)
	}
	if err = batches[1].Error; err != nil {
		return nil, fmt.Errorf("can't request block number: %w", err)
	}
	if uint64(blockNumber) < q.ToBlock.Uint64() {
		err = fmt.Errorf("current block %d is older than toBlock %s in the query: %w", blockNumber, q.ToBlock, ErrNodeIsNotSynced)
		return nil, err
	}
	return logs, nil
}

// VerifiableLogs queries eth_getLogs on a node that attaches committee evidence to every log.
func (c *rpcClient) VerifiableLogs(ctx context.Context, q ethereum.FilterQuery) ([]entity.VerifiableLog, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getLogs_verifiable")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var logs []entity.VerifiableLog
	err := c.rawClient.CallContext(ctx, &logs, "eth_getLogs", toVerifiableFilterArg(q))
	ObserveError(c.chainID, c.url, "eth_getLogs_verifiable", err)
	if err != nil {
		return nil, fmt.Errorf("can't request verifiable logs: %w", err)
	}
	return logs, nil
}

func (c *rpcClient) TransactionReceiptByHash(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_getTransactionReceipt")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := c.client.TransactionReceipt(ctx, txHash)
	ObserveError(c.chainID, c.url, "eth_getTransactionReceipt", err)
	return receipt, err
}

func (c *rpcClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	defer ObserveDuration(c.chainID, c.url, "eth_call")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.CallContract(ctx, msg, nil)
	ObserveError(c.chainID, c.url, "eth_call", err)
	return res, wrapRevert(err)
}

// SendTransaction signs, broadcasts and waits for the transaction to be mined.
// A reverted transaction is replayed with eth_call to recover the revert data.
func (c *rpcClient) SendTransaction(ctx context.Context, req TxRequest) (*types.Receipt, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}
	tx, err := c.signAndSend(ctx, req)
	ObserveTransaction(c.chainID, err)
	if err != nil {
		return nil, err
	}

	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		return nil, fmt.Errorf("can't wait for transaction %s: %w", tx.Hash(), err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		err = c.replay(ctx, req, receipt.BlockNumber)
		return receipt, fmt.Errorf("transaction %s: %w", tx.Hash(), err)
	}
	return receipt, nil
}

func (c *rpcClient) signAndSend(ctx context.Context, req TxRequest) (*types.Transaction, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	defer ObserveDuration(c.chainID, c.url, "eth_sendRawTransaction")()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg := ethereum.CallMsg{
		From:  c.sender,
		To:    &req.To,
		Value: req.Value,
		Data:  req.Data,
	}
	gas, err := c.client.EstimateGas(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("can't estimate gas: %w", wrapRevert(err))
	}
	gas = gas * gasLimitMarginPercent / 100

	nonce, err := c.client.PendingNonceAt(ctx, c.sender)
	if err != nil {
		return nil, fmt.Errorf("can't get nonce: %w", err)
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	var unsigned types.TxData
	head, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("can't get latest header: %w", err)
	}
	if head.BaseFee != nil {
		tip, err := c.client.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("can't suggest gas tip: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		unsigned = &types.DynamicFeeTx{
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &req.To,
			Value:     value,
			Data:      req.Data,
		}
	} else {
		gasPrice, err := c.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("can't suggest gas price: %w", err)
		}
		unsigned = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       &req.To,
			Value:    value,
			Data:     req.Data,
		}
	}
	tx, err := types.SignNewTx(c.key, c.signer, unsigned)
	if err != nil {
		return nil, fmt.Errorf("can't sign transaction: %w", err)
	}
	err = c.client.SendTransaction(ctx, tx)
	ObserveError(c.chainID, c.url, "eth_sendRawTransaction", err)
	if err != nil {
		return nil, fmt.Errorf("can't send transaction: %w", err)
	}
	return tx, nil
}

func (c *rpcClient) replay(ctx context.Context, req TxRequest, block *big.Int) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.client.CallContract(ctx, ethereum.CallMsg{
		From:  c.sender,
		To:    &req.To,
		Value: req.Value,
		Data:  req.Data,
	}, block)
	if err == nil {
		return ErrTxReverted
	}
	var revertErr *RevertError
	if errors.As(wrapRevert(err), &revertErr) {
		return &RevertError{Data: revertErr.Data, Err: ErrTxReverted}
	}
	return fmt.Errorf("%w: %v", ErrTxReverted, err)
}

// wrapRevert extracts the revert payload that nodes attach as JSON-RPC error data.
func wrapRevert(err error) error {
	if err == nil {
		return nil
	}
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return err
	}
	raw, ok := dataErr.ErrorData().(string)
	if !ok {
		return err
	}
	data, decodeErr := hexutil.Decode(raw)
	if decodeErr != nil || len(data) == 0 {
		return err
	}
	return &RevertError{Data: data, Err: err}
}

func toFilterArg(q ethereum.FilterQuery) (interface{}, error) {
	arg := map[string]interface{}{
		"address": q.Addresses,
		"topics":  q.Topics,
	}
	if q.BlockHash != nil {
		return nil, ErrInvalidLogsQuery
	}
	if q.FromBlock == nil {
		arg["fromBlock"] = "0x0"
	} else {
		arg["fromBlock"] = hexutil.EncodeBig(q.FromBlock)
	}
	if q.ToBlock == nil || q.ToBlock.Int64() <= 0 {
		return nil, fmt.Errorf("only positive toBlock is supported: %w", ErrInvalidLogsQuery)
	}
	arg["toBlock"] = hexutil.EncodeBig(q.ToBlock)
	return arg, nil
}

// toVerifiableFilterArg omits absent block bounds.
func toVerifiableFilterArg(q ethereum.FilterQuery) interface{} {
	arg := map[string]interface{}{
		"address": q.Addresses,
		"topics":  q.Topics,
	}
	if q.FromBlock != nil {
		arg["fromBlock"] = hexutil.EncodeBig(q.FromBlock)
	}
	if q.ToBlock != nil {
		arg["toBlock"] = hexutil.EncodeBig(q.ToBlock)
	}
	return arg
}
