// Package ledgertest provides an in-memory bridge ledger for settlement tests.
package ledgertest

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/podnetwork/pod-sdk-sub000/contract/bridgeabi"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/evidence"
	"github.com/podnetwork/pod-sdk-sub000/ledger"
)

// Ledger emits bridge events and keeps balances of claimed requests in memory.
// Exported fields are knobs for failure scenarios and must be set before use.
type Ledger struct {
	id        entity.LedgerID
	chainID   string
	bridge    common.Address
	token     common.Address
	certified bool

	// FinalityLag is the number of FinalizedBlock reads after which a new block becomes final.
	FinalityLag int
	// HiddenLogReads is the number of log queries answered with no logs before deposits become visible.
	HiddenLogReads int
	// DuplicateLogs makes log queries return every matching log twice.
	DuplicateLogs bool
	// BalanceLag is the number of Balance reads after a claim before the credit becomes visible.
	BalanceLag int
	// DepositAmountSkew is added to the amount reported by deposit events.
	DepositAmountSkew int64
	// ExtraDepositLogs is appended to every deposit receipt.
	ExtraDepositLogs []*types.Log
	// ClaimErr is returned by every claim instead of executing it.
	ClaimErr error
	// TamperCertificate mutates certified logs before they are returned.
	// The receipt is shared between calls, replace it instead of editing it in place.
	TamperCertificate func(*entity.VerifiableLog)
	// ClaimSigner sends claims and pays their fee.
	ClaimSigner common.Address
	// ClaimGasPrice is charged per claim gas unit to the native balance of ClaimSigner.
	ClaimGasPrice int64

	mu             sync.Mutex
	head           uint64
	finalized      uint64
	finalityReads  int
	logReads       int
	logs           []entity.VerifiableLog
	processed      map[common.Hash]bool
	balances       map[entity.AssetKind]map[common.Address]*big.Int
	pendingCredits []pendingCredit
	claims         int
	deposits       int
	balanceReads   int
}

type pendingCredit struct {
	kind      entity.AssetKind
	recipient common.Address
	amount    *big.Int
	readsLeft int
}

const claimGasUsed = 21_000

var _ ledger.BridgeLedger = (*Ledger)(nil)

// NewSource returns a ledger that takes claims with committee certificates.
func NewSource() *Ledger {
	return newLedger(entity.LedgerSource, "11155111", true, common.HexToAddress("0x5b"), common.HexToAddress("0x5c"))
}

// NewSettlement returns a ledger that takes claims by request id and origin block.
func NewSettlement() *Ledger {
	return newLedger(entity.LedgerSettlement, "1293", false, common.HexToAddress("0xb0"), common.HexToAddress("0xc0"))
}

func newLedger(id entity.LedgerID, chainID string, certified bool, bridge, token common.Address) *Ledger {
	return &Ledger{
		id:        id,
		chainID:   chainID,
		bridge:    bridge,
		token:     token,
		certified: certified,
		head:      100,
		finalized: 100,
		processed: make(map[common.Hash]bool),
		balances: map[entity.AssetKind]map[common.Address]*big.Int{
			entity.AssetNative: {},
			entity.AssetToken:  {},
		},
	}
}

func (l *Ledger) ID() entity.LedgerID {
	return l.id
}

func (l *Ledger) ChainID() string {
	return l.chainID
}

func (l *Ledger) BridgeAddress() common.Address {
	return l.bridge
}

func (l *Ledger) Token() common.Address {
	return l.token
}

func (l *Ledger) ClaimsWithCertificate() bool {
	return l.certified
}

func (l *Ledger) Signer() common.Address {
	return l.ClaimSigner
}

// SetBalance sets the visible balance of the account.
func (l *Ledger) SetBalance(kind entity.AssetKind, account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[kind][account] = new(big.Int).Set(amount)
}

func (l *Ledger) Claims() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claims
}

func (l *Ledger) Deposits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deposits
}

func (l *Ledger) BalanceReads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceReads
}

// Processed reports whether a claim of the request was executed.
func (l *Ledger) Processed(id common.Hash) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed[id]
}

func (l *Ledger) Deposit(_ context.Context, asset entity.Asset, amount *big.Int, recipient common.Address) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.deposits++
	l.head++
	block := l.head
	if l.FinalityLag == 0 {
		l.finalized = block
	}
	txHash := crypto.Keccak256Hash([]byte(l.chainID), uint64Bytes(block))
	id := crypto.Keccak256Hash([]byte("request"), []byte(l.chainID), uint64Bytes(uint64(l.deposits)))
	amountData := common.BigToHash(amount).Bytes()
	eventData := common.BigToHash(new(big.Int).Add(amount, big.NewInt(l.DepositAmountSkew))).Bytes()

	var receiptLogs []*types.Log
	if asset.IsNative() {
		receiptLogs = append(receiptLogs, &types.Log{
			Address: l.bridge,
			Topics:  []common.Hash{bridgeabi.DepositNativeEventSignature, id, addressTopic(recipient)},
			Data:    eventData,
		})
	} else {
		receiptLogs = append(receiptLogs,
			&types.Log{
				Address: asset.Token,
				Topics: []common.Hash{
					bridgeabi.ERC20ABI.Events["Transfer"].ID,
					addressTopic(recipient),
					addressTopic(l.bridge),
				},
				Data: amountData,
			},
			&types.Log{
				Address: l.bridge,
				Topics:  []common.Hash{bridgeabi.DepositEventSignature, id, addressTopic(asset.Token), addressTopic(recipient)},
				Data:    eventData,
			},
		)
	}
	receiptLogs = append(receiptLogs, l.ExtraDepositLogs...)

	value := new(big.Int)
	if asset.IsNative() {
		value.Set(amount)
	}
	bridge := l.bridge
	receipt := &entity.PodReceipt{
		Status:        true,
		ActualGasUsed: 21_000,
		LogsRoot:      crypto.Keccak256Hash([]byte("logs"), txHash.Bytes()),
		Tx: entity.PodTransaction{
			Type:                 types.DynamicFeeTxType,
			To:                   &bridge,
			Nonce:                uint64(l.deposits),
			Value:                value,
			GasLimit:             100_000,
			MaxFeePerGas:         big.NewInt(1_000_000_000),
			MaxPriorityFeePerGas: big.NewInt(0),
			Input:                id.Bytes(),
		},
	}
	for i, log := range receiptLogs {
		log.BlockNumber = block
		log.TxHash = txHash
		log.Index = uint(i)
		receipt.Logs = append(receipt.Logs, entity.ReceiptLog{
			Address: log.Address,
			Topics:  log.Topics,
			Data:    log.Data,
		})
	}
	root, err := evidence.ReceiptRoot(receipt)
	if err != nil {
		return nil, err
	}

	for _, log := range receiptLogs {
		if len(log.Topics) == 0 || log.Address != l.bridge {
			continue
		}
		l.logs = append(l.logs, entity.VerifiableLog{
			Log: *log,
			PodMetadata: entity.PodLogMetadata{
				Attestations: attestations(root),
				Receipt:      receipt,
			},
		})
	}

	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      txHash,
		BlockNumber: new(big.Int).SetUint64(block),
		Logs:        receiptLogs,
	}, nil
}

func (l *Ledger) Claim(_ context.Context, req *entity.BridgeRequest, log *entity.CertifiedLog) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.claims++
	if l.ClaimErr != nil {
		return nil, l.ClaimErr
	}
	if l.certified && (log == nil || !log.IsCertified()) {
		return nil, fmt.Errorf("%w: contract error InvalidDepositLog", entity.ErrFatalMisuse)
	}
	if l.processed[req.ID] {
		return nil, fmt.Errorf("%w: contract error RequestAlreadyProcessed", entity.ErrAlreadyProcessed)
	}
	l.processed[req.ID] = true
	l.pendingCredits = append(l.pendingCredits, pendingCredit{
		kind:      req.Asset.Kind,
		recipient: req.Recipient,
		amount:    new(big.Int).Set(req.Amount),
		readsLeft: l.BalanceLag,
	})

	fee := new(big.Int).Mul(big.NewInt(claimGasUsed), big.NewInt(l.ClaimGasPrice))
	if fee.Sign() > 0 {
		balance, ok := l.balances[entity.AssetNative][l.ClaimSigner]
		if !ok {
			balance = new(big.Int)
		}
		l.balances[entity.AssetNative][l.ClaimSigner] = new(big.Int).Sub(balance, fee)
	}

	l.head++
	txHash := crypto.Keccak256Hash([]byte("claim"), req.ID.Bytes())
	amountData := common.BigToHash(req.Amount).Bytes()
	var logs []*types.Log
	if req.Asset.IsNative() {
		logs = append(logs, &types.Log{
			Address: l.bridge,
			Topics:  []common.Hash{bridgeabi.ClaimNativeEventSignature, req.ID, addressTopic(req.Recipient)},
			Data:    amountData,
		})
	} else {
		logs = append(logs,
			&types.Log{
				Address: l.token,
				Topics:  []common.Hash{bridgeabi.ERC20ABI.Events["Transfer"].ID, {}, addressTopic(req.Recipient)},
				Data:    amountData,
			},
			&types.Log{
				Address: l.bridge,
				Topics:  []common.Hash{bridgeabi.ClaimEventSignature, req.ID, addressTopic(req.Recipient)},
				Data:    amountData,
			},
		)
	}
	return &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		TxHash:            txHash,
		BlockNumber:       new(big.Int).SetUint64(l.head),
		GasUsed:           claimGasUsed,
		EffectiveGasPrice: big.NewInt(l.ClaimGasPrice),
		Logs:              logs,
	}, nil
}

func (l *Ledger) Balance(_ context.Context, kind entity.AssetKind, account common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balanceReads++
	pending := l.pendingCredits[:0]
	for _, credit := range l.pendingCredits {
		if credit.readsLeft > 0 {
			credit.readsLeft--
			pending = append(pending, credit)
			continue
		}
		balance, ok := l.balances[credit.kind][credit.recipient]
		if !ok {
			balance = new(big.Int)
		}
		l.balances[credit.kind][credit.recipient] = new(big.Int).Add(balance, credit.amount)
	}
	l.pendingCredits = pending

	if balance, ok := l.balances[kind][account]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

func (l *Ledger) FinalizedBlock(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.finalized < l.head {
		l.finalityReads++
		if l.finalityReads >= l.FinalityLag {
			l.finalized = l.head
			l.finalityReads = 0
		}
	}
	return l.finalized, nil
}

func (l *Ledger) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	verifiable, err := l.VerifiableLogs(ctx, q)
	if err != nil {
		return nil, err
	}
	res := make([]types.Log, len(verifiable))
	for i := range verifiable {
		res[i] = verifiable[i].Log
	}
	return res, nil
}

func (l *Ledger) VerifiableLogs(_ context.Context, q ethereum.FilterQuery) ([]entity.VerifiableLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.logReads++
	if l.logReads <= l.HiddenLogReads {
		return nil, nil
	}
	var res []entity.VerifiableLog
	for _, log := range l.logs {
		if !matches(&log.Log, q) {
			continue
		}
		if l.TamperCertificate != nil {
			l.TamperCertificate(&log)
		}
		res = append(res, log)
		if l.DuplicateLogs {
			res = append(res, log)
		}
	}
	return res, nil
}

func matches(log *types.Log, q ethereum.FilterQuery) bool {
	if q.FromBlock != nil && log.BlockNumber < q.FromBlock.Uint64() {
		return false
	}
	if q.ToBlock != nil && log.BlockNumber > q.ToBlock.Uint64() {
		return false
	}
	if len(q.Addresses) > 0 {
		found := false
		for _, addr := range q.Addresses {
			found = found || addr == log.Address
		}
		if !found {
			return false
		}
	}
	if len(q.Topics) > len(log.Topics) {
		return false
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		found := false
		for _, topic := range alternatives {
			found = found || topic == log.Topics[i]
		}
		if !found {
			return false
		}
	}
	return true
}

func attestations(root common.Hash) []entity.Attestation {
	res := make([]entity.Attestation, 0, len(committee))
	for i, key := range committee {
		sig, err := crypto.Sign(root.Bytes(), key)
		if err != nil {
			panic(err)
		}
		sig[crypto.RecoveryIDOffset] += 27
		res = append(res, entity.Attestation{
			// attestations arrive in committee order, not in time order
			Timestamp: uint64(1_700_000_003-i) * 1_000_000,
			PublicKey: crypto.PubkeyToAddress(key.PublicKey),
			Signature: sig,
		})
	}
	return res
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func uint64Bytes(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}
