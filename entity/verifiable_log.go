package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

type Attestation struct {
	// Timestamp is in microseconds.
	Timestamp uint64         `json:"timestamp"`
	PublicKey common.Address `json:"public_key"`
	Signature Signature      `json:"signature"`
}

// Signature is a 65 byte r || s || v signature. It decodes from a hex string
// or from an {r, s, yParity} object, in which case v is 27 + yParity.
type Signature []byte

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Bytes(s))
}

func (s *Signature) UnmarshalJSON(input []byte) error {
	if len(input) > 0 && input[0] == '"' {
		var raw hexutil.Bytes
		if err := json.Unmarshal(input, &raw); err != nil {
			return fmt.Errorf("can't decode signature: %w", err)
		}
		*s = Signature(raw)
		return nil
	}
	var parts struct {
		R       *hexutil.Big    `json:"r"`
		S       *hexutil.Big    `json:"s"`
		YParity *json.RawMessage `json:"yParity"`
		V       *json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(input, &parts); err != nil {
		return fmt.Errorf("can't decode signature: %w", err)
	}
	if parts.R == nil || parts.S == nil {
		return errors.New("signature misses r or s")
	}
	var v uint64
	switch {
	case parts.YParity != nil:
		parity, err := decodeQuantity(*parts.YParity)
		if err != nil {
			return fmt.Errorf("can't decode signature parity: %w", err)
		}
		v = 27 + parity.Uint64()
	case parts.V != nil:
		raw, err := decodeQuantity(*parts.V)
		if err != nil {
			return fmt.Errorf("can't decode signature v: %w", err)
		}
		v = raw.Uint64()
		if v < 27 {
			v += 27
		}
	default:
		return errors.New("signature misses yParity")
	}
	sig := make([]byte, 0, 65)
	sig = append(sig, common.BigToHash((*big.Int)(parts.R)).Bytes()...)
	sig = append(sig, common.BigToHash((*big.Int)(parts.S)).Bytes()...)
	*s = append(sig, byte(v))
	return nil
}

// ReceiptLog is a log as committed inside a pod receipt.
type ReceiptLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// PodTransaction holds the transaction fields committed in the receipt tree.
type PodTransaction struct {
	Type                 uint8
	ChainID              uint64
	To                   *common.Address
	Nonce                uint64
	Value                *big.Int
	GasLimit             uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Input                []byte
}

var podTxTypes = map[string]uint8{
	"legacy":  types.LegacyTxType,
	"eip2930": types.AccessListTxType,
	"eip1559": types.DynamicFeeTxType,
	"0x0":     types.LegacyTxType,
	"0x1":     types.AccessListTxType,
	"0x2":     types.DynamicFeeTxType,
}

// UnmarshalJSON accepts both the snake_case pod encoding and the camelCase RPC transaction encoding.
func (tx *PodTransaction) UnmarshalJSON(input []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(input, &fields); err != nil {
		return fmt.Errorf("can't decode transaction: %w", err)
	}
	field := func(names ...string) json.RawMessage {
		for _, name := range names {
			if raw, ok := fields[name]; ok && string(raw) != "null" {
				return raw
			}
		}
		return nil
	}

	rawType := field("tx_type", "type")
	if rawType == nil {
		return errors.New("transaction has no type")
	}
	var typeName string
	if err := json.Unmarshal(rawType, &typeName); err != nil {
		return fmt.Errorf("can't decode transaction type: %w", err)
	}
	txType, ok := podTxTypes[strings.ToLower(typeName)]
	if !ok {
		return fmt.Errorf("unsupported transaction type %q", typeName)
	}
	res := PodTransaction{Type: txType}

	quantities := []struct {
		names []string
		dst   **big.Int
	}{
		{[]string{"value"}, &res.Value},
		{[]string{"gas_price", "gasPrice"}, &res.GasPrice},
		{[]string{"max_fee_per_gas", "maxFeePerGas"}, &res.MaxFeePerGas},
		{[]string{"max_priority_fee_per_gas", "maxPriorityFeePerGas"}, &res.MaxPriorityFeePerGas},
	}
	for _, q := range quantities {
		raw := field(q.names...)
		if raw == nil {
			continue
		}
		n, err := decodeQuantity(raw)
		if err != nil {
			return fmt.Errorf("can't decode transaction %s: %w", q.names[0], err)
		}
		*q.dst = n
	}
	integers := []struct {
		names []string
		dst   *uint64
	}{
		{[]string{"chain_id", "chainId"}, &res.ChainID},
		{[]string{"nonce"}, &res.Nonce},
		{[]string{"gas_limit", "gas"}, &res.GasLimit},
	}
	for _, q := range integers {
		raw := field(q.names...)
		if raw == nil {
			continue
		}
		n, err := decodeQuantity(raw)
		if err != nil {
			return fmt.Errorf("can't decode transaction %s: %w", q.names[0], err)
		}
		*q.dst = n.Uint64()
	}
	if raw := field("to"); raw != nil {
		var to common.Address
		if err := json.Unmarshal(raw, &to); err != nil {
			return fmt.Errorf("can't decode transaction to: %w", err)
		}
		res.To = &to
	}
	if raw := field("input", "data"); raw != nil {
		data, err := decodeBytes(raw)
		if err != nil {
			return fmt.Errorf("can't decode transaction input: %w", err)
		}
		res.Input = data
	}
	if res.Value == nil {
		res.Value = new(big.Int)
	}
	*tx = res
	return nil
}

func (tx PodTransaction) MarshalJSON() ([]byte, error) {
	names := map[uint8]string{
		types.LegacyTxType:     "legacy",
		types.AccessListTxType: "eip2930",
		types.DynamicFeeTxType: "eip1559",
	}
	enc := map[string]interface{}{
		"tx_type":   names[tx.Type],
		"chain_id":  tx.ChainID,
		"nonce":     tx.Nonce,
		"gas_limit": tx.GasLimit,
		"to":        tx.To,
		"value":     (*hexutil.Big)(tx.Value),
		"input":     hexutil.Bytes(tx.Input),
	}
	if tx.Type == types.DynamicFeeTxType {
		enc["max_fee_per_gas"] = (*hexutil.Big)(tx.MaxFeePerGas)
		enc["max_priority_fee_per_gas"] = (*hexutil.Big)(tx.MaxPriorityFeePerGas)
	} else {
		enc["gas_price"] = (*hexutil.Big)(tx.GasPrice)
	}
	return json.Marshal(enc)
}

// PodReceipt is the receipt the committee attests to. Its Merkle root is what the attestations sign.
type PodReceipt struct {
	Status        bool           `json:"status"`
	ActualGasUsed Quantity       `json:"actual_gas_used"`
	Logs          []ReceiptLog   `json:"logs"`
	LogsRoot      common.Hash    `json:"logs_root"`
	Tx            PodTransaction `json:"tx"`
}

type PodLogMetadata struct {
	Attestations []Attestation `json:"attestations"`
	Receipt      *PodReceipt   `json:"receipt"`
}

// VerifiableLog is an eth_getLogs entry of the settlement chain, extended with committee evidence.
type VerifiableLog struct {
	types.Log
	PodMetadata PodLogMetadata `json:"pod_metadata"`
}

func (l *VerifiableLog) UnmarshalJSON(input []byte) error {
	if err := json.Unmarshal(input, &l.Log); err != nil {
		return fmt.Errorf("can't decode log: %w", err)
	}
	var meta struct {
		PodMetadata *PodLogMetadata `json:"pod_metadata"`
	}
	if err := json.Unmarshal(input, &meta); err != nil {
		return fmt.Errorf("can't decode pod metadata: %w", err)
	}
	if meta.PodMetadata != nil {
		l.PodMetadata = *meta.PodMetadata
	}
	return nil
}

func (l VerifiableLog) MarshalJSON() ([]byte, error) {
	inner, err := json.Marshal(&l.Log)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err = json.Unmarshal(inner, &fields); err != nil {
		return nil, err
	}
	meta, err := json.Marshal(&l.PodMetadata)
	if err != nil {
		return nil, err
	}
	fields["pod_metadata"] = meta
	return json.Marshal(fields)
}

// Quantity decodes from a JSON number or a hex string.
type Quantity uint64

func (q *Quantity) UnmarshalJSON(input []byte) error {
	n, err := decodeQuantity(input)
	if err != nil {
		return err
	}
	if !n.IsUint64() {
		return fmt.Errorf("quantity %s overflows uint64", n)
	}
	*q = Quantity(n.Uint64())
	return nil
}

func decodeQuantity(raw json.RawMessage) (*big.Int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			return hexutil.DecodeBig(s)
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid quantity %q", s)
		}
		return n, nil
	}
	if string(raw) == "true" || string(raw) == "false" {
		if string(raw) == "true" {
			return big.NewInt(1), nil
		}
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %s", raw)
	}
	return n, nil
}

// decodeBytes accepts a hex string or an array of byte values.
func decodeBytes(raw json.RawMessage) ([]byte, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var ints []int
		if err := json.Unmarshal(raw, &ints); err != nil {
			return nil, err
		}
		values := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("byte value %d out of range", v)
			}
			values[i] = byte(v)
		}
		return values, nil
	}
	var res hexutil.Bytes
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	return res, nil
}
