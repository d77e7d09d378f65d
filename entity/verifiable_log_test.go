package entity_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/podnetwork/pod-sdk-sub000/entity"
)

const verifiableLogJSON = `{
  "address": "0x4aa42145aa6ebf72e164c9bbc74fbd3788045016",
  "topics": [
    "0x1111111111111111111111111111111111111111111111111111111111111111",
    "0x0000000000000000000000000000000000000000000000000000000000000abc"
  ],
  "data": "0x00000000000000000000000000000000000000000000000000000000000f4240",
  "blockNumber": "0x2a",
  "transactionHash": "0x2222222222222222222222222222222222222222222222222222222222222222",
  "transactionIndex": "0x0",
  "blockHash": "0x0000000000000000000000000000000000000000000000000000000000000000",
  "logIndex": "0x1",
  "removed": false,
  "pod_metadata": {
    "attestations": [
      {"timestamp": 1700000002000000, "public_key": "0x00000000000000000000000000000000000000a1", "signature": {"r": "0xaa", "s": "0xbb", "yParity": "0x0"}},
      {"timestamp": 1700000001500000, "public_key": "0x00000000000000000000000000000000000000a2", "signature": {"r": "0xcc", "s": "0xdd", "v": "0x1c"}}
    ],
    "receipt": {
      "status": true,
      "actual_gas_used": "0x5208",
      "logs": [
        {"address": "0x00000000000000000000000000000000000000c0", "topics": [], "data": "0x"},
        {
          "address": "0x4aa42145aa6ebf72e164c9bbc74fbd3788045016",
          "topics": [
            "0x1111111111111111111111111111111111111111111111111111111111111111",
            "0x0000000000000000000000000000000000000000000000000000000000000abc"
          ],
          "data": "0x00000000000000000000000000000000000000000000000000000000000f4240"
        }
      ],
      "logs_root": "0x3333333333333333333333333333333333333333333333333333333333333333",
      "tx": {
        "tx_type": "legacy",
        "chain_id": 1293,
        "nonce": 7,
        "gas_price": 1000000000,
        "gas_limit": 80000,
        "to": "0x4aa42145aa6ebf72e164c9bbc74fbd3788045016",
        "value": "1000000",
        "input": "0x0102"
      }
    }
  }
}`

func TestVerifiableLog_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var log entity.VerifiableLog
	require.NoError(t, json.Unmarshal([]byte(verifiableLogJSON), &log))

	require.Equal(t, common.HexToAddress("0x4aa42145aa6ebf72e164c9bbc74fbd3788045016"), log.Address)
	require.Len(t, log.Topics, 2)
	require.Equal(t, common.HexToHash("0xabc"), log.Topics[1])
	require.Equal(t, uint64(42), log.BlockNumber)
	require.Equal(t, uint(1), log.Index)

	meta := log.PodMetadata
	require.Len(t, meta.Attestations, 2)
	require.Equal(t, uint64(1700000002000000), meta.Attestations[0].Timestamp)
	first := meta.Attestations[0].Signature
	require.Len(t, first, 65)
	require.Equal(t, common.HexToHash("0xaa").Bytes(), []byte(first[:32]))
	require.Equal(t, common.HexToHash("0xbb").Bytes(), []byte(first[32:64]))
	require.Equal(t, byte(27), first[64])
	require.Equal(t, byte(28), meta.Attestations[1].Signature[64])

	receipt := meta.Receipt
	require.NotNil(t, receipt)
	require.True(t, receipt.Status)
	require.Equal(t, entity.Quantity(21_000), receipt.ActualGasUsed)
	require.Len(t, receipt.Logs, 2)
	require.Equal(t, log.Topics, receipt.Logs[1].Topics)
	require.Equal(t, uint8(types.LegacyTxType), receipt.Tx.Type)
	require.Equal(t, uint64(1293), receipt.Tx.ChainID)
	require.Equal(t, uint64(7), receipt.Tx.Nonce)
	require.Equal(t, uint64(80_000), receipt.Tx.GasLimit)
	require.Zero(t, big.NewInt(1_000_000).Cmp(receipt.Tx.Value))
	require.Zero(t, big.NewInt(1_000_000_000).Cmp(receipt.Tx.GasPrice))
	require.Equal(t, []byte{1, 2}, receipt.Tx.Input)

	blob, err := json.Marshal(log)
	require.NoError(t, err)
	var again entity.VerifiableLog
	require.NoError(t, json.Unmarshal(blob, &again))
	require.Equal(t, log.TxHash, again.TxHash)
	require.Equal(t, log.PodMetadata.Attestations, again.PodMetadata.Attestations)
	blobAgain, err := json.Marshal(again)
	require.NoError(t, err)
	require.JSONEq(t, string(blob), string(blobAgain))
}

func TestPodTransaction_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		Name  string
		Input string
		Type  uint8
		Err   bool
	}{
		{
			Name:  "pod encoding",
			Input: `{"tx_type": "eip1559", "max_fee_per_gas": 10, "max_priority_fee_per_gas": 1, "input": [255]}`,
			Type:  types.DynamicFeeTxType,
		},
		{
			Name:  "rpc encoding",
			Input: `{"type": "0x2", "maxFeePerGas": "0xa", "maxPriorityFeePerGas": "0x1", "input": "0xff"}`,
			Type:  types.DynamicFeeTxType,
		},
		{
			Name:  "access list",
			Input: `{"tx_type": "eip2930", "gas_price": 3}`,
			Type:  types.AccessListTxType,
		},
		{
			Name:  "unknown type",
			Input: `{"tx_type": "eip4844"}`,
			Err:   true,
		},
		{
			Name:  "no type",
			Input: `{"nonce": 1}`,
			Err:   true,
		},
		{
			Name:  "byte out of range",
			Input: `{"tx_type": "legacy", "input": [256]}`,
			Err:   true,
		},
	} {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()

			var tx entity.PodTransaction
			err := json.Unmarshal([]byte(test.Input), &tx)
			if test.Err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.Type, tx.Type)
			require.NotNil(t, tx.Value)
			if tx.Type == types.DynamicFeeTxType {
				require.Zero(t, big.NewInt(10).Cmp(tx.MaxFeePerGas))
				require.Equal(t, []byte{0xff}, tx.Input)
			}
		})
	}
}

func TestSignature_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var sig entity.Signature
	require.NoError(t, json.Unmarshal([]byte(`"0x0102"`), &sig))
	require.Equal(t, entity.Signature{1, 2}, sig)

	require.Error(t, json.Unmarshal([]byte(`{"r": "0x1"}`), &sig))
	require.Error(t, json.Unmarshal([]byte(`{"r": "0x1", "s": "0x2"}`), &sig))
}
