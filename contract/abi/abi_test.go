package abi_test

import (
	"bytes"
	_ "embed"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/podnetwork/pod-sdk-sub000/contract/abi"
)

//go:embed test_abi.json
var testJSONABI string

var (
	transferTopic         = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	testEventTopic        = crypto.Keccak256Hash([]byte("TestEvent(uint256,uint256)"))
	testIndexedEventTopic = crypto.Keccak256Hash([]byte("TestIndexedEvent(uint256,uint256)"))
	aliceAddr             = common.HexToAddress("0x01")
	alice                 = common.BytesToHash(aliceAddr.Bytes())
	bobAddr               = common.HexToAddress("0x02")
	bob                   = common.BytesToHash(bobAddr.Bytes())
)

func TestABI_AllEvents(t *testing.T) {
	t.Parallel()

	testABI := abi.MustReadABI(testJSONABI)

	allEvents := testABI.AllEvents()
	require.Equal(t, map[string]bool{
		"event Transfer(address indexed sender, address indexed receiver, uint256 value)": true,
		"event TestEvent(uint256 a, uint256 b)":                                           true,
		"event TestIndexedEvent(uint256 indexed a, uint256 indexed b)":                    true,
	}, allEvents)
}

func TestABI_FindMatchingEventABI(t *testing.T) {
	t.Parallel()

	testABI := abi.MustReadABI(testJSONABI)

	event := testABI.FindMatchingEventABI([]common.Hash{transferTopic, alice, bob})
	require.NotNil(t, event)
	require.Equal(t, "Transfer", event.Name)
	event = testABI.FindMatchingEventABI([]common.Hash{transferTopic, alice})
	require.Nil(t, event)
	event = testABI.FindMatchingEventABI([]common.Hash{transferTopic, alice, bob, alice})
	require.Nil(t, event)
	event = testABI.FindMatchingEventABI([]common.Hash{testEventTopic})
	require.NotNil(t, event)
	require.Equal(t, "TestEvent", event.Name)
}

func TestABI_ParseLog(t *testing.T) {
	t.Parallel()

	testABI := abi.MustReadABI(testJSONABI)

	value := big.NewInt(100)
	valueHash := common.BigToHash(value)
	logData := valueHash.Bytes()

	t.Run("should parse valid transfer event", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{transferTopic, alice, bob}, Data: logData}
		event, data, err := testABI.ParseLog(log)
		require.NoError(t, err)
		require.Equal(t, "event Transfer(address indexed sender, address indexed receiver, uint256 value)", event)
		require.Equal(t, map[string]interface{}{
			"sender":   aliceAddr,
			"receiver": bobAddr,
			"value":    value,
		}, data)
	})

	t.Run("should not parse anonymous event", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Data: logData}
		event, data, err := testABI.ParseLog(log)
		require.ErrorIs(t, err, abi.ErrInvalidEvent)
		require.Empty(t, event)
		require.Empty(t, data)
	})

	t.Run("should skip unknown event", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{transferTopic}, Data: logData}
		event, data, err := testABI.ParseLog(log)
		require.NoError(t, err)
		require.Empty(t, event)
		require.Empty(t, data)
	})

	t.Run("should decode event without indexed fields", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{testEventTopic}, Data: bytes.Repeat(logData, 2)}
		event, data, err := testABI.ParseLog(log)
		require.NoError(t, err)
		require.Equal(t, "event TestEvent(uint256 a, uint256 b)", event)
		require.Equal(t, map[string]interface{}{
			"a": value,
			"b": value,
		}, data)
	})

	t.Run("should decode event with only indexed fields", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{testIndexedEventTopic, valueHash, valueHash}}
		event, data, err := testABI.ParseLog(log)
		require.NoError(t, err)
		require.Equal(t, "event TestIndexedEvent(uint256 indexed a, uint256 indexed b)", event)
		require.Equal(t, map[string]interface{}{
			"a": value,
			"b": value,
		}, data)
	})

	t.Run("should fail to decode event with incompatible ABI", func(t *testing.T) {
		t.Parallel()
		log := &types.Log{Topics: []common.Hash{testEventTopic}, Data: logData}
		event, data, err := testABI.ParseLog(log)
		require.Error(t, err)
		require.Contains(t, err.Error(), "length insufficient")
		require.Empty(t, event)
		require.Empty(t, data)
	})
}

func TestABI_UnpackError(t *testing.T) {
	t.Parallel()

	testABI := abi.MustReadABI(testJSONABI)

	selector := crypto.Keccak256([]byte("TestError(uint256)"))[:4]
	data := append(append([]byte{}, selector...), common.BigToHash(big.NewInt(7)).Bytes()...)
	e, args, err := testABI.UnpackError(data)
	require.NoError(t, err)
	require.Equal(t, "TestError", e.Name)
	require.Equal(t, []interface{}{big.NewInt(7)}, args)

	e, args, err = testABI.UnpackError(crypto.Keccak256([]byte("EmptyError()"))[:4])
	require.NoError(t, err)
	require.Equal(t, "EmptyError", e.Name)
	require.Empty(t, args)

	_, _, err = testABI.UnpackError([]byte{1, 2, 3, 4})
	require.ErrorIs(t, err, abi.ErrUnknownError)

	_, _, err = testABI.UnpackError(nil)
	require.ErrorIs(t, err, abi.ErrUnknownError)
}
