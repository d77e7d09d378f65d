package bridgeabi

//nolint:golint
import (
	_ "embed"

	"github.com/podnetwork/pod-sdk-sub000/contract/abi"
)

//go:embed source_bridge.json
var sourceBridgeJSONABI string

//go:embed settlement_bridge.json
var settlementBridgeJSONABI string

//go:embed erc20.json
var erc20JSONABI string

const (
	Deposit       = "event Deposit(bytes32 indexed id, address indexed token, uint256 amount, address indexed to)"
	DepositNative = "event DepositNative(bytes32 indexed id, uint256 amount, address indexed to)"
	Claim         = "event Claim(bytes32 indexed id, address mirrorToken, address token, uint256 amount, address indexed to)"
	ClaimNative   = "event ClaimNative(bytes32 indexed id, uint256 amount, address indexed to)"

	ERC20Transfer = "event Transfer(address indexed from, address indexed to, uint256 value)"
)

// Contract error names grouped by how a settlement reacts to them.
var (
	IdempotentErrors = []string{"RequestAlreadyProcessed", "InvalidNonce"}
	LimitErrors      = []string{
		"DailyLimitExhausted",
		"InvalidTokenAmount",
		"InvalidTokenConfig",
		"MirrorTokenNotFound",
		"BlockNotFinalized",
		"NativeDepositNotSupported",
	}
	MisuseErrors = []string{
		"InvalidBridgeContract",
		"ContractMigrated",
		"InvalidDepositLog",
		"InvalidToAddress",
		"Overflow256",
	}
)

var (
	SourceBridgeABI     = abi.MustReadABI(sourceBridgeJSONABI)
	SettlementBridgeABI = abi.MustReadABI(settlementBridgeJSONABI)
	ERC20ABI            = abi.MustReadABI(erc20JSONABI)

	DepositEventSignature       = SourceBridgeABI.Events["Deposit"].ID
	DepositNativeEventSignature = SourceBridgeABI.Events["DepositNative"].ID
	ClaimEventSignature         = SourceBridgeABI.Events["Claim"].ID
	ClaimNativeEventSignature   = SourceBridgeABI.Events["ClaimNative"].ID
)
