package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
	"github.com/tdex-network/ctf-amm/pkg/marketmaking/formula"
	"github.com/tdex-network/ctf-amm/pkg/mathutil"
	"github.com/thanhpk/randstr"
)

const (
	// ListeningPortKey is the port where the HTTP interface will listen on
	ListeningPortKey = "LISTENING_PORT"
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DBTypeKey is used to switch database type between those supported
	DBTypeKey = "DB_TYPE"
	// OwnerAddressKey is the address of the account owning the market
	OwnerAddressKey = "OWNER_ADDRESS"
	// CollateralAddressKey is the address of the collateral token
	CollateralAddressKey = "COLLATERAL_ADDRESS"
	// CollateralSymbolKey is the ticker of the collateral token
	CollateralSymbolKey = "COLLATERAL_SYMBOL"
	// ConditionalTokensAddressKey is the address of the conditional tokens ledger
	ConditionalTokensAddressKey = "CONDITIONAL_TOKENS_ADDRESS"
	// OracleAddressKey is the oracle of the condition prepared at first start
	OracleAddressKey = "ORACLE_ADDRESS"
	// QuestionIDKey is the question of the condition prepared at first start
	QuestionIDKey = "QUESTION_ID"
	// ConditionIDKey is the id of an already prepared condition. It takes
	// precedence over oracle and question id.
	ConditionIDKey = "CONDITION_ID"
	// OutcomeSlotCountKey is the number of outcomes of the condition
	OutcomeSlotCountKey = "OUTCOME_SLOT_COUNT"
	// MarketFeeKey is the fee of the market, as a fixed-point number scaled by 1e18
	MarketFeeKey = "MARKET_FEE"
	// StrategyKey is the name of the pricing strategy of the market
	StrategyKey = "STRATEGY"
	// InitialFundingKey is the collateral the owner funds the market with at creation
	InitialFundingKey = "INITIAL_FUNDING"
	// OperatorSecretKey is the secret the operator bearer tokens are signed with
	OperatorSecretKey = "OPERATOR_SECRET"
	// EnableFaucetKey enables the collateral faucet, for development only
	EnableFaucetKey = "ENABLE_FAUCET"
	// WebhookRateLimitKey is the max number of webhook requests per second
	WebhookRateLimitKey = "WEBHOOK_RATE_LIMIT"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"
	// StatsIntervalKey defines interval for printing basic market statistics
	StatsIntervalKey = "STATS_INTERVAL"
	// NoWebsocketKey disables the event stream
	NoWebsocketKey = "NO_WEBSOCKET"

	DbLocation       = "db"
	ProfilerLocation = "stats"
	SecretFile       = "operator.secret"

	DBBadger   = "badger"
	DBInMemory = "inmemory"

	operatorSecretLen = 32
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("ammd", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("AMM")
	vip.AutomaticEnv()

	vip.SetDefault(ListeningPortKey, 9945)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(DBTypeKey, DBBadger)
	vip.SetDefault(CollateralSymbolKey, "USD")
	vip.SetDefault(
		ConditionalTokensAddressKey, "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045",
	)
	vip.SetDefault(OutcomeSlotCountKey, 2)
	vip.SetDefault(MarketFeeKey, "0")
	vip.SetDefault(StrategyKey, formula.LMSRType)
	vip.SetDefault(InitialFundingKey, "0")
	vip.SetDefault(EnableFaucetKey, false)
	vip.SetDefault(WebhookRateLimitKey, 50)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(StatsIntervalKey, 600)
	vip.SetDefault(NoWebsocketKey, false)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	if err := initOperatorSecret(); err != nil {
		return fmt.Errorf("error while initializing operator secret: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetAddress returns the value of the key as an address.
func GetAddress(key string) common.Address {
	return common.HexToAddress(GetString(key))
}

// GetHash returns the value of the key as a 32-byte hash.
func GetHash(key string) common.Hash {
	return common.HexToHash(GetString(key))
}

// GetBigInt returns the value of the key as a big integer in base 10.
func GetBigInt(key string) *big.Int {
	n, _ := new(big.Int).SetString(GetString(key), 10)
	return n
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	dbType := GetString(DBTypeKey)
	if dbType != DBBadger && dbType != DBInMemory {
		return fmt.Errorf(
			"%s must be either %s or %s", DBTypeKey, DBBadger, DBInMemory,
		)
	}

	for _, key := range []string{
		OwnerAddressKey, CollateralAddressKey, ConditionalTokensAddressKey,
	} {
		if !isAddress(GetString(key)) {
			return fmt.Errorf("%s must be a valid hex address", key)
		}
	}

	if vip.IsSet(ConditionIDKey) {
		if !isHash(GetString(ConditionIDKey)) {
			return fmt.Errorf("%s must be a 32-byte hex string", ConditionIDKey)
		}
	} else {
		if !isAddress(GetString(OracleAddressKey)) {
			return fmt.Errorf(
				"either %s or %s must be set", ConditionIDKey, OracleAddressKey,
			)
		}
		if !isHash(GetString(QuestionIDKey)) {
			return fmt.Errorf("%s must be a 32-byte hex string", QuestionIDKey)
		}
	}

	if n := GetInt(OutcomeSlotCountKey); n < 2 {
		return fmt.Errorf("%s must be at least 2", OutcomeSlotCountKey)
	}

	fee := GetBigInt(MarketFeeKey)
	if fee == nil || !mathutil.IsValidFee(fee) {
		return fmt.Errorf("%s must be an integer in range [0, 1e18)", MarketFeeKey)
	}

	funding := GetBigInt(InitialFundingKey)
	if funding == nil || !mathutil.IsUint256(funding) {
		return fmt.Errorf("%s must be a non negative integer", InitialFundingKey)
	}

	if _, err := formula.NewMakingStrategy(GetString(StrategyKey)); err != nil {
		return fmt.Errorf(
			"%s must be one of %s", StrategyKey,
			strings.Join(formula.SupportedStrategies(), ", "),
		)
	}

	if GetInt(WebhookRateLimitKey) < 0 {
		return fmt.Errorf("%s must not be negative", WebhookRateLimitKey)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	profilerEnabled := GetBool(EnableProfilerKey)
	if profilerEnabled {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

// initOperatorSecret makes sure an operator secret is set. If not given, it
// is read from the datadir, or generated and stored there at first start.
func initOperatorSecret() error {
	if len(GetString(OperatorSecretKey)) > 0 {
		return nil
	}

	secretFile := filepath.Join(GetDatadir(), SecretFile)
	buf, err := os.ReadFile(secretFile)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	secret := strings.TrimSpace(string(buf))
	if len(secret) <= 0 {
		secret = randstr.Hex(operatorSecretLen)
		if err := os.WriteFile(secretFile, []byte(secret), 0600); err != nil {
			return err
		}
	}

	vip.Set(OperatorSecretKey, secret)
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func isAddress(s string) bool {
	return common.IsHexAddress(s)
}

func isHash(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 2*common.HashLength {
		return false
	}
	_, ok := new(big.Int).SetString(s, 16)
	return ok
}
