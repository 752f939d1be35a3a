package main

import (
	"context"
	"errors"
	"io/fs"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/ctf-amm/internal/config"
	"github.com/tdex-network/ctf-amm/internal/core/application"
	"github.com/tdex-network/ctf-amm/internal/core/domain"
	"github.com/tdex-network/ctf-amm/internal/core/ports"
	"github.com/tdex-network/ctf-amm/internal/infrastructure/ledger"
	"github.com/tdex-network/ctf-amm/internal/infrastructure/pubsub"
	dbbadger "github.com/tdex-network/ctf-amm/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/ctf-amm/internal/infrastructure/storage/db/inmemory"
	"github.com/tdex-network/ctf-amm/internal/interfaces"
	httpinterface "github.com/tdex-network/ctf-amm/internal/interfaces/http"
	"github.com/tdex-network/ctf-amm/pkg/stats"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).Fatal("failed to load .env file")
	}
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal(err)
	}

	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	datadir := config.GetDatadir()

	// Storage: the market repositories and the ledgers' book share the same
	// database so that every operation is atomic.
	var (
		repoManager ports.RepoManager
		book        ledger.Book
		pubsubStore pubsub.WebhookStore
	)
	switch config.GetString(config.DBTypeKey) {
	case config.DBInMemory:
		repoManager = inmemory.NewRepoManager()
		book = ledger.NewInMemoryBook()
		pubsubStore = pubsub.NewInMemoryStore()
	default:
		dbManager, err := dbbadger.NewDbManager(datadir, log.StandardLogger())
		if err != nil {
			log.WithError(err).Fatal("failed to open db")
		}
		store, err := pubsub.NewBadgerStore(dbManager.Store())
		if err != nil {
			log.WithError(err).Fatal("failed to open webhook store")
		}
		repoManager = dbManager
		book = dbManager
		pubsubStore = store
	}
	defer repoManager.Close()

	// Ledgers
	collateral := ledger.NewCollateral(
		config.GetAddress(config.CollateralAddressKey),
		config.GetString(config.CollateralSymbolKey),
		book,
	)
	ctf := ledger.NewConditionalTokens(
		config.GetAddress(config.ConditionalTokensAddressKey), book, collateral,
	)

	conditionID, err := prepareCondition(ctx, ctf)
	if err != nil {
		log.WithError(err).Fatal("failed to prepare condition")
	}

	// Application
	var minter application.Minter
	if config.GetBool(config.EnableFaucetKey) {
		minter = collateral
		log.Warn("collateral faucet is enabled, do not use in production")
	}
	marketSvc, err := application.NewService(ctx, application.ServiceOpts{
		RepoManager:       repoManager,
		ConditionalTokens: ctf,
		Collateral:        collateral,
		Minter:            minter,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize market service")
	}

	info, err := initMarket(ctx, marketSvc, ctf, collateral, conditionID)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize market")
	}

	// Webhooks
	pubsubSvc, err := pubsub.NewService(
		pubsubStore, config.GetInt(config.WebhookRateLimitKey),
	)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize webhook service")
	}
	defer pubsubSvc.Close()
	marketSvc.RegisterHandlerForEvent(application.NewPubSubHandler(pubsubSvc))

	// Interface
	metrics := httpinterface.NewMetrics()
	metrics.SetMarket(info)

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Port:           config.GetInt(config.ListeningPortKey),
		OperatorSecret: config.GetString(config.OperatorSecretKey),
		NoWebsocket:    config.GetBool(config.NoWebsocketKey),
		MarketSvc:      marketSvc,
		LedgerSvc:      marketSvc,
		PubSubSvc:      pubsubSvc,
		Metrics:        metrics,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize http interface")
	}

	var svc interfaces.Service = httpSvc
	if err := svc.Start(); err != nil {
		log.WithError(err).Fatal("failed to start http interface")
	}
	defer svc.Stop()

	if config.GetBool(config.EnableProfilerKey) {
		interval := time.Duration(config.GetInt(config.StatsIntervalKey)) * time.Second
		dumpFile := filepath.Join(datadir, config.ProfilerLocation, "metrics")
		stats.EnableMemoryStatistics(ctx, interval, metrics.Registry(), dumpFile)
	}

	log.WithFields(log.Fields{
		"market":       info.Address.Hex(),
		"condition_id": info.ConditionID.Hex(),
		"stage":        info.Stage.String(),
	}).Info("market maker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)
	<-sigChan

	log.Info("shutting down")
}

// prepareCondition returns the id of the configured condition, preparing it
// on the ledger at first start.
func prepareCondition(
	ctx context.Context, ctf *ledger.ConditionalTokens,
) (common.Hash, error) {
	n := config.GetInt(config.OutcomeSlotCountKey)

	if len(config.GetString(config.ConditionIDKey)) > 0 {
		conditionID := config.GetHash(config.ConditionIDKey)
		if _, err := ctf.OutcomeSlotCount(ctx, conditionID); err != nil {
			return common.Hash{}, err
		}
		return conditionID, nil
	}

	oracle := config.GetAddress(config.OracleAddressKey)
	questionID := config.GetHash(config.QuestionIDKey)
	conditionID, err := ctf.PrepareCondition(ctx, oracle, questionID, n)
	if err != nil {
		if !errors.Is(err, ledger.ErrConditionAlreadyPrepared) {
			return common.Hash{}, err
		}
		conditionID = ledger.ConditionID(oracle, questionID, n)
	}
	return conditionID, nil
}

// initMarket registers the market as receiver of its outcome tokens and
// creates it at first start.
func initMarket(
	ctx context.Context, svc *application.Service,
	ctf *ledger.ConditionalTokens, collateral *ledger.Collateral,
	conditionID common.Hash,
) (*application.MarketInfo, error) {
	info, err := svc.GetMarket(ctx)
	if err == nil {
		ctf.RegisterReceiver(info.Address, svc)
		return info, nil
	}
	if !errors.Is(err, domain.ErrMarketNotFound) {
		return nil, err
	}

	owner := config.GetAddress(config.OwnerAddressKey)
	address := application.MarketAddress(owner, collateral.Address(), conditionID)
	ctf.RegisterReceiver(address, svc)

	funding := config.GetBigInt(config.InitialFundingKey)
	if funding.Sign() > 0 && svc.IsFaucetEnabled() {
		if err := fundOwner(ctx, svc, collateral, owner, address, funding); err != nil {
			return nil, err
		}
	}

	if _, err := svc.CreateMarket(ctx, application.CreateMarketOpts{
		Owner:       owner,
		ConditionID: conditionID,
		Fee:         config.GetBigInt(config.MarketFeeKey),
		Strategy:    config.GetString(config.StrategyKey),
		Funding:     funding,
	}); err != nil {
		return nil, err
	}
	return svc.GetMarket(ctx)
}

// fundOwner mints the collateral the owner misses to fund the market and
// lets the market spend it.
func fundOwner(
	ctx context.Context, svc *application.Service,
	collateral *ledger.Collateral, owner, market common.Address,
	funding *big.Int,
) error {
	balance, err := collateral.BalanceOf(ctx, owner)
	if err != nil {
		return err
	}
	if missing := new(big.Int).Sub(funding, balance); missing.Sign() > 0 {
		if err := svc.Faucet(ctx, owner, missing); err != nil {
			return err
		}
	}
	return collateral.Approve(ctx, owner, market, funding)
}
