package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"creditbridge/internal/audit"
	"creditbridge/internal/clients/sim"
	"creditbridge/internal/crosslayer"
	"creditbridge/internal/domain"
	"creditbridge/internal/funding"
	"creditbridge/internal/funding/store/journal"
	jwttoken "creditbridge/internal/jwt_token"
	"creditbridge/internal/platform/config"
	"creditbridge/internal/platform/httpserver"
	"creditbridge/internal/platform/logger"
	"creditbridge/internal/platform/metrics"
	platformredis "creditbridge/internal/platform/redis"
	"creditbridge/internal/pricefeed"
	"creditbridge/internal/state"
	snapshotstore "creditbridge/internal/state/store/snapshot"
	httptransport "creditbridge/internal/transport/http"
	id "creditbridge/pkg/domain"
)

// main wires the funding engine, the cross-layer bridge, and the state
// manager behind the operational HTTP surface. The simulated ledger clients
// stand in for the real protocol clients; swapping them out is a wiring
// change only.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("bridge daemon exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	mx := metrics.New()

	core := sim.NewCore()
	platform := sim.NewPlatform()

	lockJournal, closeJournal, err := buildJournal(cfg, log)
	if err != nil {
		return err
	}
	defer closeJournal()

	auditor, err := buildAuditPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer auditor.Close()

	funder, err := funding.New(core, lockJournal,
		funding.WithLogger(log),
		funding.WithMetrics(mx.Funding),
		funding.WithAuditPublisher(auditor),
		funding.WithFeeEstimate(cfg.Bridge.FeeEstimate),
		funding.WithConfirmationTimeout(cfg.Bridge.ConfirmationTimeout),
	)
	if err != nil {
		return err
	}

	bridge, err := crosslayer.New(funder, platform, core,
		crosslayer.WithLogger(log),
		crosslayer.WithMetrics(mx.CrossLayer),
		crosslayer.WithAuditPublisher(auditor),
	)
	if err != nil {
		return err
	}

	stateOpts := []state.Option{
		state.WithLogger(log),
		state.WithMetrics(mx.State),
		state.WithFundingAttempts(cfg.Bridge.FundingAttempts),
	}
	if cfg.Bridge.PriceFeedURL != "" {
		feed, err := pricefeed.NewHTTPFeed(cfg.Bridge.PriceFeedURL,
			pricefeed.WithCurrency(cfg.Bridge.PriceCurrency))
		if err != nil {
			return err
		}
		stateOpts = append(stateOpts, state.WithPriceFeed(feed))
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		store, err := snapshotstore.NewRedisStore(redisClient.Client)
		if err != nil {
			return err
		}
		stateOpts = append(stateOpts, state.WithSnapshotStore(store))
	}

	manager, err := state.New(funder, bridge, platform, core, stateOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Restore(ctx); err != nil {
		log.Warn("snapshot restore skipped", "error", err)
	}

	managerDone := make(chan error, 1)
	go func() {
		managerDone <- manager.Run(ctx)
	}()

	seedDevWallet(ctx, cfg, core, manager, log)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "creditbridge", "creditbridge-ops")
	handler := httptransport.NewHandler(manager, bridge, funder, log)
	router := httptransport.NewRouter(handler, jwttoken.NewMiddlewareAdapter(tokens))

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting creditbridge daemon", "addr", cfg.Addr)

	serverDone := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	select {
	case err := <-serverDone:
		stop()
		<-managerDone
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-managerDone
	return nil
}

func buildJournal(cfg config.Server, log *slog.Logger) (funding.Journal, func(), error) {
	if cfg.Postgres.URL == "" {
		log.Info("using in-memory asset-lock journal")
		return journal.NewInMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.Postgres.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return journal.NewPostgresStore(db), func() { db.Close() }, nil
}

func buildAuditPublisher(cfg config.Server, log *slog.Logger) (*audit.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("audit trail kept in memory")
		return audit.NewPublisher(audit.NewInMemoryStore()), nil
	}
	sink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return nil, err
	}
	return audit.NewPublisher(sink, audit.WithAsyncBuffer(256)), nil
}

// seedDevWallet registers one funded simulator wallet when requested, so a
// fresh daemon can serve funding requests without external setup.
func seedDevWallet(ctx context.Context, cfg config.Server, core *sim.Core, manager *state.Manager, log *slog.Logger) {
	balance := cfg.Bridge.SimSeedBalance
	if balance <= 0 {
		return
	}
	walletID := id.NewWalletID()
	address := id.CoreAddress("sim:" + walletID.String())
	core.Seed(walletID, balance, address)
	wallet := domain.Wallet{ID: walletID, Balance: balance, Address: address}
	if err := manager.RegisterWallet(ctx, wallet); err != nil {
		log.Warn("dev wallet registration failed", "error", err)
		return
	}
	log.Info("seeded simulator wallet", "wallet_id", walletID, "balance", balance)
}
