package bootstrap

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/poolcard/ledger-core/internal/cardprogram"
	"github.com/poolcard/ledger-core/internal/funding"
	"github.com/poolcard/ledger-core/internal/httpapi"
	"github.com/poolcard/ledger-core/internal/ledger/postingengine"
	"github.com/poolcard/ledger-core/internal/ledger/service"
	"github.com/poolcard/ledger-core/internal/provider"
	"github.com/poolcard/ledger-core/internal/provider/mock"
	"github.com/poolcard/ledger-core/internal/provider/synctera"
	"github.com/poolcard/ledger-core/internal/reconciliation"
	"github.com/poolcard/ledger-core/internal/splitting"
	mongostorage "github.com/poolcard/ledger-core/internal/storage/mongo"
	"github.com/poolcard/ledger-core/internal/storage/postgres"
	"github.com/poolcard/ledger-core/internal/webhook"
	"github.com/poolcard/ledger-core/internal/withdrawal"
	"github.com/poolcard/ledger-core/pkg/idgen"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mmongo"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
	"github.com/poolcard/ledger-core/pkg/mrabbitmq"
	"github.com/poolcard/ledger-core/pkg/mredis"
)

// App bundles everything a running process needs: the wired HTTP handlers
// (main mounts them with httpapi.NewApp), the hold-expiry sweep, and the
// connections to tear down on shutdown.
type App struct {
	Fiber    httpapi.Handlers
	Sweep    *cron.Cron
	Postgres *mpostgres.Connection
	Mongo    *mmongo.Connection
	Redis    *mredis.Connection
	RabbitMQ *mrabbitmq.Connection
}

// Build wires every domain package to its storage adapter, following the
// teacher's InitServers shape (components/ledger/internal/bootstrap): one
// function that constructs connections bottom-up and hands the assembled
// handlers back to main.
func Build(ctx context.Context, cfg *Config, logger mlog.Logger) (*App, error) {
	telemetry := &mopentelemetry.Telemetry{ServiceName: "ledger-core"}

	pg := &mpostgres.Connection{
		PrimaryURL:     cfg.DatabaseURL,
		ReplicaURL:     cfg.DatabaseReplicaURL,
		PrimaryDBName:  "ledger_core",
		MigrationsPath: cfg.MigrationsPath,
		Logger:         logger,
	}
	if err := pg.Connect(); err != nil {
		return nil, err
	}

	mongoConn := &mmongo.Connection{URL: cfg.MongoURL, Database: "ledger_core", Logger: logger}

	redisConn := &mredis.Connection{URL: cfg.RedisURL, Logger: logger}
	redisClient, err := redisConn.Client(ctx)
	if err != nil {
		logger.Warnf("redis unavailable, splitting cache degrades to LRU+postgres only: %v", err)
		redisClient = nil
	}

	rabbit := &mrabbitmq.Connection{URL: cfg.RabbitMQURL, Logger: logger}

	cards := &postgres.CardRepository{Connection: pg}
	wallets := &postgres.WalletRepository{Connection: pg}
	ledgerRepo := &postgres.LedgerRepository{Connection: pg}
	holds := &postgres.HoldRepository{Connection: pg}
	withdrawalRepo := &postgres.WithdrawalRepository{Connection: pg}
	fundingRepo := &postgres.FundingRouteRepository{Connection: pg}
	webhookEvents := &postgres.WebhookEventRepository{Connection: pg}
	txRunner := &postgres.TxRunner{Connection: pg}

	baasProvider := buildProvider(cfg, logger)

	engine := &postingengine.Engine{
		Repo:      ledgerRepo,
		TxRunner:  txRunner,
		Logger:    logger,
		Telemetry: telemetry,
		NewID:     idgen.New,
	}

	ledgerService := &service.Service{
		Accounts:  ledgerRepo,
		Engine:    engine,
		Logger:    logger,
		Telemetry: telemetry,
	}

	var splitResolver *splitting.Resolver
	if redisClient != nil {
		splitResolver = splitting.NewResolverWithRedis(wallets, redisClient)
	} else {
		splitResolver = splitting.NewResolver(wallets)
	}

	program := &cardprogram.Program{
		Cards:     cards,
		Members:   wallets,
		Holds:     holds,
		Ledger:    ledgerService,
		Splits:    splitResolver,
		Logger:    logger,
		Telemetry: telemetry,
	}

	withdrawals := &withdrawal.Coordinator{
		Repo:       withdrawalRepo,
		Membership: wallets,
		Ledger:     ledgerService,
		Provider:   baasProvider,
		Logger:     logger,
		Telemetry:  telemetry,
	}
	withdrawals.Configure(cfg.SyncteraSourceAccountID)

	fundingRouter := &funding.Router{
		Routes:    fundingRepo,
		Ledger:    ledgerService,
		Logger:    logger,
		Telemetry: telemetry,
	}

	reconcile := &reconciliation.Service{
		Accounts:  ledgerRepo,
		Logger:    logger,
		Telemetry: telemetry,
	}

	var auditMirror webhook.AuditMirror
	if cfg.MongoURL != "" {
		auditMirror = &mongostorage.AuditMirror{Connection: mongoConn}
	}

	var publisher webhook.Publisher
	if cfg.RabbitMQURL != "" {
		channel, err := rabbit.Channel()
		if err != nil {
			logger.Warnf("rabbitmq unavailable, webhook fanout disabled: %v", err)
		} else {
			publisher = &webhook.AMQPPublisher{Channel: channel, Exchange: "baas.events"}
		}
	}

	pipeline := &webhook.Pipeline{
		Verifier:    baasProvider,
		Events:      webhookEvents,
		Audit:       auditMirror,
		Publisher:   publisher,
		CardProgram: program,
		Withdrawals: withdrawals,
		Funding:     fundingRouter,
		Logger:      logger,
		Telemetry:   telemetry,
	}

	var auth httpapi.AuthResolver
	if cfg.EnvName == "local" {
		auth = &httpapi.MockResolver{UserID: "dev-user"}
	} else {
		auth = &httpapi.JWTResolver{Secret: cfg.JWTSecret}
	}

	handlers := httpapi.Handlers{
		Auth: auth,
		Ledger: &httpapi.LedgerHandler{
			Cards:          cards,
			Service:        ledgerService,
			Reconciliation: reconcile,
		},
		Withdraw: &httpapi.WithdrawalHandler{Coordinator: withdrawals},
		Webhook:  &httpapi.WebhookHandler{Pipeline: pipeline},
		Funding:  &httpapi.FundingHandler{Routes: fundingRepo, Admins: wallets},
	}

	sweep := cron.New()
	if _, err := sweep.AddFunc("*/15 * * * *", func() {
		expireStaleHolds(context.Background(), program, logger)
	}); err != nil {
		return nil, err
	}

	return &App{
		Fiber:    handlers,
		Sweep:    sweep,
		Postgres: pg,
		Mongo:    mongoConn,
		Redis:    redisConn,
		RabbitMQ: rabbit,
	}, nil
}

// buildProvider selects the BaaS adapter per cfg.BaasProvider (SPEC_FULL.md
// §4.5/§6): "MOCK" for local/dev and CI, "SYNCTERA" against the real
// platform.
func buildProvider(cfg *Config, logger mlog.Logger) provider.Provider {
	if cfg.BaasProvider == "SYNCTERA" {
		return synctera.NewClient(synctera.Config{
			BaseURL:       cfg.SyncteraBaseURL,
			APIKey:        cfg.SyncteraAPIKey,
			WebhookSecret: cfg.SyncteraWebhookSecret,
		}, logger)
	}

	return mock.NewClient()
}

// holdExpiryCutoffHours is how long a CARD_AUTH hold may sit PENDING before
// the sweep expires it, releasing the funds back to the pool's available
// balance (SPEC_FULL.md §4.3): 7 days.
const holdExpiryCutoffHours = 7 * 24

func expireStaleHolds(ctx context.Context, program *cardprogram.Program, logger mlog.Logger) {
	cutoff := time.Now().Add(-holdExpiryCutoffHours * time.Hour).Unix()

	n, err := program.ExpireStaleHolds(ctx, cutoff)
	if err != nil {
		logger.Errorf("hold expiry sweep failed: %v", err)
		return
	}

	if n > 0 {
		logger.Infof("hold expiry sweep expired %d stale holds", n)
	}
}
