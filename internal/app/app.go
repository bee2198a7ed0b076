package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/danuandrian/matchvote/external/footballdata"
	"github.com/danuandrian/matchvote/internal/config"
	"github.com/danuandrian/matchvote/internal/domain/competition"
	"github.com/danuandrian/matchvote/internal/domain/match"
	"github.com/danuandrian/matchvote/internal/domain/vote"
	cacherepo "github.com/danuandrian/matchvote/internal/infrastructure/repository/cache"
	"github.com/danuandrian/matchvote/internal/infrastructure/repository/postgres"
	"github.com/danuandrian/matchvote/internal/interfaces/httpapi"
	basecache "github.com/danuandrian/matchvote/internal/platform/cache"
	"github.com/danuandrian/matchvote/internal/platform/logging"
	"github.com/danuandrian/matchvote/internal/platform/resilience"
	"github.com/danuandrian/matchvote/internal/usecase"
)

// Application bundles what main needs to run and shut down the service.
type Application struct {
	Server    *http.Server
	Scheduler *usecase.JobSchedulerService
	DB        *sqlx.DB
}

func New(cfg config.Config, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	competitionRepo := competition.Repository(postgres.NewCompetitionRepository(db))
	teamRepo := postgres.NewTeamRepository(db)
	matchRepo := match.Repository(postgres.NewMatchRepository(db))
	liveScoreRepo := match.LiveScoreRepository(postgres.NewLiveScoreRepository(db))
	categoryRepo := vote.CategoryRepository(postgres.NewVoteCategoryRepository(db))
	optionRepo := vote.OptionRepository(postgres.NewVoteOptionRepository(db))
	voteRepo := postgres.NewVoteRepository(db)
	syncLogRepo := postgres.NewSyncLogRepository(db)

	if cfg.CacheEnabled {
		store := basecache.NewStore(cfg.CacheTTL)
		competitionRepo = cacherepo.NewCompetitionRepository(competitionRepo, store)
		matchRepo = cacherepo.NewMatchRepository(matchRepo, store)
		liveScoreRepo = cacherepo.NewLiveScoreRepository(liveScoreRepo, store)
		categoryRepo = cacherepo.NewVoteCategoryRepository(categoryRepo, store)
		optionRepo = cacherepo.NewVoteOptionRepository(optionRepo, store)
		logger.Info("repository cache enabled", "ttl", cfg.CacheTTL.String())
	}

	var provider usecase.MatchDataProvider
	var quota httpapi.QuotaReporter
	if cfg.FootballDataEnabled {
		client := footballdata.NewClient(footballdata.ClientConfig{
			BaseURL:    cfg.FootballDataBaseURL,
			APIKey:     cfg.FootballDataAPIKey,
			Timeout:    cfg.FootballDataTimeout,
			MaxRetries: cfg.FootballDataMaxRetries,
			Logger:     logger,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.FootballDataCircuitEnabled,
				FailureThreshold: cfg.FootballDataCircuitFailureCount,
				OpenTimeout:      cfg.FootballDataCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.FootballDataCircuitHalfOpenMaxReq,
			},
		})
		provider = client
		quota = client
	} else {
		logger.Info("football-data provider disabled", "reason", "FOOTBALL_DATA_ENABLED=false")
	}

	syncSvc := usecase.NewSyncService(
		provider,
		competitionRepo,
		teamRepo,
		matchRepo,
		liveScoreRepo,
		syncLogRepo,
		usecase.SyncConfig{
			Enabled:      cfg.FootballDataEnabled,
			WindowPast:   cfg.SyncWindowPast,
			WindowFuture: cfg.SyncWindowFuture,
			Workers:      cfg.ResyncWorkers,
		},
		logger,
	)
	reconcilerSvc := usecase.NewReconcilerService(matchRepo, liveScoreRepo, syncLogRepo, cfg.ReconcilerStaleAfter, logger)
	matchSvc := usecase.NewMatchService(matchRepo, liveScoreRepo, voteRepo, logger)
	voteSvc := usecase.NewVoteService(
		matchRepo,
		categoryRepo,
		optionRepo,
		voteRepo,
		usecase.VoteChangePolicy{
			Allowed:  cfg.VoteChangeAllowed,
			Homepage: cfg.VoteChangeHomepage,
			Details:  cfg.VoteChangeDetails,
		},
		logger,
	)
	competitionSvc := usecase.NewCompetitionService(competitionRepo, logger)

	scheduler := usecase.NewJobSchedulerService(syncSvc, reconcilerSvc, usecase.JobSchedulerConfig{
		LiveInterval:         cfg.JobLiveInterval,
		MatchesInterval:      cfg.JobMatchesInterval,
		CompetitionsInterval: cfg.JobCompetitionsInterval,
		LeaseTTL:             cfg.JobLeaseTTL,
		SyncLogRetention:     cfg.SyncLogRetention,
	}, logger)

	handler := httpapi.NewHandler(matchSvc, voteSvc, competitionSvc, syncSvc, reconcilerSvc, quota, cfg.SyncLogRetention, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return &Application{
		Server:    server,
		Scheduler: scheduler,
		DB:        db,
	}, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	opts := []otelsql.Option{
		otelsql.WithAttributes(attribute.String("db.system", "postgresql")),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	}
	if name := dbNameFromURL(cfg.DBURL); name != "" {
		opts = append(opts, otelsql.WithDBName(name))
	}

	db, err := otelsqlx.Connect("postgres", dsn, opts...)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}
