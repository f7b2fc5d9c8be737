package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomasagata/extra-api-sub001/config"
	"github.com/tomasagata/extra-api-sub001/contract"
	"github.com/tomasagata/extra-api-sub001/logger"
	"github.com/tomasagata/extra-api-sub001/model"
	"github.com/tomasagata/extra-api-sub001/notify"
	"github.com/tomasagata/extra-api-sub001/repository"
	"github.com/tomasagata/extra-api-sub001/repository/memory"
	"github.com/tomasagata/extra-api-sub001/rest"
	"github.com/tomasagata/extra-api-sub001/service"
)

const shutdownTimeout = 10 * time.Second

type repos struct {
	users        contract.UserRepo
	resetTokens  contract.ResetTokenRepo
	categories   contract.CategoryRepo
	transactions contract.TransactionRepo
	budgets      contract.BudgetRepo
	investments  contract.InvestmentRepo
	devices      contract.DeviceRepo
}

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	r, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier, err := openNotifier(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	devices := service.NewDeviceService(r.devices, notifier, time.Now)
	services := rest.Services{
		Users:        service.NewUserService(r.users, r.resetTokens, devices, time.Now),
		Categories:   service.NewCategoryService(r.categories),
		Transactions: service.NewTransactionService(r.categories, r.transactions),
		Budgets:      service.NewBudgetService(r.categories, r.budgets),
		Investments:  service.NewInvestmentService(r.categories, r.investments),
		Devices:      devices,
	}
	returns := service.NewInvestmentReturnProcessor(r.investments, r.transactions, devices)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Msg("JWT_SECRET not set: sessions will not survive a restart")
	}

	a := &rest.App{}
	if err := a.Init(services, secret, cfg.SessionTTL, log); err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	if cfg.SeedDemo {
		if err := a.AddData(ctx, model.DateOf(time.Now())); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		log.Info().Str("username", rest.DemoUsername).Msg("demo data ready")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting money manager API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		runReturns(gctx, returns, cfg.ReturnInterval)
		return nil
	})
	return g.Wait()
}

func openStore(cfg *config.Config, log zerolog.Logger) (repos, func(), error) {
	if cfg.DataBackend == config.BackendMemory {
		log.Info().Msg("using in-memory storage")
		s := memory.NewStore()
		return repos{
			users:        s.Users(),
			resetTokens:  s.ResetTokens(),
			categories:   s.Categories(),
			transactions: s.Transactions(),
			budgets:      s.Budgets(),
			investments:  s.Investments(),
			devices:      s.Devices(),
		}, func() {}, nil
	}

	dsn := cfg.MySQLDSN()
	if err := repository.Migrate(dsn); err != nil {
		return repos{}, nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := repository.NewDB(dsn)
	if err != nil {
		return repos{}, nil, fmt.Errorf("open database: %w", err)
	}
	log.Info().Str("host", cfg.MySQLHost).Str("database", cfg.MySQLDatabase).Msg("connected to MySQL")
	return mysqlRepos(db), func() { db.Close() }, nil
}

func mysqlRepos(db *sql.DB) repos {
	return repos{
		users:        repository.NewUserRepoMysql(db),
		resetTokens:  repository.NewResetTokenRepoMysql(db),
		categories:   repository.NewCategoryRepoMysql(db),
		transactions: repository.NewTransactionRepoMysql(db),
		budgets:      repository.NewBudgetRepoMysql(db),
		investments:  repository.NewInvestmentRepoMysql(db),
		devices:      repository.NewDeviceRepoMysql(db),
	}
}

func openNotifier(cfg *config.Config, log zerolog.Logger) (contract.Notifier, func(), error) {
	if cfg.AMQPURL == "" {
		return notify.NewLogNotifier(log), func() {}, nil
	}
	p, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("exchange", cfg.AMQPExchange).Msg("publishing notifications over AMQP")
	return p, func() { p.Close() }, nil
}

// runReturns pays due investment returns once at startup and then on every tick.
func runReturns(ctx context.Context, p *service.InvestmentReturnProcessor, interval time.Duration) {
	log := logger.FromContext(ctx)
	process := func() {
		if _, err := p.ProcessDue(ctx, time.Now()); err != nil {
			log.Error().Err(err).Msg("investment returns failed")
		}
	}

	process()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			process()
		}
	}
}
