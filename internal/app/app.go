package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	natsevents "github.com/ogurasousui/staffing-ledger/internal/adapters/events/nats"
	"github.com/ogurasousui/staffing-ledger/internal/adapters/repository/postgres"
	"github.com/ogurasousui/staffing-ledger/internal/core/assignment"
	"github.com/ogurasousui/staffing-ledger/internal/core/client"
	"github.com/ogurasousui/staffing-ledger/internal/core/employee"
	"github.com/ogurasousui/staffing-ledger/internal/platform/config"
	pg "github.com/ogurasousui/staffing-ledger/internal/platform/db/postgres"
)

// App は接続プールとユースケースの組み立て結果です。
type App struct {
	Pool       *pgxpool.Pool
	Assignment *assignment.Service
	Client     *client.Service
	Employee   *employee.Service

	nc *natsgo.Conn
}

// Build は設定からデータベース接続を開き、各ユースケースを組み立てます。
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Ledger.QueryTimeout)
	defer cancel()

	pool, err := pg.NewPool(connectCtx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database pool: %w", err)
	}

	var (
		opts []assignment.Option
		nc   *natsgo.Conn
	)
	if cfg.Events.Enabled() {
		var publisher *natsevents.Publisher
		nc, publisher, err = connectEvents(connectCtx, cfg.Events)
		if err != nil {
			pool.Close()
			return nil, err
		}
		opts = append(opts, assignment.WithEventPublisher(publisher))
	}

	a := Wire(pool, cfg, logger, opts...)
	a.Pool = pool
	a.nc = nc
	return a, nil
}

func connectEvents(ctx context.Context, cfg config.EventsConfig) (*natsgo.Conn, *natsevents.Publisher, error) {
	nc, err := natsgo.Connect(cfg.NATSURL, natsgo.Name("staffing-ledger"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	if _, err := natsevents.EnsureStream(ctx, js, cfg.Stream, cfg.SubjectPrefix); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, natsevents.NewPublisher(js, cfg.SubjectPrefix), nil
}

// Wire は既存の接続先からユースケースを組み立てます。
func Wire(db pg.DB, cfg *config.Config, logger *zap.Logger, opts ...assignment.Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	tx := pg.NewTransactionManager(db)

	assignmentRepo := postgres.NewAssignmentRepository(db)
	clientRepo := postgres.NewClientRepository(db)
	employeeRepo := postgres.NewEmployeeRepository(db)

	opts = append([]assignment.Option{
		assignment.WithLogger(logger.Named("assignment")),
		assignment.WithLocation(cfg.Ledger.Location),
		assignment.WithQueryTimeout(cfg.Ledger.QueryTimeout),
	}, opts...)
	assignmentSvc := assignment.NewService(
		assignmentRepo,
		assignment.Registries{
			Counters:  clientRepo,
			Employees: employeeRepo,
			Clients:   clientRepo,
		},
		nil,
		tx,
		opts...,
	)

	return &App{
		Assignment: assignmentSvc,
		Client:     client.NewService(clientRepo, nil, tx),
		Employee:   employee.NewService(employeeRepo, nil, tx),
	}
}

// Readiness はデータストアの疎通確認関数を返します。
func (a *App) Readiness() func(ctx context.Context) error {
	return pingFunc(a.Pool)
}

func pingFunc(p pg.Pinger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return pg.Ping(ctx, p, 0)
	}
}

// Close は接続を閉じます。
func (a *App) Close() {
	if a.nc != nil {
		_ = a.nc.Drain()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
