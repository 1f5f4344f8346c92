package commands

import (
	"context"
	"fmt"

	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/auth"
	"github.com/chainsafe/canton-cbtc/pkg/cantonsdk/client"
	"github.com/chainsafe/canton-cbtc/pkg/config"
	"github.com/chainsafe/canton-cbtc/pkg/pgutil"
	"github.com/chainsafe/canton-cbtc/pkg/resultstore"
	"github.com/chainsafe/canton-cbtc/pkg/transfer"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// env holds what a subcommand needs once the configuration is loaded.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	canton *client.Client

	// db, store and recorder are nil unless database.enabled is set.
	db       *bun.DB
	store    resultstore.Store
	recorder transfer.RunRecorder
}

func (g *globalFlags) setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	c, err := client.New(cfg.SDK(), client.WithLogger(logger))
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create canton client: %w", err)
	}

	e := &env{cfg: cfg, logger: logger, canton: c}
	if cfg.Database.Enabled {
		db, err := pgutil.ConnectDB(ctx, &cfg.Database, logger)
		if err != nil {
			_ = logger.Sync()
			return nil, err
		}
		e.db = db
		e.store = resultstore.NewStore(db)
		e.recorder = resultstore.NewRecorder(e.store, logger)
	}
	return e, nil
}

func (e *env) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	_ = e.logger.Sync()
}

func (e *env) party() string { return e.cfg.Canton.PartyID }

// login creates a session and exchanges the configured credentials once, so
// bad credentials fail before any ledger work starts.
func (e *env) login(ctx context.Context) (*auth.Session, error) {
	session, err := e.canton.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if err := session.Login(ctx); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return session, nil
}

// newSession creates a session that logs in on first use.
func (e *env) newSession() (transfer.TokenSource, error) {
	return e.canton.NewSession()
}

func (e *env) options() []transfer.Option {
	return []transfer.Option{
		transfer.WithLogger(e.logger),
		transfer.WithBatchSize(e.cfg.Transfer.BatchSize),
	}
}

// record wraps fn in a recorded run when persistence is enabled.
func (e *env) record(
	ctx context.Context,
	info transfer.RunInfo,
	fn func(obs transfer.Observer) (*transfer.Outcome, error),
) (*transfer.Outcome, error) {
	if e.recorder == nil {
		return fn(nil)
	}

	run, err := e.recorder.StartRun(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	out, err := fn(run)
	if ferr := run.Finish(context.WithoutCancel(ctx), out, err); ferr != nil {
		e.logger.Error("Failed to finish run record", zap.Error(ferr))
	}
	return out, err
}
