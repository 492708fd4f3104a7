package qdb

import (
	"context"
	"database/sql"

	"github.com/go-qdb/qdb/internal/fairlock"
)

// Database is a Queryable bound to one opened connection (pool). Every
// public operation autocommits: there is no implicit transaction
// spanning multiple calls, matching database/sql's own semantics for a
// bare *sql.DB. Use Begin or Transact for multi-statement atomicity.
type Database struct {
	*queryable
	sqlDB *sql.DB
	cfg   *Config
	fair  *fairlock.FairLock // non-nil for embedded engines
}

// Open resolves engineName in the registry and opens dsn through its
// adapter.
func Open(ctx context.Context, engineName, dsn string, opts ...Option) (*Database, error) {
	engine, err := lookupEngine(engineName)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	sqlDB, err := engine.Adapter.Open(ctx, dsn, cfg)
	if err != nil {
		return nil, wrapDriverErr(ErrDriverFailure, "", nil, err)
	}

	if engine.Embedded {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
		sqlDB.SetMaxIdleConns(cfg.MinConn)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	cache := newSchemaCache()
	d := &Database{
		queryable: &queryable{
			engine: engine,
			conn:   sqlDB,
			logger: cfg.Logger,
			cache:  cache,
			poolDB: sqlDB,
		},
		sqlDB: sqlDB,
		cfg:   cfg,
	}
	if engine.Embedded {
		d.fair = fairlock.New()
	}

	if cfg.AsDefault {
		registerDefault(engineName, d)
	}

	return d, nil
}

// Close releases the underlying connection pool.
func (d *Database) Close() error {
	return d.sqlDB.Close()
}

// Ping verifies the connection is alive.
func (d *Database) Ping(ctx context.Context) error {
	if err := d.sqlDB.PingContext(ctx); err != nil {
		return wrapDriverErr(ErrDriverFailure, "", nil, err)
	}
	return nil
}

// Begin starts a Transaction. For an embedded engine this blocks until
// the database's fair lock is free, unless WithExclusive(false) is
// passed.
func (d *Database) Begin(ctx context.Context, opts ...TxOption) (*Transaction, error) {
	tp := newTxParams(opts)

	if d.fair != nil && tp.exclusive {
		d.fair.Lock()
	}

	sqlTx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		if d.fair != nil && tp.exclusive {
			d.fair.Unlock()
		}
		return nil, wrapDriverErr(ErrDriverFailure, "", nil, err)
	}

	// Schema introspection runs on the pool. An embedded engine's pool
	// has one connection, which this transaction now holds, so its
	// transactions get no cache rather than blocking on introspection.
	cache := d.cache
	if d.engine.Embedded {
		cache = nil
	}

	return &Transaction{
		queryable: &queryable{
			engine:       d.engine,
			conn:         sqlTx,
			logger:       d.cfg.Logger,
			schemaPrefix: tp.schema,
			cache:        cache,
			poolDB:       d.sqlDB,
		},
		db:       d,
		sqlTx:    sqlTx,
		params:   tp,
		state:    TxOpen,
		heldFair: d.fair != nil && tp.exclusive,
	}, nil
}

// Transact runs fn inside a Begin/Commit scope, rolling back and
// returning nil if fn returns Rollback, rolling back and propagating any
// other error, and committing on success.
func (d *Database) Transact(ctx context.Context, fn func(*Transaction) error, opts ...TxOption) error {
	tx, err := d.Begin(ctx, opts...)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		_ = tx.close(ctx, false)
		if err == Rollback {
			return nil
		}
		return err
	}
	return tx.close(ctx, true)
}
