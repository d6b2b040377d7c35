package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Coinversable/validana-core/foundation/blockchain/dbadapter"
	"github.com/Coinversable/validana-core/foundation/blockchain/processor"
	"github.com/Coinversable/validana-core/foundation/blockchain/registry"
	"github.com/Coinversable/validana-core/foundation/blockchain/wire"
	"github.com/Coinversable/validana-core/foundation/logger"
)

// Bootstrap wires the DB adapter, the contract registry and the
// transaction processor into the one composed object an external
// caller (block assembly, P2P replication) drives one transaction at
// a time. It intentionally exposes nothing about block assembly or
// networking: those remain this exercise's explicit non-goals.
type Bootstrap struct {
	db        *dbadapter.Client
	gormDB    *gorm.DB
	registry  *registry.Registry
	processor *processor.Processor
	log       *zap.SugaredLogger
}

// NewBootstrap connects to the database, loads the contract registry
// and constructs the transaction processor, in that order, since the
// processor needs a populated registry the moment it is built.
func NewBootstrap(ctx context.Context, cfg config) (*Bootstrap, error) {
	log, err := logger.New("NODE", "bootstrap")
	if err != nil {
		return nil, fmt.Errorf("bootstrap: construct logger: %w", err)
	}

	db := dbadapter.New(cfg.DB.DSN, log)
	backoff := make([]time.Duration, cfg.DB.ConnectRetries)
	for i := range backoff {
		backoff[i] = time.Duration(i+1) * time.Second
	}
	if err := db.Connect(ctx, backoff); err != nil {
		return nil, fmt.Errorf("bootstrap: connect: %w", err)
	}

	// gormDB is used only for the non-transactional bulk read that
	// (re)populates the in-memory registry (spec §4.5 does not require
	// this read to be transactional). Every write to basics.contracts
	// happens on the processor's own pgx.Tx instead (registry.InsertTx,
	// registry.DeleteTx), so it commits or rolls back atomically with
	// the rest of the create/delete-contract transaction (spec §3.5,
	// §5) rather than through a second, independently-committing
	// connection.
	gormDB, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect administrative store: %w", err)
	}

	store := registry.NewStore(gormDB)
	reg, err := registry.New(store)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load registry: %w", err)
	}

	proc := processor.New(reg, db, log.With("component", "processor"), []byte(cfg.Node.SignPrefix), cfg.Node.Address, cfg.Node.StatementTimeout)

	return &Bootstrap{
		db:        db,
		gormDB:    gormDB,
		registry:  reg,
		processor: proc,
		log:       log,
	}, nil
}

// Close releases the underlying database connection.
func (b *Bootstrap) Close(ctx context.Context) error {
	return b.db.Close(ctx)
}

// ProcessNext decodes a wire-encoded transaction and runs it through
// the processor's full validate/match/execute cycle, reporting its
// outcome. It is the single entry point an external block-building
// loop or P2P replication layer calls once per transaction.
func (b *Bootstrap) ProcessNext(ctx context.Context, txBytes []byte, blockCtx processor.Context) (processor.Outcome, error) {
	tx, err := wire.FromBytes(txBytes)
	if err != nil {
		return processor.OutcomeInvalid, nil
	}

	result, err := b.processor.ProcessTransaction(ctx, tx, blockCtx)
	if err != nil {
		return processor.Outcome(0), fmt.Errorf("bootstrap: process transaction: %w", err)
	}

	b.log.Infow("processed transaction",
		"outcome", result.Outcome.String(),
		"reason", result.Reason,
	)

	return result.Outcome, nil
}

// ReloadRegistry restores the in-memory contract registry from the
// administrative store, per spec §4.5: callers must invoke this after
// a block whose commit failed, since a failed commit can leave a
// provisional create/delete mutation applied in memory.
func (b *Bootstrap) ReloadRegistry() error {
	return b.registry.Reload()
}
