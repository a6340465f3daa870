package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trainingportal-backend/internal/config"
	"trainingportal-backend/internal/logger"
)

// TxOptions bounds multi-statement writes. MaxWait limits how long to wait for
// a pooled connection; Timeout limits the whole transaction including commit.
type TxOptions struct {
	MaxWait time.Duration
	Timeout time.Duration
}

func TxOptionsFromConfig(cfg config.DatabaseConfig) TxOptions {
	return TxOptions{
		MaxWait: time.Duration(cfg.TxMaxWaitMs) * time.Millisecond,
		Timeout: time.Duration(cfg.TxTimeoutMs) * time.Millisecond,
	}
}

// withTx runs fn in a transaction and commits when it returns nil.
func withTx(ctx context.Context, db *sql.DB, opts TxOptions, name string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	waitCtx := ctx
	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}
	conn, err := db.Conn(waitCtx)
	if err != nil {
		return fmt.Errorf("%s: acquire connection: %w", name, err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", name, err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.Error("Transaction commit failed", "tx", name, "error", err)
		return fmt.Errorf("%s: commit: %w", name, err)
	}
	return nil
}
