package processor

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// txContextKey binds the SQL transaction backing the current
// ProcessTransaction cycle into the context passed to the sandbox, so
// runGuestQuery can find it without threading it through goja calls.
type txContextKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

func currentTx(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx
}
