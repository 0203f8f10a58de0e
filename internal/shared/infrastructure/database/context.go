package database

import "context"

type txKey struct{}

type txInfo struct {
	tx    Transaction
	owned bool
}

func withTx(ctx context.Context, tx Transaction, owned bool) context.Context {
	return context.WithValue(ctx, txKey{}, txInfo{tx: tx, owned: owned})
}

func txFromContext(ctx context.Context) (txInfo, bool) {
	info, ok := ctx.Value(txKey{}).(txInfo)
	if !ok || info.tx == nil {
		return txInfo{}, false
	}
	return info, true
}

// ExecutorFromContext returns the transaction started by a UnitOfWork when
// there is one, otherwise conn.
func ExecutorFromContext(ctx context.Context, conn Executor) Executor {
	if info, ok := txFromContext(ctx); ok {
		return info.tx
	}
	return conn
}
