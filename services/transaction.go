package services

import (
	"context"

	"github.com/upb/emr-gateway/repositories"
)

// RunInTx executes fn inside a transaction owned by txMgr. Repository calls
// made with the context handed to fn join that transaction; the manager
// commits when fn returns nil and rolls back otherwise.
func RunInTx(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) error) error {
	return txMgr.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		return fn(txCtx)
	})
}

// RunInTxResult is RunInTx for functions that produce a value. The zero value
// is returned whenever the transaction does not commit.
func RunInTxResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := RunInTx(ctx, txMgr, func(txCtx context.Context) error {
		var fnErr error
		result, fnErr = fn(txCtx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
