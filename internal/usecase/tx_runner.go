package usecase

import (
	"context"

	"github.com/DRSN-tech/match-service/pkg/e"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
)

// TxRunner выполняет функцию в границах одной транзакции хранилища.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PgxTxRunner реализует TxRunner поверх пула PostgreSQL: открывает транзакцию,
// кладёт её в контекст для репозиториев и коммитит либо откатывает целиком.
type PgxTxRunner struct {
	dbPool transaction.Transactional
}

func NewPgxTxRunner(dbPool transaction.Transactional) *PgxTxRunner {
	return &PgxTxRunner{dbPool: dbPool}
}

func (r *PgxTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	const op = "PgxTxRunner.InTx"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, r.dbPool)
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			tx.Rollback(ctx)
		}
	}()
	ctx = context.WithValue(ctx, "tx", tx.Transaction())

	if err = fn(ctx); err != nil {
		return e.Wrap(op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}
