package pgdb

import (
	"context"

	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/DRSN-tech/match-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// rebuildLockKey — общий ключ advisory-блокировки пересчёта для всех
// экземпляров сервиса, работающих с одной базой.
const rebuildLockKey int64 = 874312001

// LockRepo реализует взаимное исключение пересчётов через advisory-блокировки
// PostgreSQL. Полный пересчёт берёт эксклюзивную блокировку, точечное
// обновление проекта — разделяемую на тот же ключ: обновления совместимы
// между собой, но не идут одновременно с пересчётом.
type LockRepo struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewLockRepo(pool *pgxpool.Pool, logger logger.Logger) *LockRepo {
	return &LockRepo{
		pool:   pool,
		logger: logger,
	}
}

func (l *LockRepo) TryLockRebuild(ctx context.Context) (func(), bool, error) {
	return l.tryLock(ctx,
		`SELECT pg_try_advisory_lock($1)`,
		`SELECT pg_advisory_unlock($1)`,
	)
}

func (l *LockRepo) TryLockRefresh(ctx context.Context) (func(), bool, error) {
	return l.tryLock(ctx,
		`SELECT pg_try_advisory_lock_shared($1)`,
		`SELECT pg_advisory_unlock_shared($1)`,
	)
}

// tryLock берёт сессионную advisory-блокировку. Блокировка привязана к
// конкретному соединению, поэтому соединение удерживается из пула до release.
func (l *LockRepo) tryLock(ctx context.Context, lockQuery, unlockQuery string) (func(), bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, lockQuery, rebuildLockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	if !locked {
		conn.Release()
		return nil, false, nil
	}

	release := func() {
		// Снимаем блокировку на фоновом контексте: release вызывается и при
		// отменённом контексте запроса, а соединение должно вернуться чистым.
		if _, err := conn.Exec(context.Background(), unlockQuery, rebuildLockKey); err != nil {
			l.logger.Warnf("Failed to release advisory lock: %v", err)
		}
		conn.Release()
	}

	return release, true, nil
}
