package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)        {}
func (nopLogger) Infof(string, ...any)         {}
func (nopLogger) Warnf(string, ...any)         {}
func (nopLogger) Errorf(error, string, ...any) {}

type fakeEmbeddingRepo struct {
	embeddings []domain.ImageEmbedding
	errs       []error // ошибки на первые вызовы, по одной на вызов
	calls      int
}

func (f *fakeEmbeddingRepo) FetchAll(context.Context) ([]domain.ImageEmbedding, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.embeddings, nil
}

type fakeCatalogRepo struct {
	projectIDs []int64
	productIDs []int64
	err        error
}

func (f *fakeCatalogRepo) GetProjectIDs(context.Context) ([]int64, error) {
	return f.projectIDs, f.err
}

func (f *fakeCatalogRepo) GetProductIDs(context.Context) ([]int64, error) {
	return f.productIDs, f.err
}

type matchKey struct {
	projectID int64
	productID int64
}

type fakeMatchRepo struct {
	mu        sync.Mutex
	store     map[matchKey]domain.Match
	upsertErr map[matchKey]error
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{
		store:     make(map[matchKey]domain.Match),
		upsertErr: make(map[matchKey]error),
	}
}

func (f *fakeMatchRepo) seed(match domain.Match) {
	f.store[matchKey{match.ProjectID, match.ProductID}] = match
}

func (f *fakeMatchRepo) GetAll(context.Context) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]domain.Match, 0, len(f.store))
	for _, m := range f.store {
		result = append(result, m)
	}
	return result, nil
}

func (f *fakeMatchRepo) GetForProject(_ context.Context, projectID int64) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]domain.Match, 0)
	for _, m := range f.store {
		if m.ProjectID == projectID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].ProductID < result[j].ProductID
	})
	return result, nil
}

func (f *fakeMatchRepo) GetForProduct(_ context.Context, productID int64) ([]domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]domain.Match, 0)
	for _, m := range f.store {
		if m.ProductID == productID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].ProjectID < result[j].ProjectID
	})
	return result, nil
}

func (f *fakeMatchRepo) Upsert(_ context.Context, match *domain.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := matchKey{match.ProjectID, match.ProductID}
	if err, ok := f.upsertErr[key]; ok {
		return err
	}
	f.store[key] = *match
	return nil
}

func (f *fakeMatchRepo) Delete(_ context.Context, projectID, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.store, matchKey{projectID, productID})
	return nil
}

func (f *fakeMatchRepo) DeleteSuperseded(_ context.Context, projectID int64, runID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var deleted int64
	for key, m := range f.store {
		if key.projectID == projectID && m.RunID != runID {
			delete(f.store, key)
			deleted++
		}
	}
	return deleted, nil
}

type fakeRunRepo struct {
	mu        sync.Mutex
	created   []domain.Run
	finished  []domain.Run
	createErr error
	finishErr error
}

func (f *fakeRunRepo) Create(_ context.Context, run *domain.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *run)
	return nil
}

func (f *fakeRunRepo) Finish(_ context.Context, run *domain.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.finishErr != nil {
		return f.finishErr
	}
	f.finished = append(f.finished, *run)
	return nil
}

type fakeLockRepo struct {
	rebuildBusy     bool
	refreshBusy     bool
	rebuildReleases int
	refreshReleases int
}

func (f *fakeLockRepo) TryLockRebuild(context.Context) (func(), bool, error) {
	if f.rebuildBusy {
		return nil, false, nil
	}
	return func() { f.rebuildReleases++ }, true, nil
}

func (f *fakeLockRepo) TryLockRefresh(context.Context) (func(), bool, error) {
	if f.refreshBusy {
		return nil, false, nil
	}
	return func() { f.refreshReleases++ }, true, nil
}

type fakeCacheRepo struct {
	mu      sync.Mutex
	store   map[int64][]domain.Match
	deleted []int64
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{store: make(map[int64][]domain.Match)}
}

func (f *fakeCacheRepo) GetProjectMatches(_ context.Context, projectID int64) ([]domain.Match, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matches, ok := f.store[projectID]
	return matches, ok, nil
}

func (f *fakeCacheRepo) SetProjectMatches(_ context.Context, projectID int64, matches []domain.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.store[projectID] = matches
	return nil
}

func (f *fakeCacheRepo) DeleteProjects(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range ids {
		delete(f.store, id)
	}
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeCacheRepo) cached(projectID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.store[projectID]
	return ok
}

type fakeImageLinker struct {
	err error
}

func (f *fakeImageLinker) ResolveURL(_ context.Context, imageID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://images.local/" + imageID, nil
}

type fakeTxRunner struct {
	err   error
	calls int
}

func (f *fakeTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type fakeProducer struct {
	mu        sync.Mutex
	published []*RebuildRes
	err       error
}

func (f *fakeProducer) PublishRebuildCompleted(_ context.Context, res *RebuildRes) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, res)
	return nil
}

type ucFixture struct {
	uc        *MatchUseCase
	embedding *fakeEmbeddingRepo
	catalog   *fakeCatalogRepo
	matches   *fakeMatchRepo
	runs      *fakeRunRepo
	locks     *fakeLockRepo
	cache     *fakeCacheRepo
	linker    *fakeImageLinker
	producer  *fakeProducer
	tx        *fakeTxRunner
}

func newFixture() *ucFixture {
	f := &ucFixture{
		embedding: &fakeEmbeddingRepo{},
		catalog:   &fakeCatalogRepo{},
		matches:   newFakeMatchRepo(),
		runs:      &fakeRunRepo{},
		locks:     &fakeLockRepo{},
		cache:     newFakeCacheRepo(),
		linker:    &fakeImageLinker{},
		producer:  &fakeProducer{},
		tx:        &fakeTxRunner{},
	}

	f.uc = NewMatchUC(
		f.embedding,
		f.catalog,
		f.matches,
		f.runs,
		f.locks,
		f.cache,
		f.linker,
		f.producer,
		f.tx,
		nopLogger{},
		&cfg.MatchingCfg{
			TopNPerProject:    50,
			DefaultMatchLimit: 20,
			FetchRetryBase:    time.Millisecond,
			FetchRetryMax:     5 * time.Millisecond,
		},
	)

	return f
}

// twoByTwoCatalog наполняет фикстуру парой проектов и парой продуктов так,
// что каждому проекту соответствует ровно один идентичный по вектору продукт.
func twoByTwoCatalog(f *ucFixture) {
	f.embedding.embeddings = []domain.ImageEmbedding{
		emb(1, domain.ItemTypeProject, "p1/main.jpg", 1, 0),
		emb(2, domain.ItemTypeProject, "p2/main.jpg", 0, 1),
		emb(101, domain.ItemTypeProduct, "g101/main.jpg", 1, 0),
		emb(102, domain.ItemTypeProduct, "g102/main.jpg", 0, 1),
	}
	f.catalog.projectIDs = []int64{1, 2}
	f.catalog.productIDs = []int64{101, 102}
}

func TestRebuildAll(t *testing.T) {
	ctx := context.Background()

	t.Run("computes and stores matches", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)

		res, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)

		assert.NotEmpty(t, res.RunID)
		assert.Equal(t, 2, res.ProjectsCount)
		assert.Equal(t, 2, res.ProductsCount)
		assert.Equal(t, 2, res.MatchesUpserted)
		assert.Empty(t, res.Errors)

		stored := f.matches.store[matchKey{1, 101}]
		assert.Equal(t, 100, stored.Score)
		assert.Equal(t, domain.TierStrong, stored.Tier)
		assert.Equal(t, res.RunID, stored.RunID)
		assert.Contains(t, f.matches.store, matchKey{2, 102})
		assert.NotContains(t, f.matches.store, matchKey{1, 102})

		assert.Equal(t, 1, f.locks.rebuildReleases)
		assert.ElementsMatch(t, []int64{1, 2}, f.cache.deleted)
		require.Len(t, f.producer.published, 1)
	})

	t.Run("records run ledger transitions", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)

		res, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)

		require.Len(t, f.runs.created, 1)
		assert.Equal(t, domain.RunStarted, f.runs.created[0].Status)
		assert.Equal(t, res.RunID, f.runs.created[0].RunID)

		require.Len(t, f.runs.finished, 1)
		finished := f.runs.finished[0]
		assert.Equal(t, domain.RunCompleted, finished.Status)
		assert.Equal(t, 2, finished.MatchesUpserted)
		require.NotNil(t, finished.CompletedAt)
		assert.Nil(t, finished.ErrorMessage)
	})

	t.Run("rerun on same data is idempotent", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)

		first, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)
		second, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)

		assert.NotEqual(t, first.RunID, second.RunID)
		assert.Equal(t, 2, second.MatchesUpserted)
		assert.Len(t, f.matches.store, 2)
		assert.Equal(t, second.RunID, f.matches.store[matchKey{1, 101}].RunID)
	})

	t.Run("concurrent rebuild is rejected", func(t *testing.T) {
		f := newFixture()
		f.locks.rebuildBusy = true

		_, err := f.uc.RebuildAll(ctx)
		require.ErrorIs(t, err, e.ErrRebuildInProgress)
		assert.Empty(t, f.runs.created)
	})

	t.Run("row errors are collected without aborting", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.matches.upsertErr[matchKey{1, 101}] = errors.New("deadlock")

		res, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, res.MatchesUpserted)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "upsert (1, 101)")
		assert.Contains(t, f.matches.store, matchKey{2, 102})

		require.Len(t, f.runs.finished, 1)
		assert.Equal(t, domain.RunCompleted, f.runs.finished[0].Status)
		require.NotNil(t, f.runs.finished[0].ErrorMessage)
	})

	t.Run("removes matches of departed catalog items", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 999, Score: 70, RunID: "old"})
		f.matches.seed(domain.Match{ProjectID: 999, ProductID: 101, Score: 70, RunID: "old"})

		res, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, res.MatchesDeletedStale)
		assert.NotContains(t, f.matches.store, matchKey{1, 999})
		assert.NotContains(t, f.matches.store, matchKey{999, 101})
	})

	t.Run("supersedes old rows only for rebuilt projects", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.catalog.projectIDs = []int64{1, 2, 3}
		f.catalog.productIDs = []int64{101, 102, 105}
		// Проект 1 пересчитывается: его старая строка должна быть вытеснена.
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 105, Score: 65, RunID: "old"})
		// У проекта 3 нет эмбеддингов: его прошлые матчи остаются в силе.
		f.matches.seed(domain.Match{ProjectID: 3, ProductID: 101, Score: 55, RunID: "old"})

		_, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)

		assert.NotContains(t, f.matches.store, matchKey{1, 105})
		assert.Contains(t, f.matches.store, matchKey{3, 101})
	})

	t.Run("run ledger failures do not block rebuild", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.runs.createErr = errors.New("ledger down")
		f.runs.finishErr = errors.New("ledger down")

		res, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.MatchesUpserted)
	})

	t.Run("publish failure does not fail rebuild", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.producer.err = errors.New("broker unreachable")

		_, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)
	})

	t.Run("retries transient embedding fetch failures", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.embedding.errs = []error{errors.New("qdrant hiccup"), nil}

		res, err := f.uc.RebuildAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, f.embedding.calls)
		assert.Equal(t, 2, res.MatchesUpserted)
	})

	t.Run("fails run when embeddings stay unavailable", func(t *testing.T) {
		fetchErr := errors.New("qdrant down")
		f := newFixture()
		twoByTwoCatalog(f)
		f.embedding.errs = []error{fetchErr, fetchErr, fetchErr}

		_, err := f.uc.RebuildAll(ctx)
		require.ErrorIs(t, err, fetchErr)

		require.Len(t, f.runs.finished, 1)
		assert.Equal(t, domain.RunFailed, f.runs.finished[0].Status)
		require.NotNil(t, f.runs.finished[0].ErrorMessage)
		assert.Equal(t, 1, f.locks.rebuildReleases)
	})
}

func TestRefreshProject(t *testing.T) {
	ctx := context.Background()

	t.Run("rejected while rebuild holds the lock", func(t *testing.T) {
		f := newFixture()
		f.locks.refreshBusy = true

		_, err := f.uc.RefreshProject(ctx, 1)
		require.ErrorIs(t, err, e.ErrRebuildInProgress)
	})

	t.Run("rewrites only the target project's rows", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.catalog.productIDs = []int64{101, 102, 103}
		// Старая строка проекта 1, не воспроизводимая новым пересчётом: подлежит вытеснению.
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 103, Score: 55, RunID: "old"})
		// Строка чужого проекта: точечное обновление её не трогает.
		f.matches.seed(domain.Match{ProjectID: 2, ProductID: 102, Score: 100, RunID: "old"})

		res, err := f.uc.RefreshProject(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, 1, res.UpsertedCount)
		assert.Equal(t, 1, f.tx.calls)

		refreshed := f.matches.store[matchKey{1, 101}]
		assert.Equal(t, 100, refreshed.Score)
		assert.NotEmpty(t, refreshed.RunID)
		assert.NotEqual(t, "old", refreshed.RunID)

		assert.NotContains(t, f.matches.store, matchKey{1, 103})
		assert.Equal(t, "old", f.matches.store[matchKey{2, 102}].RunID)

		assert.Equal(t, []int64{1}, f.cache.deleted)
		assert.Equal(t, 1, f.locks.refreshReleases)
	})

	t.Run("write failure aborts refresh", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.tx.err = errors.New("begin tx: connection reset")

		_, err := f.uc.RefreshProject(ctx, 1)
		require.ErrorContains(t, err, "connection reset")

		assert.NotContains(t, f.matches.store, matchKey{1, 101})
		assert.Empty(t, f.cache.deleted)
		assert.Equal(t, 1, f.locks.refreshReleases)
	})

	t.Run("project without embeddings writes nothing", func(t *testing.T) {
		f := newFixture()
		f.embedding.embeddings = []domain.ImageEmbedding{
			emb(101, domain.ItemTypeProduct, "g101/main.jpg", 1, 0),
		}
		f.catalog.projectIDs = []int64{1}
		f.catalog.productIDs = []int64{101}
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 101, Score: 45, RunID: "old"})

		res, err := f.uc.RefreshProject(ctx, 1)
		require.NoError(t, err)

		assert.Equal(t, 0, res.UpsertedCount)
		assert.Contains(t, f.matches.store, matchKey{1, 101})
		assert.Equal(t, 1, f.locks.refreshReleases)
	})

	t.Run("departed project writes nothing", func(t *testing.T) {
		f := newFixture()
		twoByTwoCatalog(f)
		f.catalog.projectIDs = []int64{2}

		res, err := f.uc.RefreshProject(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, 0, res.UpsertedCount)
	})
}

func TestGetProjectMatches(t *testing.T) {
	ctx := context.Background()

	seedProject := func(f *ucFixture) {
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 101, Score: 90, Tier: domain.TierStrong,
			EvidenceProjectImageID: "p1/a.jpg", EvidenceProductImageID: "g101/b.jpg", UpdatedAt: time.Now()})
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 102, Score: 70, Tier: domain.TierLikely})
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 103, Score: 50, Tier: domain.TierPossible})
	}

	t.Run("cache miss falls back to storage", func(t *testing.T) {
		f := newFixture()
		seedProject(f)

		res, err := f.uc.GetProjectMatches(ctx, NewGetMatchesReq(1, 0, 0))
		require.NoError(t, err)

		require.Len(t, res.Matches, 3)
		assert.Equal(t, int64(101), res.Matches[0].ProductID)
		assert.Equal(t, 90, res.Matches[0].Score)
		assert.Equal(t, "https://images.local/p1/a.jpg", res.Matches[0].EvidenceProjectImageURL)
		assert.Equal(t, "https://images.local/g101/b.jpg", res.Matches[0].EvidenceProductImageURL)

		// Фоновое наполнение кэша.
		assert.Eventually(t, func() bool { return f.cache.cached(1) }, time.Second, 10*time.Millisecond)
	})

	t.Run("served from cache when present", func(t *testing.T) {
		f := newFixture()
		f.cache.store[1] = []domain.Match{
			{ProjectID: 1, ProductID: 777, Score: 88, Tier: domain.TierStrong},
		}

		res, err := f.uc.GetProjectMatches(ctx, NewGetMatchesReq(1, 0, 0))
		require.NoError(t, err)

		require.Len(t, res.Matches, 1)
		assert.Equal(t, int64(777), res.Matches[0].ProductID)
	})

	t.Run("filters by min score", func(t *testing.T) {
		f := newFixture()
		seedProject(f)

		res, err := f.uc.GetProjectMatches(ctx, NewGetMatchesReq(1, 60, 0))
		require.NoError(t, err)

		require.Len(t, res.Matches, 2)
		assert.Equal(t, int64(101), res.Matches[0].ProductID)
		assert.Equal(t, int64(102), res.Matches[1].ProductID)
	})

	t.Run("applies limit", func(t *testing.T) {
		f := newFixture()
		seedProject(f)

		res, err := f.uc.GetProjectMatches(ctx, NewGetMatchesReq(1, 0, 1))
		require.NoError(t, err)

		require.Len(t, res.Matches, 1)
		assert.Equal(t, int64(101), res.Matches[0].ProductID)
	})

	t.Run("evidence link failure leaves url empty", func(t *testing.T) {
		f := newFixture()
		seedProject(f)
		f.linker.err = errors.New("minio down")

		res, err := f.uc.GetProjectMatches(ctx, NewGetMatchesReq(1, 0, 0))
		require.NoError(t, err)
		assert.Empty(t, res.Matches[0].EvidenceProjectImageURL)
	})

	t.Run("unknown project yields empty list", func(t *testing.T) {
		f := newFixture()

		res, err := f.uc.GetProjectMatches(ctx, NewGetMatchesReq(42, 0, 0))
		require.NoError(t, err)
		assert.Empty(t, res.Matches)
	})
}

func TestGetProductMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("returns matching projects sorted by score", func(t *testing.T) {
		f := newFixture()
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 101, Score: 64, Tier: domain.TierLikely})
		f.matches.seed(domain.Match{ProjectID: 2, ProductID: 101, Score: 91, Tier: domain.TierStrong})
		f.matches.seed(domain.Match{ProjectID: 3, ProductID: 102, Score: 80, Tier: domain.TierStrong})

		res, err := f.uc.GetProductMatches(ctx, NewGetMatchesReq(101, 0, 0))
		require.NoError(t, err)

		require.Len(t, res.Matches, 2)
		assert.Equal(t, int64(2), res.Matches[0].ProjectID)
		assert.Equal(t, int64(1), res.Matches[1].ProjectID)
	})

	t.Run("min score filter applies", func(t *testing.T) {
		f := newFixture()
		f.matches.seed(domain.Match{ProjectID: 1, ProductID: 101, Score: 64, Tier: domain.TierLikely})
		f.matches.seed(domain.Match{ProjectID: 2, ProductID: 101, Score: 91, Tier: domain.TierStrong})

		res, err := f.uc.GetProductMatches(ctx, NewGetMatchesReq(101, 80, 0))
		require.NoError(t, err)

		require.Len(t, res.Matches, 1)
		assert.Equal(t, int64(2), res.Matches[0].ProjectID)
	})
}
