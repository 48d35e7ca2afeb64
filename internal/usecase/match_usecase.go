package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/DRSN-tech/match-service/pkg/jitter"
	"github.com/DRSN-tech/match-service/pkg/logger"
	"github.com/google/uuid"
)

// Количество первых ошибок, попадающих в error_message журнала пересчётов.
const runErrorsInMessage = 3

// MatchUseCase реализует пересчёт и выдачу визуальных матчей проект-продукт.
// Это единственный компонент с побочными эффектами: агрегатор и матчер —
// чистые преобразования данных в памяти.
type MatchUseCase struct {
	embeddingRepo EmbeddingRepository
	catalogRepo   CatalogRepository
	matchRepo     MatchRepository
	runRepo       RunRepository
	lockRepo      LockRepository
	cacheRepo     CacheRepository
	imageLinker   ImageLinker
	producer      EventProducer
	txRunner      TxRunner
	logger        logger.Logger
	cfg           *cfg.MatchingCfg
}

func NewMatchUC(
	embeddingRepo EmbeddingRepository,
	catalogRepo CatalogRepository,
	matchRepo MatchRepository,
	runRepo RunRepository,
	lockRepo LockRepository,
	cacheRepo CacheRepository,
	imageLinker ImageLinker,
	producer EventProducer,
	txRunner TxRunner,
	logger logger.Logger,
	cfg *cfg.MatchingCfg,
) *MatchUseCase {
	return &MatchUseCase{
		embeddingRepo: embeddingRepo,
		catalogRepo:   catalogRepo,
		matchRepo:     matchRepo,
		runRepo:       runRepo,
		lockRepo:      lockRepo,
		cacheRepo:     cacheRepo,
		imageLinker:   imageLinker,
		producer:      producer,
		txRunner:      txRunner,
		logger:        logger,
		cfg:           cfg,
	}
}

// RebuildAll выполняет полный пересчёт матчей под эксклюзивной блокировкой.
// Ошибки отдельных строк накапливаются в результате и не прерывают пересчёт;
// фатальна только невозможность получить исходные данные.
func (m *MatchUseCase) RebuildAll(ctx context.Context) (*RebuildRes, error) {
	const op = "MatchUseCase.RebuildAll"

	release, ok, err := m.lockRepo.TryLockRebuild(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !ok {
		return nil, e.Wrap(op, e.ErrRebuildInProgress)
	}
	defer release()

	run := domain.NewRun(uuid.NewString())
	m.createRun(ctx, run)

	res, err := m.rebuild(ctx, run.RunID)
	if err != nil {
		m.finishRun(ctx, run, nil, err)
		return nil, e.Wrap(op, err)
	}

	m.finishRun(ctx, run, res, nil)

	// Событие о завершении — строго best-effort: матчи уже записаны.
	if err := m.producer.PublishRebuildCompleted(ctx, res); err != nil {
		m.logger.Warnf("Failed to publish rebuild event: %v", e.Wrap(op, err))
	}

	return res, nil
}

// rebuild — тело пересчёта: агрегация, матчинг, чистка, запись.
func (m *MatchUseCase) rebuild(ctx context.Context, runID string) (*RebuildRes, error) {
	const op = "MatchUseCase.rebuild"

	res := NewRebuildRes(runID)

	embeddings, err := m.fetchEmbeddings(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	projects, products := aggregateEmbeddings(embeddings)

	projectIDs, err := m.catalogRepo.GetProjectIDs(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	productIDs, err := m.catalogRepo.GetProductIDs(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	projects = filterByMembership(projects, projectIDs)
	products = filterByMembership(products, productIDs)
	res.ProjectsCount = len(projects)
	res.ProductsCount = len(products)

	candidates := matchAll(projects, products, m.cfg.TopNPerProject)

	// Устаревшие строки: элемент пары покинул каталог. Независимо от run_id.
	m.deleteStale(ctx, res, projectIDs, productIDs)

	now := time.Now().UTC()
	for i := range candidates {
		candidates[i].RunID = runID
		candidates[i].UpdatedAt = now

		if err := m.matchRepo.Upsert(ctx, &candidates[i]); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"upsert (%d, %d): %v", candidates[i].ProjectID, candidates[i].ProductID, err))
			continue
		}
		res.MatchesUpserted++
	}

	// Вытеснение предыдущих запусков: только для проектов, попавших в этот запуск.
	// Проекты без эмбеддингов не трогаем — их прошлые матчи остаются в силе.
	for _, projectID := range sortedIDs(projects) {
		if _, err := m.matchRepo.DeleteSuperseded(ctx, projectID, runID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("supersede project %d: %v", projectID, err))
		}
	}

	// Сброс кэша обработанных проектов: их выдача могла измениться.
	if err := m.cacheRepo.DeleteProjects(ctx, sortedIDs(projects)); err != nil {
		m.logger.Warnf("Failed to invalidate match cache: %v", e.Wrap(op, err))
	}

	return res, nil
}

// RefreshProject точечно пересчитывает матчи одного проекта после изменения его
// фотографий. Берёт разделяемую блокировку (совместимую с другими обновлениями,
// но не с полным пересчётом), не создаёт запись журнала и не выполняет
// глобальную чистку. Запись выполняется атомарно в одной транзакции.
func (m *MatchUseCase) RefreshProject(ctx context.Context, projectID int64) (*RefreshProjectRes, error) {
	const op = "MatchUseCase.RefreshProject"

	release, ok, err := m.lockRepo.TryLockRefresh(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !ok {
		return nil, e.Wrap(op, e.ErrRebuildInProgress)
	}
	defer release()

	embeddings, err := m.fetchEmbeddings(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	projects, products := aggregateEmbeddings(embeddings)

	projectIDs, err := m.catalogRepo.GetProjectIDs(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	productIDs, err := m.catalogRepo.GetProductIDs(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	projects = filterByMembership(projects, projectIDs)
	products = filterByMembership(products, productIDs)

	projectAgg, ok := projects[projectID]
	if !ok {
		// У проекта нет эмбеддингов либо он покинул каталог: писать нечего,
		// прошлые матчи (если были) остаются до полного пересчёта.
		return NewRefreshProjectRes(0, nil), nil
	}

	candidates := matchAll(
		map[int64]*domain.ItemAggregate{projectID: projectAgg},
		products,
		m.cfg.TopNPerProject,
	)

	runID := uuid.NewString()
	if err := m.writeProjectMatches(ctx, projectID, runID, candidates); err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := m.cacheRepo.DeleteProjects(ctx, []int64{projectID}); err != nil {
		m.logger.Warnf("Failed to invalidate match cache for project %d: %v", projectID, e.Wrap(op, err))
	}

	return NewRefreshProjectRes(len(candidates), nil), nil
}

// writeProjectMatches записывает матчи проекта и вытесняет его старые строки
// в одной транзакции: точечное обновление либо применяется целиком, либо никак.
func (m *MatchUseCase) writeProjectMatches(ctx context.Context, projectID int64, runID string, matches []domain.Match) error {
	const op = "MatchUseCase.writeProjectMatches"

	err := m.txRunner.InTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		for i := range matches {
			matches[i].RunID = runID
			matches[i].UpdatedAt = now

			if err := m.matchRepo.Upsert(ctx, &matches[i]); err != nil {
				return err
			}
		}

		_, err := m.matchRepo.DeleteSuperseded(ctx, projectID, runID)
		return err
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// GetProjectMatches возвращает текущие матчи проекта с учётом кэша,
// отфильтрованные по минимальному score и лимиту.
func (m *MatchUseCase) GetProjectMatches(ctx context.Context, req *GetMatchesReq) (*GetMatchesRes, error) {
	const op = "MatchUseCase.GetProjectMatches"

	matches, found, err := m.cacheRepo.GetProjectMatches(ctx, req.ItemID)
	if err != nil {
		m.logger.Warnf("Match cache read failed: %v", e.Wrap(op, err))
		found = false
	}

	if !found {
		matches, err = m.matchRepo.GetForProject(ctx, req.ItemID)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		// Фоновое наполнение кэша
		toCache := matches
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			if err := m.cacheRepo.SetProjectMatches(bgCtx, req.ItemID, toCache); err != nil {
				m.logger.Warnf("Failed to cache project matches in background: %v", e.Wrap(op, err))
			}
		}()
	}

	return m.buildMatchesRes(ctx, matches, req), nil
}

// GetProductMatches возвращает текущие матчи продукта (без кэширования:
// витрина продукта запрашивается реже, чем страница проекта).
func (m *MatchUseCase) GetProductMatches(ctx context.Context, req *GetMatchesReq) (*GetMatchesRes, error) {
	const op = "MatchUseCase.GetProductMatches"

	matches, err := m.matchRepo.GetForProduct(ctx, req.ItemID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return m.buildMatchesRes(ctx, matches, req), nil
}

// buildMatchesRes фильтрует выдачу по score и лимиту и подставляет ссылки
// на изображения-доказательства. Ссылки — best-effort: пустая строка при сбое.
func (m *MatchUseCase) buildMatchesRes(ctx context.Context, matches []domain.Match, req *GetMatchesReq) *GetMatchesRes {
	limit := req.Limit
	if limit <= 0 {
		limit = m.cfg.DefaultMatchLimit
	}

	infos := make([]MatchInfo, 0, limit)
	for _, match := range matches {
		if match.Score < req.MinScore {
			continue
		}
		if len(infos) >= limit {
			break
		}

		infos = append(infos, MatchInfo{
			ProjectID:               match.ProjectID,
			ProductID:               match.ProductID,
			Score:                   match.Score,
			Tier:                    string(match.Tier),
			EvidenceProjectImageURL: m.resolveImageURL(ctx, match.EvidenceProjectImageID),
			EvidenceProductImageURL: m.resolveImageURL(ctx, match.EvidenceProductImageID),
			UpdatedAt:               match.UpdatedAt,
		})
	}

	return NewGetMatchesRes(infos)
}

func (m *MatchUseCase) resolveImageURL(ctx context.Context, imageID string) string {
	if imageID == "" {
		return ""
	}

	url, err := m.imageLinker.ResolveURL(ctx, imageID)
	if err != nil {
		m.logger.Warnf("Failed to resolve evidence image %s: %v", imageID, err)
		return ""
	}

	return url
}

// fetchEmbeddings читает все эмбеддинги с повторами и экспоненциальной задержкой:
// полное чтение коллекции — единственный невосполнимый шаг пересчёта.
func (m *MatchUseCase) fetchEmbeddings(ctx context.Context) ([]domain.ImageEmbedding, error) {
	const (
		op         = "MatchUseCase.fetchEmbeddings"
		maxRetries = 3
	)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		embeddings, err := m.embeddingRepo.FetchAll(ctx)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err

		if attempt == maxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(m.cfg.FetchRetryBase, m.cfg.FetchRetryMax, attempt, jitter.DefaultJitter)
		m.logger.Warnf("Embedding fetch failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, lastErr)
}

// deleteStale удаляет матчи, ссылающиеся на элементы вне текущего каталога.
// Каждая неудача — нефатальная ошибка строки.
func (m *MatchUseCase) deleteStale(ctx context.Context, res *RebuildRes, projectIDs, productIDs []int64) {
	const op = "MatchUseCase.deleteStale"

	existing, err := m.matchRepo.GetAll(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("fetch existing matches: %v", err))
		return
	}

	projects := make(map[int64]struct{}, len(projectIDs))
	for _, id := range projectIDs {
		projects[id] = struct{}{}
	}
	products := make(map[int64]struct{}, len(productIDs))
	for _, id := range productIDs {
		products[id] = struct{}{}
	}

	for _, match := range existing {
		_, projectOK := projects[match.ProjectID]
		_, productOK := products[match.ProductID]
		if projectOK && productOK {
			continue
		}

		if err := m.matchRepo.Delete(ctx, match.ProjectID, match.ProductID); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"delete stale (%d, %d): %v", match.ProjectID, match.ProductID, err))
			continue
		}
		res.MatchesDeletedStale++
	}
}

// createRun заводит запись журнала. Отсутствие или недоступность журнала
// не должны блокировать пересчёт, поэтому ошибка только логируется.
func (m *MatchUseCase) createRun(ctx context.Context, run *domain.Run) {
	if err := m.runRepo.Create(ctx, run); err != nil {
		m.logger.Warnf("Failed to create run record %s: %v", run.RunID, err)
	}
}

// finishRun один раз переводит запись журнала в терминальный статус.
func (m *MatchUseCase) finishRun(ctx context.Context, run *domain.Run, res *RebuildRes, runErr error) {
	now := time.Now().UTC()
	run.CompletedAt = &now

	if runErr != nil {
		run.Status = domain.RunFailed
		msg := runErr.Error()
		run.ErrorMessage = &msg
	} else {
		run.Status = domain.RunCompleted
		run.ProjectsCount = res.ProjectsCount
		run.ProductsCount = res.ProductsCount
		run.MatchesUpserted = res.MatchesUpserted
		run.MatchesDeletedStale = res.MatchesDeletedStale

		if len(res.Errors) > 0 {
			head := res.Errors
			if len(head) > runErrorsInMessage {
				head = head[:runErrorsInMessage]
			}
			msg := strings.Join(head, "; ")
			run.ErrorMessage = &msg
		}
	}

	if err := m.runRepo.Finish(ctx, run); err != nil {
		m.logger.Warnf("Failed to finish run record %s: %v", run.RunID, err)
	}
}
