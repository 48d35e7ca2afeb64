package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/DRSN-tech/match-service/internal/repository/redis/converter"
	"github.com/DRSN-tech/match-service/pkg/clients"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/DRSN-tech/match-service/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// CacheRepo кэширует списки матчей по проектам. Кэш короткоживущий и
// инвалидируется при каждом пересчёте, поэтому любые ошибки Redis
// трактуются как промах.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.MatchConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.MatchConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetProjectMatches возвращает закэшированные матчи проекта.
// Второе значение false означает промах кэша.
func (c *CacheRepo) GetProjectMatches(ctx context.Context, projectID int64) ([]domain.Match, bool, error) {
	data, err := c.client.Client.Get(ctx, c.projectKey(projectID)).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, false, nil
		}

		c.logger.Warnf("Redis GET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var models []converter.MatchRedisModel
	if err := json.Unmarshal(data, &models); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		if err := c.client.Client.Del(context.Background(), c.projectKey(projectID)).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false, nil
	}

	return c.conv.ToArrEntity(models), true, nil
}

// SetProjectMatches кэширует список матчей проекта с заданным TTL.
// Ошибки записи логируются и не считаются фатальными.
func (c *CacheRepo) SetProjectMatches(ctx context.Context, projectID int64, matches []domain.Match) error {
	data, err := json.Marshal(c.conv.ToArrRedisModel(matches))
	if err != nil {
		c.logger.Warnf("Failed to marshal matches for caching (Project ID: %d): %v", projectID, e.Wrap(whereami.WhereAmI(), err))
		return nil
	}

	if err := c.client.Client.Set(ctx, c.projectKey(projectID), data, c.cfg.MatchTTL).Err(); err != nil {
		c.logger.Warnf("Redis SET failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

// DeleteProjects сбрасывает кэш матчей для перечисленных проектов.
func (c *CacheRepo) DeleteProjects(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.projectKey(id)
	}

	if err := c.client.Client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warnf("Redis DEL failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

// projectKey возвращает Redis-ключ для списка матчей проекта
func (c *CacheRepo) projectKey(id int64) string {
	return fmt.Sprintf("project_matches:%d", id)
}
