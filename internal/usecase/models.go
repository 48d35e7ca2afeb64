package usecase

import "time"

// MATCH USECASE

// RebuildRes — итог одного полного пересчёта матчей.
type RebuildRes struct {
	RunID               string
	ProjectsCount       int
	ProductsCount       int
	MatchesUpserted     int
	MatchesDeletedStale int
	Errors              []string
}

// RefreshProjectRes — итог точечного обновления матчей одного проекта.
type RefreshProjectRes struct {
	UpsertedCount int
	Errors        []string
}

// GetMatchesReq — запрос текущих матчей элемента каталога.
type GetMatchesReq struct {
	ItemID   int64
	MinScore int
	Limit    int
}

// MatchInfo — DTO матча для внешнего использования.
type MatchInfo struct {
	ProjectID               int64
	ProductID               int64
	Score                   int
	Tier                    string
	EvidenceProjectImageURL string
	EvidenceProductImageURL string
	UpdatedAt               time.Time
}

// GetMatchesRes — ответ со списком матчей.
type GetMatchesRes struct {
	Matches []MatchInfo
}

// MAPPERS

func NewRebuildRes(runID string) *RebuildRes {
	return &RebuildRes{
		RunID:  runID,
		Errors: make([]string, 0),
	}
}

func NewRefreshProjectRes(upserted int, errs []string) *RefreshProjectRes {
	if errs == nil {
		errs = make([]string, 0)
	}
	return &RefreshProjectRes{
		UpsertedCount: upserted,
		Errors:        errs,
	}
}

func NewGetMatchesReq(itemID int64, minScore, limit int) *GetMatchesReq {
	return &GetMatchesReq{
		ItemID:   itemID,
		MinScore: minScore,
		Limit:    limit,
	}
}

func NewGetMatchesRes(matches []MatchInfo) *GetMatchesRes {
	return &GetMatchesRes{Matches: matches}
}
