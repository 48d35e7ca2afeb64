package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/match-service/internal/usecase"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

// MatchResponse — матч в представлении HTTP API.
type MatchResponse struct {
	ProjectID               int64     `json:"project_id"`
	ProductID               int64     `json:"product_id"`
	Score                   int       `json:"score"`
	Tier                    string    `json:"tier"`
	EvidenceProjectImageURL string    `json:"evidence_project_image_url,omitempty"`
	EvidenceProductImageURL string    `json:"evidence_product_image_url,omitempty"`
	UpdatedAt               time.Time `json:"updated_at"`
}

type MatchListResponse struct {
	Matches []MatchResponse `json:"matches"`
}

type RebuildResponse struct {
	RunID               string   `json:"run_id"`
	ProjectsCount       int      `json:"projects_count"`
	ProductsCount       int      `json:"products_count"`
	MatchesUpserted     int      `json:"matches_upserted"`
	MatchesDeletedStale int      `json:"matches_deleted_stale"`
	Errors              []string `json:"errors"`
}

type RefreshResponse struct {
	UpsertedCount int      `json:"upserted_count"`
	Errors        []string `json:"errors"`
}

func toMatchListResponse(res *usecase.GetMatchesRes) *MatchListResponse {
	matches := make([]MatchResponse, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, MatchResponse{
			ProjectID:               m.ProjectID,
			ProductID:               m.ProductID,
			Score:                   m.Score,
			Tier:                    m.Tier,
			EvidenceProjectImageURL: m.EvidenceProjectImageURL,
			EvidenceProductImageURL: m.EvidenceProductImageURL,
			UpdatedAt:               m.UpdatedAt,
		})
	}

	return &MatchListResponse{Matches: matches}
}

func toRebuildResponse(res *usecase.RebuildRes) *RebuildResponse {
	return &RebuildResponse{
		RunID:               res.RunID,
		ProjectsCount:       res.ProjectsCount,
		ProductsCount:       res.ProductsCount,
		MatchesUpserted:     res.MatchesUpserted,
		MatchesDeletedStale: res.MatchesDeletedStale,
		Errors:              res.Errors,
	}
}

func toRefreshResponse(res *usecase.RefreshProjectRes) *RefreshResponse {
	return &RefreshResponse{
		UpsertedCount: res.UpsertedCount,
		Errors:        res.Errors,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrRebuildInProgress):
		return http.StatusConflict, e.ErrRebuildInProgress.Error()
	case errors.Is(err, e.ErrInvalidItemID):
		return http.StatusBadRequest, e.ErrInvalidItemID.Error()
	case errors.Is(err, e.ErrInvalidMinScore):
		return http.StatusBadRequest, e.ErrInvalidMinScore.Error()
	case errors.Is(err, e.ErrInvalidLimit):
		return http.StatusBadRequest, e.ErrInvalidLimit.Error()
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseItemID разбирает идентификатор элемента каталога из URL.
func parseItemID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, e.ErrInvalidItemID
	}

	return id, nil
}

// parseMinScore разбирает порог score из query-параметра.
// Принимает записи вида "60" и "60.0", но требует целого значения [0, 100]:
// score хранится целым, дробный порог не имеет смысла.
func parseMinScore(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, e.ErrInvalidMinScore
	}

	if !d.Equal(d.Truncate(0)) {
		return 0, e.ErrInvalidMinScore
	}

	minScore := d.IntPart()
	if minScore < 0 || minScore > 100 {
		return 0, e.ErrInvalidMinScore
	}

	return int(minScore), nil
}

// parseLimit разбирает лимит выдачи. Пустое значение — лимит по умолчанию.
func parseLimit(s string, defaultLimit int) (int, error) {
	if strings.TrimSpace(s) == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(s)
	if err != nil || limit <= 0 {
		return 0, e.ErrInvalidLimit
	}

	return limit, nil
}
