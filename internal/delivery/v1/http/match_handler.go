package http

import (
	"net/http"

	"github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/internal/usecase"
	"github.com/DRSN-tech/match-service/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type MatchHandler struct {
	matchUsecase usecase.MatchUC
	matchingCfg  *cfg.MatchingCfg
	logger       logger.Logger
}

func NewMatchHandler(matchUsecase usecase.MatchUC, matchingCfg *cfg.MatchingCfg, logger logger.Logger) *MatchHandler {
	return &MatchHandler{matchUsecase: matchUsecase, matchingCfg: matchingCfg, logger: logger}
}

// rebuildMatches
//
//	@Summary		Полный пересчёт матчей
//	@Description	Пересчитывает матчи всех проектов по всем продуктам. В один момент времени идёт не более одного пересчёта.
//	@Tags			matches
//	@Produce		json
//	@Success		200	{object}	RebuildResponse	"Итоги пересчёта"
//	@Failure		409	{object}	ErrorResponse	"Пересчёт уже идёт"
//	@Failure		500	{object}	ErrorResponse	"Внутренняя ошибка"
//	@Router			/matches/rebuild [post]
func (h *MatchHandler) rebuildMatches(w http.ResponseWriter, r *http.Request) {
	res, err := h.matchUsecase.RebuildAll(r.Context())
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRebuildResponse(res))
}

// refreshProjectMatches
//
//	@Summary		Точечное обновление матчей проекта
//	@Description	Пересчитывает матчи одного проекта по всем продуктам, не трогая остальные проекты.
//	@Tags			matches
//	@Produce		json
//	@Param			projectID	path		int				true	"ID проекта"
//	@Success		200			{object}	RefreshResponse	"Итоги обновления"
//	@Failure		400			{object}	ErrorResponse	"Некорректный ID проекта"
//	@Failure		409			{object}	ErrorResponse	"Идёт полный пересчёт"
//	@Router			/projects/{projectID}/matches/refresh [post]
func (h *MatchHandler) refreshProjectMatches(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseItemID(chi.URLParam(r, "projectID"))
	if err != nil {
		h.logger.Warnf("%d invalid project id: %s", http.StatusBadRequest, chi.URLParam(r, "projectID"))
		WriteError(w, err)
		return
	}

	res, err := h.matchUsecase.RefreshProject(r.Context(), projectID)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRefreshResponse(res))
}

// getProjectMatches
//
//	@Summary		Матчи проекта
//	@Description	Возвращает текущие матчи проекта, отсортированные по убыванию score.
//	@Tags			matches
//	@Produce		json
//	@Param			projectID	path		int		true	"ID проекта"
//	@Param			min_score	query		number	false	"Минимальный score [0, 100]"
//	@Param			limit		query		int		false	"Максимум матчей в ответе"
//	@Success		200			{object}	MatchListResponse	"Список матчей"
//	@Failure		400			{object}	ErrorResponse		"Ошибка валидации"
//	@Router			/projects/{projectID}/matches [get]
func (h *MatchHandler) getProjectMatches(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseGetMatchesReq(r, "projectID")
	if err != nil {
		h.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	res, err := h.matchUsecase.GetProjectMatches(r.Context(), req)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toMatchListResponse(res))
}

// getProductMatches
//
//	@Summary		Матчи продукта
//	@Description	Возвращает проекты, для которых продукт входит в текущие матчи.
//	@Tags			matches
//	@Produce		json
//	@Param			productID	path		int		true	"ID продукта"
//	@Param			min_score	query		number	false	"Минимальный score [0, 100]"
//	@Param			limit		query		int		false	"Максимум матчей в ответе"
//	@Success		200			{object}	MatchListResponse	"Список матчей"
//	@Failure		400			{object}	ErrorResponse		"Ошибка валидации"
//	@Router			/products/{productID}/matches [get]
func (h *MatchHandler) getProductMatches(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseGetMatchesReq(r, "productID")
	if err != nil {
		h.logger.Warnf("%d %s", http.StatusBadRequest, err.Error())
		WriteError(w, err)
		return
	}

	res, err := h.matchUsecase.GetProductMatches(r.Context(), req)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toMatchListResponse(res))
}

func (h *MatchHandler) parseGetMatchesReq(r *http.Request, idParam string) (*usecase.GetMatchesReq, error) {
	itemID, err := parseItemID(chi.URLParam(r, idParam))
	if err != nil {
		return nil, err
	}

	minScore, err := parseMinScore(r.URL.Query().Get("min_score"))
	if err != nil {
		return nil, err
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"), h.matchingCfg.DefaultMatchLimit)
	if err != nil {
		return nil, err
	}

	return usecase.NewGetMatchesReq(itemID, minScore, limit), nil
}
