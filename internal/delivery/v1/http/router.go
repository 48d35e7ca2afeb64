package http

import (
	_ "github.com/DRSN-tech/match-service/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/match-service/internal/cfg"
	"github.com/DRSN-tech/match-service/internal/usecase"
	"github.com/DRSN-tech/match-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(matchUC usecase.MatchUC, matchingCfg *cfg.MatchingCfg) {
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		matchHandler := NewMatchHandler(matchUC, matchingCfg, r.logger)
		registerMatchRoutes(v1, matchHandler)
	})
}

func registerMatchRoutes(router chi.Router, h *MatchHandler) {
	router.Route("/matches", func(m chi.Router) {
		m.Post("/rebuild", h.rebuildMatches)
	})

	router.Route("/projects/{projectID}/matches", func(pr chi.Router) {
		pr.Get("/", h.getProjectMatches)
		pr.Post("/refresh", h.refreshProjectMatches)
	})

	router.Route("/products/{productID}/matches", func(pr chi.Router) {
		pr.Get("/", h.getProductMatches)
	})
}
