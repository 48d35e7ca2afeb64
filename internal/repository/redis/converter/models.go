package converter

import "time"

// MatchReasonRedisModel — сигнал матча в кэшируемом представлении.
type MatchReasonRedisModel struct {
	Kind  string `json:"kind"`
	Score int    `json:"score"`
}

// MatchRedisModel — кэшируемое представление матча проекта.
type MatchRedisModel struct {
	ProjectID              int64                   `json:"project_id"`
	ProductID              int64                   `json:"product_id"`
	Score                  int                     `json:"score"`
	Tier                   string                  `json:"tier"`
	Reasons                []MatchReasonRedisModel `json:"reasons"`
	EvidenceProjectImageID string                  `json:"evidence_project_image_id"`
	EvidenceProductImageID string                  `json:"evidence_product_image_id"`
	RunID                  string                  `json:"run_id"`
	UpdatedAt              time.Time               `json:"updated_at"`
}
