package converter

import "time"

// MatchModel представляет запись таблицы matches в PostgreSQL.
type MatchModel struct {
	ProjectID              int64     `db:"project_id"`
	ProductID              int64     `db:"product_id"`
	Score                  int32     `db:"score"`
	Tier                   string    `db:"tier"`
	Reasons                []byte    `db:"reasons"`
	EvidenceProjectImageID string    `db:"evidence_project_image_id"`
	EvidenceProductImageID string    `db:"evidence_product_image_id"`
	RunID                  string    `db:"run_id"`
	UpdatedAt              time.Time `db:"updated_at"`
}

// RunModel представляет запись таблицы match_runs в PostgreSQL.
type RunModel struct {
	RunID               string     `db:"run_id"`
	Status              string     `db:"status"`
	StartedAt           time.Time  `db:"started_at"`
	CompletedAt         *time.Time `db:"completed_at"`
	ProjectsCount       int32      `db:"projects_count"`
	ProductsCount       int32      `db:"products_count"`
	MatchesUpserted     int32      `db:"matches_upserted"`
	MatchesDeletedStale int32      `db:"matches_deleted_stale"`
	ErrorMessage        *string    `db:"error_message"`
}
