package domain

import "time"

// RunStatus — статус одного запуска полного пересчёта.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run — запись журнала пересчётов. Создаётся в начале запуска и обновляется
// ровно один раз по его завершении (успешном или нет).
type Run struct {
	RunID               string
	Status              RunStatus
	StartedAt           time.Time
	CompletedAt         *time.Time
	ProjectsCount       int
	ProductsCount       int
	MatchesUpserted     int
	MatchesDeletedStale int
	ErrorMessage        *string
}

func NewRun(runID string) *Run {
	return &Run{
		RunID:     runID,
		Status:    RunStarted,
		StartedAt: time.Now().UTC(),
	}
}
