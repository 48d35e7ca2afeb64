package domain

import (
	"math"
	"time"
)

// Tier — дискретный уровень уверенности матча, производный от score.
type Tier string

const (
	TierStrong   Tier = "strong"
	TierLikely   Tier = "likely"
	TierPossible Tier = "possible"
)

// Пороговые значения score для уровней уверенности.
const (
	StrongThreshold   = 80
	LikelyThreshold   = 60
	PossibleThreshold = 40
)

// ReasonEmbeddingSimilarity — единственный сигнал матчинга на данный момент.
const ReasonEmbeddingSimilarity = "embedding_similarity"

// MatchReason описывает один сигнал, внёсший вклад в матч.
type MatchReason struct {
	Kind  string `json:"kind"`
	Score int    `json:"score"`
}

// Match — рекомендованная связь проекта и продукта.
// Уникальный ключ — пара (ProjectID, ProductID).
type Match struct {
	ProjectID              int64
	ProductID              int64
	Score                  int // целое в диапазоне [0, 100]
	Tier                   Tier
	Reasons                []MatchReason
	EvidenceProjectImageID string
	EvidenceProductImageID string
	RunID                  string
	UpdatedAt              time.Time
}

func NewMatch(projectID, productID int64, score int, tier Tier) *Match {
	return &Match{
		ProjectID: projectID,
		ProductID: productID,
		Score:     score,
		Tier:      tier,
		Reasons:   []MatchReason{{Kind: ReasonEmbeddingSimilarity, Score: score}},
	}
}

// ScoreFromSimilarity переводит косинусную близость в целый score [0, 100].
func ScoreFromSimilarity(similarity float64) int {
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	return int(math.Round(similarity * 100))
}

// TierForScore возвращает уровень уверенности для score.
// ok == false означает, что score ниже минимального порога и матч не создаётся.
func TierForScore(score int) (Tier, bool) {
	switch {
	case score >= StrongThreshold:
		return TierStrong, true
	case score >= LikelyThreshold:
		return TierLikely, true
	case score >= PossibleThreshold:
		return TierPossible, true
	default:
		return "", false
	}
}
