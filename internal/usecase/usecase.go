package usecase

import "context"

type MatchUC interface {
	RebuildAll(ctx context.Context) (*RebuildRes, error)
	RefreshProject(ctx context.Context, projectID int64) (*RefreshProjectRes, error)
	GetProjectMatches(ctx context.Context, req *GetMatchesReq) (*GetMatchesRes, error)
	GetProductMatches(ctx context.Context, req *GetMatchesReq) (*GetMatchesRes, error)
}
