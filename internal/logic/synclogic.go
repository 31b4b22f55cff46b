package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
)

type SyncLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSyncLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SyncLogic {
	return &SyncLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SyncLogic) Status() (*types.StatusResponse, error) {
	st := l.svcCtx.Engine.Status()
	return &st, nil
}

// loadCtx keeps the request's values but not its deadline: a load started by
// a request runs its full retry schedule even if the request times out.
func (l *SyncLogic) loadCtx() context.Context {
	return context.WithoutCancel(l.ctx)
}

// Refresh runs page 1 of a sync cycle within the request; remaining pages
// continue in the background.
func (l *SyncLogic) Refresh(req *types.RefreshRequest) (*types.RefreshResponse, error) {
	started, err := l.svcCtx.Engine.RequestRefresh(l.loadCtx(), req.Force)
	if err != nil {
		l.Errorf("refresh force=%t err=%v", req.Force, err)
		return nil, err
	}
	return &types.RefreshResponse{Started: started, Status: l.svcCtx.Engine.Status()}, nil
}

func (l *SyncLogic) SetSort(req *types.SortRequest) (*types.StatusResponse, error) {
	sort, err := market.ParseSort(req.Key, req.Direction)
	if err != nil {
		return nil, err
	}
	if err := l.svcCtx.Engine.SetSortOrder(l.loadCtx(), sort); err != nil {
		l.Errorf("sort key=%s dir=%s err=%v", req.Key, req.Direction, err)
		return nil, err
	}
	st := l.svcCtx.Engine.Status()
	return &st, nil
}

func (l *SyncLogic) SetVisibility(req *types.VisibilityRequest) (*types.StatusResponse, error) {
	l.svcCtx.Engine.SetVisible(req.Visible)
	st := l.svcCtx.Engine.Status()
	return &st, nil
}
