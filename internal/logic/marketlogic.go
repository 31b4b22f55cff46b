package logic

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
)

const maxGainers = 50

type MarketLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewMarketLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MarketLogic {
	return &MarketLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *MarketLogic) Listing() (*types.ListingResponse, error) {
	listing := l.svcCtx.Engine.Listing()
	return &listing, nil
}

// UpdateListing applies the search, page size and page commands, in that order.
func (l *MarketLogic) UpdateListing(req *types.ListingRequest) (*types.ListingResponse, error) {
	eng := l.svcCtx.Engine
	if req.Search != nil {
		eng.SetSearchFilter(*req.Search)
	}
	if req.PageSize > 0 {
		if _, err := eng.SetPageSize(req.PageSize); err != nil {
			return nil, err
		}
	}
	if req.Page > 0 {
		eng.SetPage(req.Page)
	}
	listing := eng.Listing()
	return &listing, nil
}

func (l *MarketLogic) Stats() (*types.MarketStatsResponse, error) {
	stats := l.svcCtx.Engine.MarketStats()
	return &stats, nil
}

func (l *MarketLogic) Gainers(req *types.GainersRequest) (*types.AssetsResponse, error) {
	if req.N <= 0 || req.N > maxGainers {
		return nil, fmt.Errorf("n must be within 1..%d", maxGainers)
	}
	assets := l.svcCtx.Engine.TopGainers(req.N)
	if assets == nil {
		assets = []market.Asset{}
	}
	return &types.AssetsResponse{Assets: assets}, nil
}
