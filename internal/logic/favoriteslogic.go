package logic

import (
	"context"
	"errors"

	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
)

type FavoritesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewFavoritesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *FavoritesLogic {
	return &FavoritesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *FavoritesLogic) Favorites() (*types.FavoritesResponse, error) {
	return l.response(), nil
}

func (l *FavoritesLogic) Toggle(req *types.ToggleFavoriteRequest) (*types.ToggleFavoriteResponse, error) {
	added, err := l.svcCtx.Engine.ToggleFavorite(l.ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	return &types.ToggleFavoriteResponse{Favorite: added, IDs: nonNil(l.svcCtx.Engine.Favorites())}, nil
}

func (l *FavoritesLogic) Reorder(req *types.ReorderFavoritesRequest) (*types.FavoritesResponse, error) {
	eng := l.svcCtx.Engine
	switch {
	case req.From != nil && req.To != nil:
		eng.MoveFavorite(l.ctx, *req.From, *req.To)
	case req.IDs != nil:
		if err := eng.ReorderFavorites(l.ctx, req.IDs); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("either ids or from/to is required")
	}
	return l.response(), nil
}

func (l *FavoritesLogic) response() *types.FavoritesResponse {
	assets := l.svcCtx.Engine.FavoriteAssets()
	if assets == nil {
		assets = []market.Asset{}
	}
	return &types.FavoritesResponse{IDs: nonNil(l.svcCtx.Engine.Favorites()), Assets: assets}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
