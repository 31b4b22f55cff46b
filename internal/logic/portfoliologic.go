package logic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"cointrack/internal/svc"
	"cointrack/internal/types"
	"cointrack/pkg/market"
	"cointrack/pkg/portfolio"
)

type PortfolioLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPortfolioLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PortfolioLogic {
	return &PortfolioLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Portfolio values the ledger. A sort given in the request becomes the stored
// ordering for later requests that name none.
func (l *PortfolioLogic) Portfolio(req *types.PortfolioRequest) (*types.PortfolioResponse, error) {
	if req.SortKey != "" || req.Direction != "" {
		key, err := portfolio.ParsePositionSortKey(req.SortKey)
		if err != nil {
			return nil, err
		}
		dir := market.Desc
		if req.Direction != "" {
			if dir, err = market.ParseDirection(req.Direction); err != nil {
				return nil, err
			}
		}
		l.svcCtx.Engine.SetPositionSort(portfolio.PositionSort{Key: key, Direction: dir})
	}
	positions := l.svcCtx.Engine.SortedPositions()
	if positions == nil {
		positions = []portfolio.Position{}
	}
	return &types.PortfolioResponse{
		Snapshot:  portfolio.Summarize(positions),
		Positions: positions,
	}, nil
}

func (l *PortfolioLogic) Purchases(req *types.PurchasesRequest) (*types.PurchasesResponse, error) {
	key, err := portfolio.ParsePurchaseSortKey(req.SortKey)
	if err != nil {
		return nil, err
	}
	dir, err := market.ParseDirection(req.Direction)
	if err != nil {
		return nil, err
	}
	purchases := l.svcCtx.Engine.Purchases(key, dir)
	if purchases == nil {
		purchases = []portfolio.Purchase{}
	}
	return &types.PurchasesResponse{Purchases: purchases}, nil
}

func (l *PortfolioLogic) AddPurchase(req *types.AddPurchaseRequest) (*types.PurchaseResponse, error) {
	amount, err := parseDecimal("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	price, err := parseDecimal("price", req.Price)
	if err != nil {
		return nil, err
	}
	p := portfolio.Purchase{
		AssetID: strings.TrimSpace(req.AssetID),
		Name:    req.Name,
		Symbol:  req.Symbol,
		Image:   req.Image,
		Amount:  amount,
		Price:   price,
		Notes:   req.Notes,
	}
	if req.Date != "" {
		if p.Date, err = parseDate(req.Date); err != nil {
			return nil, err
		}
	}
	added, err := l.svcCtx.Engine.AddPurchase(l.ctx, p)
	if err != nil {
		return nil, err
	}
	l.Infof("purchase added id=%s asset=%s", added.ID, added.AssetID)
	return &added, nil
}

func (l *PortfolioLogic) EditPurchase(req *types.EditPurchaseRequest) (*types.PurchaseResponse, error) {
	var edit portfolio.PurchaseEdit
	if req.Amount != nil {
		amount, err := parseDecimal("amount", *req.Amount)
		if err != nil {
			return nil, err
		}
		edit.Amount = &amount
	}
	if req.Price != nil {
		price, err := parseDecimal("price", *req.Price)
		if err != nil {
			return nil, err
		}
		edit.Price = &price
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		edit.Date = &date
	}
	edit.Notes = req.Notes
	updated, err := l.svcCtx.Engine.EditPurchase(l.ctx, req.ID, edit)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (l *PortfolioLogic) RemovePurchase(req *types.PurchaseIDRequest) (*types.Empty, error) {
	if err := l.svcCtx.Engine.RemovePurchase(l.ctx, req.ID); err != nil {
		return nil, err
	}
	l.Infof("purchase removed id=%s", req.ID)
	return &types.Empty{}, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q is not a number", portfolio.ErrInvalidPurchase, field, raw)
	}
	return v, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", portfolio.ErrInvalidPurchase, raw)
	}
	return t, nil
}
