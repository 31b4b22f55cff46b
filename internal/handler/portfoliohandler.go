package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"cointrack/internal/logic"
	"cointrack/internal/svc"
	"cointrack/internal/types"
)

func PortfolioHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PortfolioRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewPortfolioLogic(r.Context(), svcCtx)
		resp, err := l.Portfolio(&req)
		respond(w, r, resp, err)
	}
}

func PurchasesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PurchasesRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewPortfolioLogic(r.Context(), svcCtx)
		resp, err := l.Purchases(&req)
		respond(w, r, resp, err)
	}
}

func AddPurchaseHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AddPurchaseRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewPortfolioLogic(r.Context(), svcCtx)
		resp, err := l.AddPurchase(&req)
		respond(w, r, resp, err)
	}
}

func EditPurchaseHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.EditPurchaseRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewPortfolioLogic(r.Context(), svcCtx)
		resp, err := l.EditPurchase(&req)
		respond(w, r, resp, err)
	}
}

func RemovePurchaseHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PurchaseIDRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewPortfolioLogic(r.Context(), svcCtx)
		resp, err := l.RemovePurchase(&req)
		respond(w, r, resp, err)
	}
}
