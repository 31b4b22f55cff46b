package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"cointrack/internal/logic"
	"cointrack/internal/svc"
	"cointrack/internal/types"
)

func ListingHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewMarketLogic(r.Context(), svcCtx)
		resp, err := l.Listing()
		respond(w, r, resp, err)
	}
}

func UpdateListingHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ListingRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewMarketLogic(r.Context(), svcCtx)
		resp, err := l.UpdateListing(&req)
		respond(w, r, resp, err)
	}
}

func MarketStatsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewMarketLogic(r.Context(), svcCtx)
		resp, err := l.Stats()
		respond(w, r, resp, err)
	}
}

func GainersHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GainersRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewMarketLogic(r.Context(), svcCtx)
		resp, err := l.Gainers(&req)
		respond(w, r, resp, err)
	}
}

func respond(w http.ResponseWriter, r *http.Request, resp any, err error) {
	if err != nil {
		httpx.ErrorCtx(r.Context(), w, err)
	} else {
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
