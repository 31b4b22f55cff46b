package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"cointrack/internal/logic"
	"cointrack/internal/svc"
	"cointrack/internal/types"
)

func StatusHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewSyncLogic(r.Context(), svcCtx)
		resp, err := l.Status()
		respond(w, r, resp, err)
	}
}

func RefreshHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RefreshRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewSyncLogic(r.Context(), svcCtx)
		resp, err := l.Refresh(&req)
		respond(w, r, resp, err)
	}
}

func SortHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SortRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewSyncLogic(r.Context(), svcCtx)
		resp, err := l.SetSort(&req)
		respond(w, r, resp, err)
	}
}

func VisibilityHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.VisibilityRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewSyncLogic(r.Context(), svcCtx)
		resp, err := l.SetVisibility(&req)
		respond(w, r, resp, err)
	}
}
