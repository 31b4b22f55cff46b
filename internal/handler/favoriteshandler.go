package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"cointrack/internal/logic"
	"cointrack/internal/svc"
	"cointrack/internal/types"
)

func FavoritesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewFavoritesLogic(r.Context(), svcCtx)
		resp, err := l.Favorites()
		respond(w, r, resp, err)
	}
}

func ToggleFavoriteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ToggleFavoriteRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewFavoritesLogic(r.Context(), svcCtx)
		resp, err := l.Toggle(&req)
		respond(w, r, resp, err)
	}
}

func ReorderFavoritesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ReorderFavoritesRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewFavoritesLogic(r.Context(), svcCtx)
		resp, err := l.Reorder(&req)
		respond(w, r, resp, err)
	}
}
