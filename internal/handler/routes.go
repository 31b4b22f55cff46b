// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"
	"github.com/zeromicro/go-zero/rest/httpx"

	"cointrack/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	httpx.SetErrorHandlerCtx(errorHandler)

	server.AddRoutes(
		[]rest.Route{
			{Method: http.MethodGet, Path: "/assets", Handler: ListingHandler(serverCtx)},
			{Method: http.MethodPost, Path: "/assets/view", Handler: UpdateListingHandler(serverCtx)},
			{Method: http.MethodGet, Path: "/market/stats", Handler: MarketStatsHandler(serverCtx)},
			{Method: http.MethodGet, Path: "/market/gainers", Handler: GainersHandler(serverCtx)},
			{Method: http.MethodGet, Path: "/status", Handler: StatusHandler(serverCtx)},
			{Method: http.MethodPost, Path: "/refresh", Handler: RefreshHandler(serverCtx)},
			{Method: http.MethodPost, Path: "/sort", Handler: SortHandler(serverCtx)},
			{Method: http.MethodPost, Path: "/visibility", Handler: VisibilityHandler(serverCtx)},
			{Method: http.MethodGet, Path: "/portfolio", Handler: PortfolioHandler(serverCtx)},
			{Method: http.MethodGet, Path: "/purchases", Handler: PurchasesHandler(serverCtx)},
			{Method: http.MethodPost, Path: "/purchases", Handler: AddPurchaseHandler(serverCtx)},
			{Method: http.MethodPut, Path: "/purchases/:id", Handler: EditPurchaseHandler(serverCtx)},
			{Method: http.MethodDelete, Path: "/purchases/:id", Handler: RemovePurchaseHandler(serverCtx)},
			{Method: http.MethodGet, Path: "/favorites", Handler: FavoritesHandler(serverCtx)},
			{Method: http.MethodPost, Path: "/favorites/toggle", Handler: ToggleFavoriteHandler(serverCtx)},
			{Method: http.MethodPut, Path: "/favorites", Handler: ReorderFavoritesHandler(serverCtx)},
			{Method: http.MethodGet, Path: "/stream", Handler: StreamHandler(serverCtx)},
		},
		rest.WithPrefix("/api"),
	)
}
