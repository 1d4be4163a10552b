package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/strombreaker/widget/internal/events"
	"github.com/zhouzirui/strombreaker/widget/internal/handler/catalog"
	"github.com/zhouzirui/strombreaker/widget/internal/handler/stream"
	"github.com/zhouzirui/strombreaker/widget/internal/handler/widget"
	"github.com/zhouzirui/strombreaker/widget/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/strombreaker/widget/internal/middleware"
	"github.com/zhouzirui/strombreaker/widget/internal/model/activity"
	widgetService "github.com/zhouzirui/strombreaker/widget/internal/service/widget"
	"github.com/zhouzirui/strombreaker/widget/pkg/utils"
)

// NewRouter wires HTTP routes to the widget host.
func NewRouter(widgets *widgetService.Service, bus *events.Bus) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": widgets.Len(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		catalog.New(activity.NewMemoryStore(activity.Seed())).RegisterRoutes(api)
		widget.New(widgets).RegisterRoutes(api)
		stream.New(widgets, bus).RegisterRoutes(api)
		ws.New(widgets, bus).RegisterRoutes(api)
	})

	return r
}
