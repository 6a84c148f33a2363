package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/study-buddy/internal/handler/chat"
	"github.com/zhouzirui/study-buddy/internal/handler/persona"
	middlewarePkg "github.com/zhouzirui/study-buddy/internal/middleware"
	personaModel "github.com/zhouzirui/study-buddy/internal/model/persona"
	chatService "github.com/zhouzirui/study-buddy/internal/service/chat"
	"github.com/zhouzirui/study-buddy/pkg/utils"
)

// NewRouter wires HTTP routes to the session and persona services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, frontendURL string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(frontendURL))

	personaHandler := persona.New(personas)
	chatHandler := chat.New(chatSvc, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
	})

	return r
}
