package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/mudouban/ai-asks-human/backend/internal/handler/chat"
	scenarioHandler "github.com/mudouban/ai-asks-human/backend/internal/handler/scenario"
	surveyHandler "github.com/mudouban/ai-asks-human/backend/internal/handler/survey"
	middlewarePkg "github.com/mudouban/ai-asks-human/backend/internal/middleware"
	scenarioModel "github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
	"github.com/mudouban/ai-asks-human/backend/internal/service/conversation"
)

// NewRouter wires HTTP routes to core services. relay may be nil when the
// model credentials are absent; scenario and transcript reads keep working.
func NewRouter(scenarios scenarioModel.Store, relay chatHandler.Relay, conversations *conversation.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	scenarioH := scenarioHandler.New(scenarios)
	chatH := chatHandler.New(scenarios, relay, conversations)
	surveyWS := surveyHandler.NewWebSocketHandler(conversations)

	r.Route("/api", func(api chi.Router) {
		scenarioH.RegisterRoutes(api)
		chatH.RegisterRoutes(api)
		surveyWS.RegisterWebSocketRoutes(api)
	})

	return r
}
