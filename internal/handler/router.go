package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authHandler "github.com/zhouzirui/msl-practice/backend/internal/handler/auth"
	"github.com/zhouzirui/msl-practice/backend/internal/handler/health"
	"github.com/zhouzirui/msl-practice/backend/internal/handler/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/handler/question"
	"github.com/zhouzirui/msl-practice/backend/internal/handler/recording"
	"github.com/zhouzirui/msl-practice/backend/internal/handler/session"
	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	middlewarePkg "github.com/zhouzirui/msl-practice/backend/internal/middleware"
	personaModel "github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	authService "github.com/zhouzirui/msl-practice/backend/internal/service/auth"
	practiceService "github.com/zhouzirui/msl-practice/backend/internal/service/practice"
	questionService "github.com/zhouzirui/msl-practice/backend/internal/service/question"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Auth        *authService.Service
	Personas    personaModel.Store
	Bank        *questionService.Bank
	Sessions    *practiceService.Manager
	Recordings  *practiceService.Pipeline
	CORSOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger.Component("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(d.CORSOrigins))

	authH := authHandler.New(d.Auth)

	r.Route("/api", func(api chi.Router) {
		health.New().RegisterRoutes(api)
		authH.RegisterPublicRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.RequireAuth(d.Auth))

			authH.RegisterRoutes(protected)
			persona.New(d.Personas).RegisterRoutes(protected)
			question.New(d.Bank).RegisterRoutes(protected)
			session.New(d.Sessions).RegisterRoutes(protected)
			recording.New(d.Recordings).RegisterRoutes(protected)
		})
	})

	return r
}
