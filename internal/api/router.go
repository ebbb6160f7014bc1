package api

import (
	"net/http"
	"time"

	"globalnews_translator/internal/api/handler"
	"globalnews_translator/internal/api/middleware"
	"globalnews_translator/internal/app/service"
	"globalnews_translator/internal/app/translation"
	"globalnews_translator/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type RouterOptions struct {
	RequestTimeout time.Duration
	// StopTimeout bounds how long POST /pipeline/stop waits for in-flight jobs.
	StopTimeout time.Duration
}

func NewRouter(
	log *zap.Logger,
	issuer *security.TokenIssuer,
	authService *service.AuthService,
	translationService *service.TranslationService,
	gatewayHealth translation.HealthChecker,
	opts RouterOptions,
) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(opts.RequestTimeout))

	// Puts the bearer token, if any, in the request context.
	r.Use(jwtauth.Verifier(issuer.JWTAuth()))

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(gatewayHealth, translationService.PipelineRunning))

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		v1.Group(func(operator chi.Router) {
			operator.Use(middleware.Authenticator)
			operator.Use(middleware.OperatorOnly)

			translationHandler := handler.NewTranslationHandler(translationService)
			operator.Route("/translations", translationHandler.RegisterRoutes)

			pipelineHandler := handler.NewPipelineHandler(translationService, opts.StopTimeout)
			operator.Route("/pipeline", pipelineHandler.RegisterRoutes)
		})
	})

	return r
}
