package api

import (
	"net/http"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/auth"
	"go.uber.org/zap"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Handlers         *Handlers
	AuthHandlers     *AuthHandlers
	CategoryHandlers *CategoryHandlers
	JWTService       *auth.JWTService
	Logger           *zap.Logger
	AllowedOrigin    string
	// BypassHeader is allowed through CORS so browser clients behind a
	// tunnel can send it.
	BypassHeader string
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.AuthMiddleware(cfg.JWTService)
	optionalAuth := middleware.OptionalAuthMiddleware(cfg.JWTService)
	requireAdmin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireRole(auth.RoleAdmin)(h))
	}

	// Auth
	mux.HandleFunc("POST /auth/signup", cfg.AuthHandlers.Signup)
	mux.HandleFunc("POST /auth/login", cfg.AuthHandlers.Login)
	mux.HandleFunc("POST /auth/refresh", cfg.AuthHandlers.Refresh)
	mux.Handle("POST /auth/logout", optionalAuth(http.HandlerFunc(cfg.AuthHandlers.Logout)))
	mux.Handle("GET /auth/me", requireAuth(http.HandlerFunc(cfg.AuthHandlers.Me)))

	// Products
	mux.HandleFunc("GET /products/all", cfg.Handlers.GetProducts)
	mux.HandleFunc("GET /products/{id}", cfg.Handlers.GetProduct)
	mux.Handle("PATCH /products/{id}", requireAdmin(cfg.Handlers.UpdateProduct))

	// Categories
	mux.HandleFunc("GET /categories/all", cfg.CategoryHandlers.ListCategories)
	mux.Handle("POST /categories", requireAdmin(cfg.CategoryHandlers.CreateCategory))
	mux.Handle("DELETE /categories/{id}", requireAdmin(cfg.CategoryHandlers.DeleteCategory))

	// Cart
	mux.Handle("GET /cart", requireAuth(http.HandlerFunc(cfg.Handlers.GetCart)))
	mux.Handle("POST /cart/add", requireAuth(http.HandlerFunc(cfg.Handlers.AddToCart)))
	mux.Handle("DELETE /cart/remove/{productId}", requireAuth(http.HandlerFunc(cfg.Handlers.RemoveFromCart)))
	mux.Handle("PATCH /cart/update/{productId}", requireAuth(http.HandlerFunc(cfg.Handlers.UpdateCartItem)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var handler http.Handler = mux
	handler = middleware.CORS(cfg.AllowedOrigin, cfg.BypassHeader)(handler)
	handler = middleware.Logging(logger)(handler)
	return handler
}
