package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/command"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/category"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/projection"
	"github.com/example/ec-storefront/internal/query"
	"go.uber.org/zap"
)

// EventStore is an event store that also fans appended events out to
// in-process subscribers. Both store implementations satisfy it.
type EventStore interface {
	store.EventStoreInterface
	Subscribe(h store.EventHandler)
}

// AppConfig configures NewApp.
type AppConfig struct {
	JWTService    *auth.JWTService
	Hasher        *auth.PasswordHasher
	// Sessions keeps refresh sessions. Nil keeps them in the read store,
	// which does not survive a restart.
	Sessions      store.SessionStore
	Logger        *zap.Logger
	AllowedOrigin string
	BypassHeader  string
}

// App is the wired reference server: domain services over one event store,
// a read store kept current by the projector, and the HTTP router.
type App struct {
	EventStore EventStore
	ReadStore  *store.ReadStore
	Sessions   store.SessionStore
	Projector  *projection.Projector
	Queries    *query.Handler
	Commands   *command.Handler
	Products   *product.Service
	Categories *category.Service
	Carts      *cart.Service
	Users      *user.Service
	Router     http.Handler
}

// NewApp wires the server over es. The projector is subscribed so read
// models are current by the time a write returns.
func NewApp(es EventStore, cfg AppConfig) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	readStore := store.NewReadStore()
	projector := projection.NewProjector(readStore, logger)
	es.Subscribe(projector.Apply)

	sessions := cfg.Sessions
	if sessions == nil {
		sessions = store.NewMemorySessionStore(readStore)
	}

	carts := cart.NewService(es)
	queries := query.NewHandler(readStore, carts)
	products := product.NewService(es)
	categories := category.NewService(es)
	users := user.NewService(es, queries, cfg.Hasher)
	commands := command.NewHandler(products, categories, carts, readStore)

	router := NewRouter(RouterConfig{
		Handlers:         NewHandlers(commands, queries, logger),
		AuthHandlers:     NewAuthHandlers(users, cfg.JWTService, readStore, sessions, logger),
		CategoryHandlers: NewCategoryHandlers(commands, queries, logger),
		JWTService:       cfg.JWTService,
		Logger:           logger,
		AllowedOrigin:    cfg.AllowedOrigin,
		BypassHeader:     cfg.BypassHeader,
	})

	return &App{
		EventStore: es,
		ReadStore:  readStore,
		Sessions:   sessions,
		Projector:  projector,
		Queries:    queries,
		Commands:   commands,
		Products:   products,
		Categories: categories,
		Carts:      carts,
		Users:      users,
		Router:     router,
	}
}

// Replay rebuilds the read models from every stored event.
func (a *App) Replay(ctx context.Context) (int, error) {
	return store.Replay(ctx, a.EventStore, a.Projector.Apply)
}

type seedProduct struct {
	name        string
	description string
	price       float64
	image       string
}

var seedCatalog = map[string][]seedProduct{
	"Electronics": {
		{"Wireless Headphones", "Over-ear, noise cancelling", 129.99, "https://picsum.photos/seed/headphones/400"},
		{"Mechanical Keyboard", "Tenkeyless, brown switches", 89.50, "https://picsum.photos/seed/keyboard/400"},
	},
	"Books": {
		{"The Go Programming Language", "Donovan and Kernighan", 39.95, "https://picsum.photos/seed/gobook/400"},
	},
	"Home": {
		{"Ceramic Mug", "350ml, dishwasher safe", 12.00, "https://picsum.photos/seed/mug/400"},
		{"Desk Lamp", "Dimmable LED", 34.25, "https://picsum.photos/seed/lamp/400"},
	},
}

// SeedCatalog creates sample categories and products when the catalog is
// empty. It reports whether anything was created.
func (a *App) SeedCatalog(ctx context.Context) (bool, error) {
	if len(a.Queries.ListProducts("")) > 0 || len(a.Queries.ListCategories()) > 0 {
		return false, nil
	}

	for _, name := range []string{"Electronics", "Books", "Home"} {
		c, err := a.Commands.CreateCategory(ctx, command.CreateCategory{Name: name})
		if err != nil {
			return false, fmt.Errorf("seed category %s: %w", name, err)
		}
		for _, p := range seedCatalog[name] {
			if _, err := a.Commands.CreateProduct(ctx, command.CreateProduct{
				Name:        p.name,
				Description: p.description,
				Price:       p.price,
				ImageURL:    p.image,
				CategoryID:  c.ID,
			}); err != nil {
				return false, fmt.Errorf("seed product %s: %w", p.name, err)
			}
		}
	}
	return true, nil
}

// EnsureAdmin registers an admin account unless the email is already taken.
func (a *App) EnsureAdmin(ctx context.Context, email, password, name string) error {
	_, err := a.Users.RegisterWithRole(ctx, email, password, name, auth.RoleAdmin)
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}
	return err
}
