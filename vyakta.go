// Package vyakta is a blog content-management backend built with Go, Echo
// and SQLite. It serves a JSON API for admins and editors, public listings,
// and RSS, sitemap and robots projections of published content.
//
// Every post save runs the same pipeline: slug and excerpt derivation,
// reading time, publish bookkeeping and an SEO score. Category post counts
// are refreshed in the background from an outbox written with each post.
package vyakta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/parth-105/Vyakta/media"
	"github.com/parth-105/Vyakta/search"
	"github.com/parth-105/Vyakta/seo"
)

// App is the central Vyakta application. It wires together the store,
// search index, background workers, service, handlers and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Log     *zap.Logger
	Store   *Store
	Index   *search.Index
	Service *Service

	recounter    *Recounter
	views        *ViewCounter
	loginLimiter *LoginLimiter
	media        media.Host
	now          func() time.Time
	customRoutes []func(*App)
	ready        bool
}

// New creates an App with the given configuration and logger.
func New(cfg SiteConfig, log *zap.Logger, opts ...Option) *App {
	cfg.setDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
		Log:    log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Setup opens the store and search index, starts the background workers,
// bootstraps the admin account and registers middleware and routes.
func (a *App) Setup(ctx context.Context) error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("vyakta: invalid config: %w", err)
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("vyakta: init store: %w", err)
	}
	a.Store = store

	if a.Config.SearchIndexPath == "memory" {
		a.Index, err = search.OpenMemory()
	} else {
		a.Index, err = search.Open(a.Config.SearchIndexPath)
	}
	if err != nil {
		return fmt.Errorf("vyakta: init search index: %w", err)
	}

	if a.media == nil {
		a.media, err = newMediaHost(a.Config.Media)
		if err != nil {
			return fmt.Errorf("vyakta: init media host: %w", err)
		}
	}

	a.recounter = NewRecounter(a.Store, a.Log.Named("recount"), a.Config.RecountInterval)
	a.views = NewViewCounter(a.Store, a.Log.Named("views"), a.Config.ViewBuffer)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	a.Service = &Service{
		Store:     a.Store,
		Index:     a.Index,
		Recounter: a.recounter,
		Views:     a.views,
		Cache:     NewFeedCache(a.Store, a.Config.FeedCacheTTL),
		Media:     a.media,
		Site:      seo.Site{Name: a.Config.Name, URL: a.Config.URL, Description: a.Config.Description, Author: a.Config.Author},
		Log:       a.Log,
		Now:       a.now,
	}

	created, err := a.Service.EnsureAdmin(ctx, a.Config.AdminEmail, a.Config.AdminPassword)
	if err != nil {
		return fmt.Errorf("vyakta: bootstrap admin: %w", err)
	}
	if created {
		a.Log.Info("created bootstrap admin", zap.String("email", a.Config.AdminEmail))
	}

	a.recounter.Start()
	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

func newMediaHost(cfg MediaConfig) (media.Host, error) {
	if cfg.Provider == "cloudinary" {
		return media.NewCloudinary(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	}
	return media.NewLocal(cfg.UploadDir, "/uploads"), nil
}

// Start runs Setup when needed and serves HTTP until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	a.Log.Info("listening", zap.String("addr", a.Config.Addr))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/rss.xml", a.handleFeed)
	if local, ok := a.media.(*media.Local); ok {
		e.Static("/uploads", local.Dir)
	}

	api := e.Group("/api")
	api.GET("/site", a.handleSite)
	api.GET("/posts", a.handleListPosts)
	api.GET("/posts/trending", a.handleTrendingPosts)
	api.GET("/posts/:slug", a.handleGetPost)
	api.GET("/categories", a.handleListCategories)
	api.GET("/categories/:id", a.handleGetCategory)

	api.GET("/auth/csrf", handleCSRF)
	api.POST("/auth/login", a.handleLogin)
	api.POST("/auth/logout", handleLogout)
	api.GET("/auth/me", handleMe, a.requireAuth)

	authed := api.Group("", a.requireAuth)
	authed.POST("/posts", a.handleCreatePost)
	authed.PUT("/posts/:slug", a.handleUpdatePost)
	authed.DELETE("/posts/:slug", a.handleDeletePost)
	authed.POST("/categories", a.handleCreateCategory)
	authed.PUT("/categories/:id", a.handleUpdateCategory)
	authed.DELETE("/categories/:id", a.handleDeleteCategory)
	authed.POST("/upload", a.handleImageUpload)

	admin := api.Group("/admin", a.requireAuth)
	admin.GET("/dashboard", a.handleDashboard)
	admin.GET("/posts", a.handleAdminListPosts)
	admin.GET("/posts/:slug", a.handleAdminGetPost)
	admin.GET("/posts/:slug/preview", a.handleAdminPreview)
	admin.POST("/seo/score", a.handleScorePreview)
	admin.GET("/images", a.handleImageList)
	admin.DELETE("/images/*", a.handleImageDelete)
}

// Close stops the background workers and releases the store and index.
// Queued view increments and recounts are flushed first.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.recounter != nil {
		a.recounter.Stop()
	}
	if a.views != nil {
		a.views.Close()
	}
	if a.recounter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.recounter.Drain(ctx); err != nil {
			a.Log.Warn("final recount pass", zap.Error(err))
		}
		cancel()
	}
	var errs []error
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	_ = a.Log.Sync()
	return errors.Join(errs...)
}
