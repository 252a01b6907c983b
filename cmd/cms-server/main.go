package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/ettoiadev/williamdiskpizza/docs"
	"github.com/ettoiadev/williamdiskpizza/internal/auth"
	"github.com/ettoiadev/williamdiskpizza/internal/cache"
	"github.com/ettoiadev/williamdiskpizza/internal/config"
	"github.com/ettoiadev/williamdiskpizza/internal/events"
	authhandlers "github.com/ettoiadev/williamdiskpizza/internal/http/handlers/auth"
	"github.com/ettoiadev/williamdiskpizza/internal/http/handlers/content"
	"github.com/ettoiadev/williamdiskpizza/internal/http/handlers/gallery"
	"github.com/ettoiadev/williamdiskpizza/internal/http/handlers/media"
	"github.com/ettoiadev/williamdiskpizza/internal/http/handlers/settings"
	"github.com/ettoiadev/williamdiskpizza/internal/http/handlers/testimonials"
	"github.com/ettoiadev/williamdiskpizza/internal/http/handlers/users"
	"github.com/ettoiadev/williamdiskpizza/internal/http/handlers/ws"
	"github.com/ettoiadev/williamdiskpizza/internal/http/middleware"
	"github.com/ettoiadev/williamdiskpizza/internal/ratelimit"
	"github.com/ettoiadev/williamdiskpizza/internal/services/blob"
	uploadsvc "github.com/ettoiadev/williamdiskpizza/internal/services/media"
	"github.com/ettoiadev/williamdiskpizza/internal/storage/postgres"
	"github.com/ettoiadev/williamdiskpizza/internal/websocket"
)

// @title William Disk Pizza CMS API
// @version 1.0
// @description Content management API for the William Disk Pizza site.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config
	cfg := config.MustLoad()

	// database setup
	storage, err := postgres.NewPostgres(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	slog.Info("Connected to Postgres database")

	// object storage
	blobs, err := blob.NewStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}
	slog.Info("Connected to object storage")

	// cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cached := cache.NewService(storage, redisClient)

	// 5 login attempts per client address, refilled each minute
	loginLimiter := ratelimit.NewLimiter(redisClient, 5, 5)

	// change events
	hub := websocket.NewHub()
	go hub.Run()
	publisher := events.NewEventPublisher(hub)

	// auth
	provider := auth.NewLocalProvider(storage, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	manager := auth.NewManager(provider, storage,
		auth.WithProfileTimeout(cfg.Auth.ProfileTimeout),
		auth.WithWatchdogTimeout(cfg.Auth.WatchdogTimeout),
	)
	manager.Start(context.Background())
	defer manager.Close()

	// upload pipeline
	uploads := uploadsvc.NewService(blobs, storage, cfg.Upload)

	// setup server
	router := http.NewServeMux()

	authed := middleware.AuthMiddleware(cfg.Auth.JWTSecret)
	adminOnly := middleware.RequireAdmin(storage)

	protect := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(adminOnly(h))
	}

	router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// public site surface
	router.HandleFunc("GET /api/content", content.GetAll(cached))
	router.HandleFunc("GET /api/content/{section}", content.GetSection(cached))
	router.HandleFunc("GET /api/content/{section}/{key}", content.GetByKey(storage))
	router.HandleFunc("GET /api/gallery", gallery.List(storage, cached))
	router.HandleFunc("GET /api/testimonials", testimonials.List(storage, cached))
	router.HandleFunc("GET /api/settings", settings.List(storage, cached))
	router.HandleFunc("GET /api/settings/{key}", settings.Get(storage))

	// auth
	router.HandleFunc("POST /api/auth/login", authhandlers.Login(manager, loginLimiter))
	router.Handle("POST /api/auth/logout", protect(authhandlers.Logout(manager)))
	router.Handle("GET /api/auth/me", protect(authhandlers.Me(storage)))
	router.Handle("PUT /api/auth/password", protect(authhandlers.UpdatePassword(provider)))

	// admin mutations
	router.Handle("PUT /api/content", protect(content.Upsert(storage, cached, publisher)))
	router.Handle("DELETE /api/content/{section}/{key}", protect(content.Delete(storage, cached, publisher)))

	router.Handle("POST /api/gallery", protect(gallery.Create(storage, cached, publisher)))
	router.Handle("PUT /api/gallery/{id}", protect(gallery.Update(storage, cached, publisher)))
	router.Handle("PATCH /api/gallery/{id}/active", protect(gallery.SetActive(storage, cached, publisher)))
	router.Handle("POST /api/gallery/reorder", protect(gallery.Reorder(storage, cached, publisher)))
	router.Handle("DELETE /api/gallery/{id}", protect(gallery.Delete(storage, cached, publisher)))

	router.Handle("GET /api/testimonials/stats", protect(testimonials.Stats(storage)))
	router.Handle("POST /api/testimonials", protect(testimonials.Create(storage, cached, publisher)))
	router.Handle("PUT /api/testimonials/{id}", protect(testimonials.Update(storage, cached, publisher)))
	router.Handle("PATCH /api/testimonials/{id}/active", protect(testimonials.SetActive(storage, cached, publisher)))
	router.Handle("POST /api/testimonials/reorder", protect(testimonials.Reorder(storage, cached, publisher)))
	router.Handle("DELETE /api/testimonials/{id}", protect(testimonials.Delete(storage, cached, publisher)))

	router.Handle("PUT /api/settings", protect(settings.Upsert(storage, cached, publisher)))
	router.Handle("PUT /api/settings/batch", protect(settings.UpsertBatch(storage, cached, publisher)))
	router.Handle("DELETE /api/settings/{key}", protect(settings.Delete(storage, cached, publisher)))

	router.Handle("POST /api/media/upload", protect(media.Upload(uploads, publisher)))
	router.Handle("GET /api/media", protect(media.List(storage)))
	router.Handle("GET /api/media/stats", protect(media.Stats(storage)))
	router.Handle("GET /api/media/{id}", protect(media.Get(storage)))
	router.Handle("PATCH /api/media/{id}", protect(media.Update(storage)))
	router.Handle("DELETE /api/media/{id}", protect(media.Delete(uploads, storage, publisher)))

	// user management requires the admin role, not just a session
	router.Handle("GET /api/users", admin(users.List(storage)))
	router.Handle("POST /api/functions/manage-users", admin(users.Manage(storage)))

	// change event stream
	router.HandleFunc("GET /api/ws", ws.Serve(hub, cfg.Auth.JWTSecret))

	router.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTPServer.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})(router)

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: handler,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
