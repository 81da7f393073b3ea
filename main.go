package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/spf13/afero"

	"pleura/api"
	"pleura/config"
	"pleura/handlers"
	"pleura/services/accounts"
	"pleura/services/search"
	"pleura/services/sessions"
	"pleura/services/tmdb"
	"pleura/services/users"
	"pleura/utils"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()

	cfgManager, err := config.NewManager(*configPath)
	if err != nil {
		log.Fatalf("[main] load config: %v", err)
	}
	cfg := cfgManager.Get()

	setupLogging(cfg)

	if cfg.TMDBAccessToken == "" {
		log.Printf("[main] warning: no TMDB access token configured, content endpoints will fail")
	}

	accountsSvc, err := accounts.NewService(cfg.StorageDir)
	if err != nil {
		log.Fatalf("[main] accounts service: %v", err)
	}
	sessionsSvc, err := sessions.NewService(cfg.StorageDir, cfg.SessionDuration())
	if err != nil {
		log.Fatalf("[main] sessions service: %v", err)
	}
	usersSvc, err := users.NewService(afero.NewOsFs(), cfg.StorageDir)
	if err != nil {
		log.Fatalf("[main] users service: %v", err)
	}

	tmdbClient := tmdb.NewClient(cfg.TMDBAccessToken, cfg.Language, "", nil)
	resolver := search.NewResolver(tmdbClient)

	authHandler := handlers.NewAuthHandler(accountsSvc, sessionsSvc, usersSvc)
	searchHandler := handlers.NewSearchHandler(resolver, cfg.SearchDebounce())
	defer searchHandler.Close()
	homeHandler := handlers.NewHomeHandler(tmdbClient)
	metadataHandler := handlers.NewMetadataHandler(tmdbClient)
	myListHandler := handlers.NewMyListHandler(usersSvc)
	defer myListHandler.Close()
	profileHandler := handlers.NewProfileHandler(usersSvc)

	router := utils.NewRouter()

	// Auth endpoints are rate limited per IP to slow down guessing.
	authLimiter := api.NewIPRateLimiter(rate.Every(time.Minute/time.Duration(cfg.AuthRatePerMinute)), cfg.AuthRateBurst)
	router.HandleFunc("/api/auth/signup", api.RateLimitHandlerFunc(authLimiter, authHandler.SignUp)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/signin", api.RateLimitHandlerFunc(authLimiter, authHandler.SignIn)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/guest", api.RateLimitHandlerFunc(authLimiter, authHandler.Guest)).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/signout", authHandler.SignOut).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/auth/me", authHandler.Me).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/api/auth/refresh", authHandler.Refresh).Methods(http.MethodPost, http.MethodOptions)

	// Password changes need a full (non-guest) account.
	password := router.PathPrefix("/api/auth/password").Subrouter()
	password.Use(api.AccountAuthMiddleware(sessionsSvc), api.AccountOnlyMiddleware())
	password.HandleFunc("", authHandler.ChangePassword).Methods(http.MethodPut, http.MethodOptions)

	// Content browsing requires a valid session.
	content := router.PathPrefix("/api").Subrouter()
	content.Use(api.AccountAuthMiddleware(sessionsSvc))

	content.HandleFunc("/home", homeHandler.Home).Methods(http.MethodGet, http.MethodOptions)

	content.HandleFunc("/search/categories", searchHandler.Categories).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/search/input", searchHandler.Input).Methods(http.MethodPost, http.MethodOptions)
	content.HandleFunc("/search/type", searchHandler.SetType).Methods(http.MethodPost, http.MethodOptions)
	content.HandleFunc("/search/apply", searchHandler.Apply).Methods(http.MethodPost, http.MethodOptions)
	content.HandleFunc("/search/genre", searchHandler.Genre).Methods(http.MethodPost, http.MethodOptions)
	content.HandleFunc("/search/more", searchHandler.More).Methods(http.MethodPost, http.MethodOptions)
	content.HandleFunc("/search/state", searchHandler.State).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/search/clear", searchHandler.Clear).Methods(http.MethodPost, http.MethodOptions)

	content.HandleFunc("/metadata/{mediaType}/{id}", metadataHandler.Details).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/metadata/{mediaType}/{id}/credits", metadataHandler.Credits).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/metadata/{mediaType}/{id}/videos", metadataHandler.Videos).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/metadata/{mediaType}/{id}/recommendations", metadataHandler.Recommendations).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/metadata/{mediaType}/{id}/images", metadataHandler.Images).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/metadata/tv/{id}/season/{season}", metadataHandler.Season).Methods(http.MethodGet, http.MethodOptions)

	content.HandleFunc("/users/{userID}/profile", profileHandler.Get).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/users/{userID}/profile", profileHandler.Update).Methods(http.MethodPatch, http.MethodOptions)

	content.HandleFunc("/users/{userID}/mylist", myListHandler.List).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/users/{userID}/mylist", myListHandler.Add).Methods(http.MethodPost, http.MethodOptions)
	content.HandleFunc("/users/{userID}/mylist/toggle", myListHandler.Toggle).Methods(http.MethodPost, http.MethodOptions)
	content.HandleFunc("/users/{userID}/mylist/contains", myListHandler.Contains).Methods(http.MethodGet, http.MethodOptions)
	content.HandleFunc("/users/{userID}/mylist/{mediaType}/{id}", myListHandler.Remove).Methods(http.MethodDelete, http.MethodOptions)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("[main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}

// setupLogging sends log output to both stderr and a rotating file.
func setupLogging(cfg config.Config) {
	if cfg.LogFile == "" {
		return
	}
	rotated := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotated))
}
