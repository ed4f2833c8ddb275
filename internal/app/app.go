package app

import (
	"context"
	"fmt"
	"insightai/internal/cache"
	"insightai/internal/config"
	"insightai/internal/metrics"
	"insightai/internal/render"
	"insightai/internal/repository"
	"insightai/internal/service"
	"insightai/internal/transport/rest"
	"insightai/internal/transport/rest/middleware"
	"insightai/internal/transport/ws"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// App is the wired gateway
type App struct {
	Config  *config.Config
	API     *service.APIClient
	Auth    *service.AuthService
	Session *service.SessionService
	Hub     *ws.Hub
	Metrics *metrics.Collector
	Router  http.Handler

	mongo   *mongo.Client
	redis   *redis.Client
	limiter *middleware.RateLimiter
}

// New connects the stores and wires every component of the gateway
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	log.Println("Connected to MongoDB")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		mongoClient.Disconnect(ctx)
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	log.Println("Connected to Redis")

	a, err := Wire(cfg, mongoClient.Database(cfg.MongoDatabase), rdb)
	if err != nil {
		mongoClient.Disconnect(ctx)
		rdb.Close()
		return nil, err
	}
	a.mongo = mongoClient
	a.redis = rdb
	return a, nil
}

// Wire builds the services and router over already connected stores
func Wire(cfg *config.Config, db *mongo.Database, rdb *redis.Client) (*App, error) {
	// Initialize repositories and caches
	transcriptRepo := repository.NewTranscriptRepo(db)
	sessionCache := cache.NewSessionCache(rdb, cfg.Chat.SessionTTL, cfg.Chat.SubmitLockTTL)
	surveyCache := cache.NewSurveyCache(rdb, cfg.Chat.SurveyTTL)

	// Initialize services
	api := service.NewAPIClient(cfg.APIBaseURL, cfg.APIToken, cfg.APITimeout)
	authSvc := service.NewAuthService(cfg.ResearcherUsername, cfg.ResearcherPassword, cfg.JWTSecret, cfg.Chat.SessionTTL)
	sessionSvc := service.NewSessionService(api, authSvc, sessionCache, surveyCache, transcriptRepo, cfg.Chat, cfg.APITimeout)

	collector := metrics.New("insightai")
	sessionSvc.SetMetrics(collector)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	wsHub := ws.NewHub()
	sessionSvc.SetBroadcaster(wsHub)

	renderer, err := render.NewHTMLRenderer(cfg.Chat.SeenDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	limiter := middleware.NewRateLimiter(cfg.MessageRatePerMinute)

	router := rest.NewRouter(&rest.Container{
		AuthService:    authSvc,
		SessionService: sessionSvc,
		API:            api,
		Renderer:       renderer,
		Metrics:        collector,
		RateLimiter:    limiter,
		WSHub:          wsHub,
		PublicURL:      cfg.PublicURL,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		SessionTTL:     cfg.Chat.SessionTTL,
	})

	return &App{
		Config:  cfg,
		API:     api,
		Auth:    authSvc,
		Session: sessionSvc,
		Hub:     wsHub,
		Metrics: collector,
		Router:  router,
		limiter: limiter,
	}, nil
}

// Close releases the background workers and store connections
func (a *App) Close(ctx context.Context) {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.mongo != nil {
		a.mongo.Disconnect(ctx)
	}
}
