package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anoa.com/clubportal/internal/config"
	"anoa.com/clubportal/internal/jobs"
	"anoa.com/clubportal/internal/middleware"
	"anoa.com/clubportal/pkg/clubdate"
	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/judge"
	"anoa.com/clubportal/pkg/logger"
	"anoa.com/clubportal/pkg/ratelimiter"
	"anoa.com/clubportal/pkg/storage"

	adminHttp "anoa.com/clubportal/internal/modules/admin/delivery/http"
	adminRepo "anoa.com/clubportal/internal/modules/admin/repository"
	adminService "anoa.com/clubportal/internal/modules/admin/service"

	announcementHttp "anoa.com/clubportal/internal/modules/announcement/delivery/http"
	announcementRepo "anoa.com/clubportal/internal/modules/announcement/repository"
	announcementService "anoa.com/clubportal/internal/modules/announcement/service"

	attendanceHttp "anoa.com/clubportal/internal/modules/attendance/delivery/http"
	attendanceRepo "anoa.com/clubportal/internal/modules/attendance/repository"
	attendanceService "anoa.com/clubportal/internal/modules/attendance/service"

	challengeHttp "anoa.com/clubportal/internal/modules/challenge/delivery/http"
	challengeRepo "anoa.com/clubportal/internal/modules/challenge/repository"
	challengeService "anoa.com/clubportal/internal/modules/challenge/service"

	ledgerHttp "anoa.com/clubportal/internal/modules/ledger/delivery/http"
	ledgerService "anoa.com/clubportal/internal/modules/ledger/service"

	liveHttp "anoa.com/clubportal/internal/modules/live/delivery/http"
	liveService "anoa.com/clubportal/internal/modules/live/service"

	problemHttp "anoa.com/clubportal/internal/modules/problem/delivery/http"
	problemRepo "anoa.com/clubportal/internal/modules/problem/repository"
	problemService "anoa.com/clubportal/internal/modules/problem/service"

	searchHttp "anoa.com/clubportal/internal/modules/search/delivery/http"
	searchService "anoa.com/clubportal/internal/modules/search/service"

	userHttp "anoa.com/clubportal/internal/modules/user/delivery/http"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	userService "anoa.com/clubportal/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	cfg       *config.Config
	engine    *gin.Engine
	db        *gorm.DB
	sync      liveService.Synchronizer
	scheduler *jobs.Scheduler
}

// NewServer wires every module. redisClient may be nil; the change broker
// and the submit lock then stay in process.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	clock := clubdate.NewClock(cfg.ClubTimezone)

	var broker liveService.Broker
	if redisClient != nil {
		broker = liveService.NewRedisBroker(redisClient, liveService.DefaultChangeChannel)
	} else {
		logger.Warn("server: no redis configured, live updates stay within this instance")
		broker = liveService.NewLocalBroker()
	}
	store := docstore.NewGormStore(db, broker)
	sync := liveService.NewSynchronizer(store, broker)

	searchSvc := newSearchService(cfg)
	imageStorage := newImageStorage(cfg)

	userRepository := userRepo.NewUserRepository(store)
	ledgerSvc := ledgerService.NewLedgerService(userRepository, clock)
	ledgerHandler := ledgerHttp.NewLedgerHandler(ledgerSvc, sync)

	attendanceSvc := attendanceService.NewAttendanceService(
		attendanceRepo.NewAttendanceRepository(store),
		userRepository,
		ledgerSvc,
		sync,
		clock,
		cfg.AttendanceBonus,
	)
	attendanceHandler := attendanceHttp.NewAttendanceHandler(attendanceSvc, sync)

	adminSvc := adminService.NewAdminService(adminRepo.NewAdminRepository(store), userRepository, sync)
	adminHandler := adminHttp.NewAdminHandler(adminSvc, sync)

	challengeSvc := challengeService.NewChallengeService(
		challengeRepo.NewChallengeRepository(store),
		challengeRepo.NewProgressRepository(store),
		ledgerSvc,
		judge.NewHTTPClient(cfg.JudgeURL, cfg.JudgeTimeout),
		challengeService.NewSubmitLock(redisClient, cfg.SubmitLockTTL),
		searchSvc,
		clock,
	)
	challengeHandler := challengeHttp.NewChallengeHandler(challengeSvc, sync)

	problemSvc := problemService.NewProblemService(problemRepo.NewProblemRepository(store), searchSvc)
	problemHandler := problemHttp.NewProblemHandler(problemSvc, sync)

	announcementSvc := announcementService.NewAnnouncementService(
		announcementRepo.NewAnnouncementRepository(store),
		userRepository,
		imageStorage,
		searchSvc,
		clock,
	)
	announcementHandler := announcementHttp.NewAnnouncementHandler(announcementSvc, sync)

	searchHandler := searchHttp.NewSearchHandler(searchSvc)
	liveHandler := liveHttp.NewLiveHandler(sync, cfg.AllowedOrigins)

	authSvc := userService.NewAuthService(userRepository, adminSvc, challengeSvc, userService.Options{
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     cfg.JWTTTL,
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authHandler := userHttp.NewAuthHandler(authSvc, sync, cfg.FrontendURL)

	scheduler := jobs.NewScheduler(time.Minute)
	for _, job := range []jobs.Job{
		jobs.NewResyncJob(sync, cfg.ResyncSchedule),
		jobs.NewPruneAttendanceJob(attendanceSvc, cfg.AttendanceRetention, cfg.PruneSchedule),
		jobs.NewEvictWorkspacesJob(challengeSvc, cfg.WorkspaceIdle),
	} {
		if err := scheduler.Register(job); err != nil {
			return nil, err
		}
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	// problem titles and challenge names are keys and may carry an encoded "/"
	router.UseRawPath = true
	router.UnescapePathValues = true

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health", "/api/live/ws"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(sync, cfg.JWTSecret)
	limiter := ratelimiter.New(redisClient)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.GET("/google/login", authHandler.GoogleLogin)
		auth.GET("/google/callback", authHandler.GoogleCallback)
	}

	public := api.Group("")
	public.Use(authMiddleware.OptionalAuth())
	{
		public.GET("/leaderboard", ledgerHandler.GetLeaderboard)
		public.GET("/challenges", challengeHandler.GetChallenges)
		public.GET("/problems", problemHandler.GetProblems)
		public.GET("/announcements", announcementHandler.GetAnnouncements)
		public.GET("/search", searchHandler.Search)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.GET("/me", authHandler.Me)
		protected.DELETE("/me", authHandler.DeleteMe)

		protected.GET("/live/ws", liveHandler.HandleWebSocket)
		protected.GET("/live/snapshot", liveHandler.Snapshot)

		protected.GET("/users/:uid/points", ledgerHandler.GetPoints)
		protected.POST("/attendance/request",
			limiter.Middleware(ratelimiter.ScopeAttendance, cfg.RequestCooldown),
			attendanceHandler.RequestAttendance)
		protected.POST("/admin/requests",
			limiter.Middleware(ratelimiter.ScopeAdmin, cfg.RequestCooldown),
			adminHandler.RequestPermissions)

		workspace := protected.Group("/challenges/:id/workspace")
		{
			workspace.GET("", challengeHandler.GetWorkspace)
			workspace.PUT("/code", challengeHandler.SetCode)
			workspace.PUT("/language", challengeHandler.SwitchLanguage)
			workspace.POST("/save", challengeHandler.Save)
			workspace.POST("/submit", limiter.Middleware(ratelimiter.ScopeSubmit, cfg.SubmitCooldown), challengeHandler.Submit)
		}

		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/requests", adminHandler.GetRequests)
			adminGroup.POST("/requests/:uid/approve", adminHandler.ApproveRequest)
			adminGroup.POST("/requests/:uid/reject", adminHandler.RejectRequest)
			adminGroup.GET("/admins", adminHandler.GetAdmins)
			adminGroup.DELETE("/admins/:uid", adminHandler.RemoveAdmin)

			adminGroup.POST("/users/:uid/points", ledgerHandler.GrantPoints)
			adminGroup.POST("/users/:uid/present", attendanceHandler.MarkPresent)

			adminGroup.GET("/attendance", attendanceHandler.GetPending)
			adminGroup.POST("/attendance/:date/:uid/approve", attendanceHandler.Approve)
			adminGroup.POST("/attendance/:date/:uid/reject", attendanceHandler.Reject)

			adminGroup.POST("/challenges", challengeHandler.CreateChallenge)
			adminGroup.PUT("/challenges/:id", challengeHandler.ReplaceChallenge)
			adminGroup.DELETE("/challenges/:id", challengeHandler.DeleteChallenge)

			adminGroup.POST("/problems", problemHandler.AddProblem)
			adminGroup.PUT("/problems/:title", problemHandler.ReplaceProblem)
			adminGroup.DELETE("/problems/:title", problemHandler.DeleteProblem)

			adminGroup.POST("/announcements", announcementHandler.AddAnnouncement)
			adminGroup.PUT("/announcements/:id", announcementHandler.UpdateAnnouncement)
			adminGroup.DELETE("/announcements/:id", announcementHandler.DeleteAnnouncement)
		}
	}

	return &Server{
		cfg:       cfg,
		engine:    router,
		db:        db,
		sync:      sync,
		scheduler: scheduler,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- s.sync.Run(ctx)
	}()

	s.scheduler.Start()
	defer s.scheduler.Stop()

	httpServer := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Success("server: listening on %s", httpServer.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-syncErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			_ = httpServer.Close()
			return fmt.Errorf("live synchronizer stopped: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return httpServer.Shutdown(shutdownCtx)
}

func newSearchService(cfg *config.Config) searchService.SearchService {
	host := cfg.MeiliSearchHost
	if host == "" {
		logger.Warn("server: MEILISEARCH_HOST not set, search disabled")
		return searchService.NewNoopSearchService()
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}

	client := meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	return searchService.NewMeiliSearchService(client)
}

// newImageStorage returns nil when cloudinary is not configured.
func newImageStorage(cfg *config.Config) storage.ImageStorage {
	if cfg.CloudinaryURL == "" {
		logger.Warn("server: CLOUDINARY_URL not set, announcement images disabled")
		return nil
	}
	imageStorage, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL)
	if err != nil {
		logger.Error("server: cloudinary disabled: %v", err)
		return nil
	}
	return imageStorage
}

func setupCORS(router *gin.Engine, origins []string) {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
