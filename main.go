package main

import (
	"context"
	"time"

	"github.com/cppla/audiencehub/auth"
	"github.com/cppla/audiencehub/config"
	"github.com/cppla/audiencehub/middleware"
	"github.com/cppla/audiencehub/routes"
	"github.com/cppla/audiencehub/stores"
	"github.com/cppla/audiencehub/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	rc := utils.InitRedis(cfg)
	db := config.InitDatabase()

	tokens := auth.NewTokenService(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	blacklist := utils.NewTokenBlacklist(rc)
	authenticator := auth.NewAuthenticator(stores.NewUserStore(db), tokens, blacklist)
	throttle := utils.NewLoginThrottle(rc, cfg.LoginMaxFailures, time.Duration(cfg.LoginLockMinutes)*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	utils.StartSweeper(ctx, 5*time.Minute, blacklist, throttle, limiter, utils.SweepFunc(utils.SweepStates))

	r := routes.SetupRouter(db, cfg, authenticator, throttle, limiter)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
