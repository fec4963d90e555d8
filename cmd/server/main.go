package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-lending/internal/config"
	"github.com/iliyamo/library-lending/internal/database"
	"github.com/iliyamo/library-lending/internal/handler"
	"github.com/iliyamo/library-lending/internal/queue"
	"github.com/iliyamo/library-lending/internal/repository"
	"github.com/iliyamo/library-lending/internal/router"
	"github.com/iliyamo/library-lending/internal/service"
)

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Redis may be nil; cache and rate limiting degrade to no-ops.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; cache and rate limiting disabled")
	}

	store := repository.NewLibraryStore(db)
	engine := service.NewLendingService(store, service.Config{
		DailyFineRate:  cfg.DailyFineRate,
		LoanPeriodDays: cfg.LoanPeriodDays,
	})

	authHandler := handler.NewAuthHandler(cfg, repository.NewStaffRepo(db), repository.NewTokenRepo(db))
	lendingHandler := handler.NewLendingHandler(engine)
	bookHandler := handler.NewBookHandler(store)
	memberHandler := handler.NewMemberHandler(store)
	fineHandler := handler.NewFineHandler(store)

	// Consumer writes the lending audit log; a broker outage must not
	// block the API.
	go func() {
		if err := queue.StartLendingConsumer(); err != nil {
			log.Printf("lending consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, bookHandler, rdb)
	router.RegisterLending(e, lendingHandler, bookHandler, memberHandler, fineHandler, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
