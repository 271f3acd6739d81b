package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/mel-roster/internal/config"
	"github.com/iliyamo/mel-roster/internal/database"
	"github.com/iliyamo/mel-roster/internal/document"
	"github.com/iliyamo/mel-roster/internal/handler"
	"github.com/iliyamo/mel-roster/internal/member"
	"github.com/iliyamo/mel-roster/internal/middleware"
	"github.com/iliyamo/mel-roster/internal/queue"
	"github.com/iliyamo/mel-roster/internal/repository"
	"github.com/iliyamo/mel-roster/internal/rosterclient"
	"github.com/iliyamo/mel-roster/internal/router"
	"github.com/iliyamo/mel-roster/internal/service"
	"github.com/iliyamo/mel-roster/internal/workflow"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: could not read .env: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := rosterclient.New(cfg.RosterAPIURL, config.RemoteTimeout)

	// Generated documents live in Redis when it is reachable, otherwise in
	// process memory.
	rdb := config.NewRedisClient(ctx)
	var store document.Store = document.NewMemoryStore()
	if rdb != nil {
		store = document.NewRedisStore(rdb, cfg.Document.Prefix)
		defer rdb.Close()
	} else {
		log.Printf("redis: unavailable, keeping documents in memory and disabling rate limiting")
	}
	vault := document.NewVault(store, document.NewSigner(cfg.Document.SigningSecret), cfg.Document.TTL)

	var publisher member.Publisher = service.Discard{}
	auditHandler := &handler.AuditHandler{}
	if cfg.Audit.Enabled {
		publisher = service.NewAuditPublisher(cfg.Audit.AMQPURL, cfg.Audit.Queue)
		if cfg.DB.Configured() {
			db, err := database.Open(ctx, cfg.DB)
			if err != nil {
				log.Printf("mysql: audit journal disabled: %v", err)
			} else {
				defer db.Close()
				repo := repository.NewAuditRepo(db)
				if err := repo.EnsureSchema(ctx); err != nil {
					log.Fatalf("mysql: create audit schema: %v", err)
				}
				auditHandler.Journal = repo
				go func() {
					if err := queue.StartAuditConsumer(ctx, cfg.Audit.AMQPURL, cfg.Audit.Queue, repo); err != nil && !errors.Is(err, context.Canceled) {
						log.Printf("audit-consumer: stopped: %v", err)
					}
				}()
			}
		}
	}

	reg := workflow.NewRegistry(workflow.Deps{
		Service:   svc,
		Documents: vault,
		Publisher: publisher,
		PageSize:  cfg.PreviewPageSize,
	})
	auditHandler.Workflows = reg

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	router.RegisterRoutes(e, reg)
	router.RegisterWorkflows(e, handler.NewWorkflowHandler(reg), middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	router.RegisterDocuments(e, &handler.DocumentHandler{Documents: vault})
	router.RegisterAudit(e, auditHandler)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, roster=%s)", addr, cfg.Env, svc.BaseURL())
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
