package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ballotbox/server/internal/auth"
	"github.com/ballotbox/server/internal/config"
	"github.com/ballotbox/server/internal/db"
	"github.com/ballotbox/server/internal/docstore"
	"github.com/ballotbox/server/internal/election"
	httphandler "github.com/ballotbox/server/internal/http"
	"github.com/ballotbox/server/internal/http/handlers"
	"github.com/ballotbox/server/internal/notify"
	"github.com/ballotbox/server/internal/repo"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

func main() {
	// Load .env when present (env vars override)
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	voterRepo := repo.NewVoterRepo(database)
	challengeRepo := repo.NewChallengeRepo(database)
	tokenRepo := repo.NewTokenRepo(database)
	ballotRepo := repo.NewBallotRepo(database)
	voteRepo := repo.NewVoteRepo(database)
	candidateRepo := repo.NewCandidateRepo(database)

	// Document store: MinIO when configured, local filesystem otherwise
	var documents docstore.Store
	documentDir := ""
	if cfg.MinioEndpoint != "" {
		documents, err = docstore.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
	} else {
		fsStore, err := docstore.NewFSStore(cfg.DocumentDir)
		if err != nil {
			log.Fatalf("Failed to create document directory: %v", err)
		}
		documents = fsStore
		documentDir = fsStore.Root()
	}

	// Election core
	sender := notify.NewLogSender()
	issuer := election.NewTokenIssuer(tokenRepo, cfg.TokenTTL)
	verifier := election.NewVerifier(voterRepo, challengeRepo, issuer, sender, cfg.OTPSalt, cfg.ChallengeTTL, cfg.DevMode)
	assembler := election.NewAssembler(voterRepo, ballotRepo)
	caster := election.NewCaster(issuer, assembler, voteRepo, cfg.RequireSelection)
	workflow := election.NewNominationWorkflow(candidateRepo, ballotRepo, documents)
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	router := httphandler.NewRouter(httphandler.RouterDeps{
		Verify:      handlers.NewVerifyHandler(verifier, cfg.DevMode),
		Voting:      handlers.NewVotingHandler(assembler, caster, documents),
		Nominations: handlers.NewNominationHandler(workflow),
		Positions:   handlers.NewPositionHandler(ballotRepo),
		Issuer:      issuer,
		JWT:         jwtService,
		DocumentDir: documentDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the module root)")
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
