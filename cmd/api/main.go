package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/msl-practice/backend/internal/blob"
	"github.com/zhouzirui/msl-practice/backend/internal/config"
	"github.com/zhouzirui/msl-practice/backend/internal/handler"
	"github.com/zhouzirui/msl-practice/backend/internal/logger"
	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
	"github.com/zhouzirui/msl-practice/backend/internal/model/user"
	"github.com/zhouzirui/msl-practice/backend/internal/service/ai"
	"github.com/zhouzirui/msl-practice/backend/internal/service/analysis"
	"github.com/zhouzirui/msl-practice/backend/internal/service/auth"
	practiceService "github.com/zhouzirui/msl-practice/backend/internal/service/practice"
	"github.com/zhouzirui/msl-practice/backend/internal/service/question"
	"github.com/zhouzirui/msl-practice/backend/internal/service/speech"
	"github.com/zhouzirui/msl-practice/backend/internal/storage/postgres"
	"github.com/zhouzirui/msl-practice/backend/internal/storage/redisstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.Log)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("no .env file, continuing with system environment variables only")
	}

	stores, cleanup, err := openStores(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer cleanup()

	blobs, err := openBlobStore(ctx, cfg.Blob)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize blob storage")
	}

	// Initialize AI service
	var completer ai.Completer
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize AI service, questions fall back to the bank and analysis is unavailable")
		} else {
			completer = aiService
			log.Info().Str("model", cfg.AI.Model).Msg("AI service initialized")
		}
	} else {
		log.Warn().Msg("Ark 凭证未配置，跳过 AI 功能初始化")
	}

	// Initialize speech recognition
	var recognizer speech.Recognizer
	if cfg.Speech.Enabled() {
		recognizer, err = speech.NewRecognizer(cfg.Speech)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize speech recognizer")
		} else {
			log.Info().Str("provider", recognizer.Name()).Msg("speech recognizer initialized")
		}
	} else {
		log.Warn().Msg("语音服务凭证未配置，录音处理将失败")
	}

	bank, err := question.LoadBank()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load question bank")
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token issuer")
	}

	manager := practiceService.NewManager(stores.sessions, stores.personas, stores.users, question.NewGenerator(completer, bank))
	pipeline := practiceService.NewPipeline(
		stores.sessions,
		stores.personas,
		blobs,
		speech.NewTranscriber(blobs, recognizer),
		analysis.NewEngine(completer),
		practiceService.PipelineConfig{UploadTTL: cfg.Blob.UploadTTL, DownloadTTL: cfg.Blob.DownloadTTL},
	)

	router := handler.NewRouter(handler.Deps{
		Auth:        auth.NewService(stores.users, tokens),
		Personas:    stores.personas,
		Bank:        bank,
		Sessions:    manager,
		Recordings:  pipeline,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	startServer(ctx, cfg.Server, router)
}

type storeSet struct {
	sessions practice.Store
	personas persona.Store
	users    user.Store
}

// openStores picks the session backend. Users and personas live in Postgres
// whenever DATABASE_URL is set, otherwise in memory.
func openStores(ctx context.Context, cfg config.StorageConfig) (storeSet, func(), error) {
	set := storeSet{
		sessions: practice.NewMemoryStore(),
		personas: persona.NewMemoryStore(persona.Seed()),
		users:    user.NewMemoryStore(),
	}
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, postgres.Config{DSN: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
		if err != nil {
			return set, cleanup, err
		}
		closers = append(closers, db.Close)
		set.users = db.Users()
		set.personas = db.Personas()
		if err := seedPersonas(ctx, set.personas); err != nil {
			cleanup()
			return set, func() {}, err
		}
		if cfg.SessionBackend == config.BackendPostgres {
			set.sessions = db.Sessions()
		}
	}

	if cfg.SessionBackend == config.BackendRedis {
		client, err := redisstore.Dial(ctx, cfg.RedisURL)
		if err != nil {
			cleanup()
			return set, func() {}, err
		}
		closers = append(closers, func() { _ = client.Close() })
		set.sessions = redisstore.NewSessionStore(client)
	}

	log.Info().Str("session_backend", cfg.SessionBackend).Bool("postgres", cfg.DatabaseURL != "").Msg("storage ready")
	return set, cleanup, nil
}

// seedPersonas loads the bundled catalog into an empty persona table.
func seedPersonas(ctx context.Context, store persona.Store) error {
	existing, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, p := range persona.Seed() {
		if err := store.Put(ctx, p); err != nil {
			return err
		}
	}
	log.Info().Int("count", len(persona.Seed())).Msg("seeded persona catalog")
	return nil
}

func openBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	if !cfg.Enabled() {
		log.Warn().Msg("S3_BUCKET not set, recordings use the in-memory blob store")
		return blob.NewMemoryStore("local"), nil
	}
	store, err := blob.NewS3Store(ctx, blob.S3Config{
		Bucket:         cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		AccessKey:      cfg.AccessKey,
		SecretKey:      cfg.SecretKey,
		ForcePathStyle: cfg.ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("bucket", cfg.Bucket).Msg("S3 blob store initialized")
	return store, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("MSL practice backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
