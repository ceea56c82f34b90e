// Package app wires the gateway's components together and owns their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"modelmux/config"
	"modelmux/internal/adapters"
	"modelmux/internal/catalog"
	"modelmux/internal/chat"
	"modelmux/internal/conversation"
	"modelmux/internal/core"
	"modelmux/internal/embeddings"
	"modelmux/internal/resolver"
	"modelmux/internal/secrets"
	"modelmux/internal/server"
	"modelmux/internal/storage"
	"modelmux/internal/tasks"
	"modelmux/internal/usage"
)

// App holds every initialized component. Callers must Shutdown to release
// resources.
type App struct {
	Server *server.Server

	// Chat and Embeddings resolve clients per capability; Chat feeds the
	// streaming service, Embeddings the embedding service.
	Chat       *resolver.Router[core.ChatClient]
	Embeddings *resolver.Router[core.EmbeddingClient]

	cfg    *config.Config
	logger *slog.Logger
	db     *storage.DB
	redis  *redis.Client
	mongo  *mongo.Client
	runner *tasks.Runner

	shutdownMu sync.Mutex
	shutdown   bool
}

// New initializes storage, the resolvers, the chat service, and the HTTP
// server. On error everything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db

	keys, err := cfg.DecodeKeys()
	if err != nil {
		a.closeAll()
		return nil, err
	}
	keyring, err := secrets.NewKeyring(cfg.Secrets.CurrentKeyID, keys)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("build keyring: %w", err)
	}

	cat := catalog.NewSQLStore(db)
	a.Chat = resolver.NewRouter(cat, keyring, adapters.NewChatFactory(), logger)
	a.Embeddings = resolver.NewRouter(cat, keyring, adapters.NewEmbeddingFactory(), logger)

	memory, err := a.openMemory(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}
	usageStore, err := a.openUsageStore(ctx)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	a.runner = tasks.NewRunner(cfg.Tasks.Workers, cfg.Tasks.Timeout, logger)
	recorder := usage.NewRecorder(usageStore, a.runner, logger)
	svc := chat.NewService(
		conversation.NewSQLStore(db),
		memory,
		a.Chat,
		recorder,
		a.runner,
		logger,
	)
	emb := embeddings.NewService(a.Embeddings, recorder, logger)
	a.Server = server.New(svc, emb, logger)
	return a, nil
}

func (a *App) openMemory(ctx context.Context) (conversation.MemoryStore, error) {
	if a.cfg.Redis.Addr == "" {
		a.logger.Info("conversation memory: in-process store")
		return conversation.NewLocalMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = client
	a.logger.Info("conversation memory: redis", "addr", a.cfg.Redis.Addr)
	return conversation.NewRedisMemoryStore(client, a.cfg.Redis.MemoryTTL), nil
}

func (a *App) openUsageStore(ctx context.Context) (usage.Store, error) {
	if a.cfg.Mongo.URI == "" {
		a.logger.Info("usage logs: sql store")
		return usage.NewSQLStore(a.db), nil
	}
	client, err := mongo.Connect(options.Client().ApplyURI(a.cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	a.mongo = client
	dbName := a.cfg.Mongo.Database
	if dbName == "" {
		dbName = "modelmux"
	}
	a.logger.Info("usage logs: mongodb", "database", dbName)
	return usage.NewMongoStore(client.Database(dbName), a.cfg.Mongo.RetentionDays, a.logger)
}

// Start serves HTTP until the listener fails or Shutdown runs.
func (a *App) Start() error {
	a.logger.Info("listening", "addr", a.cfg.Server.Addr)
	return a.Server.Start(a.cfg.Server.Addr)
}

// Shutdown stops the server, drains background tasks, and closes storage.
// Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	defer a.shutdownMu.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true

	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if a.runner != nil {
		if err := a.runner.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("task drain: %w", err))
		}
	}
	errs = append(errs, a.closeStores(ctx)...)
	return errors.Join(errs...)
}

func (a *App) closeStores(ctx context.Context) []error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close mongodb: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errs
}

// closeAll releases partially initialized resources during New.
func (a *App) closeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, err := range a.closeStores(ctx) {
		a.logger.Warn("cleanup failed", "error", err)
	}
}
