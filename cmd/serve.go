package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/freadom/readrec/analyzer"
	"github.com/freadom/readrec/config"
	"github.com/freadom/readrec/core"
	"github.com/freadom/readrec/engine"
	"github.com/freadom/readrec/ingest"
	"github.com/freadom/readrec/pkg/logger"
	"github.com/freadom/readrec/profile"
	"github.com/freadom/readrec/server"
	"github.com/freadom/readrec/similarity"
	"github.com/freadom/readrec/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recommendation HTTP server",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides config)")
	viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer func() { _ = zlog.Sync() }()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		zlog.Fatal("loading config", zap.Error(err))
	}
	if addr := viper.GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	// 配置文件可以打开 json/debug 日志；命令行开关优先已生效
	if (cfg.Logging.JSON && !viper.GetBool("json")) || (cfg.Logging.Debug && !viper.GetBool("debug")) {
		zlog, err = logger.New(cfg.Logging.JSON || viper.GetBool("json"),
			cfg.Logging.Debug || viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}
	}

	zlog.Info("starting readrec",
		zap.String("version", version),
		zap.String("store", cfg.Store.Kind),
		zap.String("backend", cfg.Similarity.Default))

	kv, err := buildKV(cfg)
	if err != nil {
		zlog.Fatal("building kv store", zap.Error(err))
	}
	defer kv.Close()

	catalog := store.NewCatalog(kv)
	if cfg.Store.Seed {
		if err := store.Seed(ctx, catalog); err != nil {
			zlog.Fatal("seeding catalog", zap.Error(err))
		}
		zlog.Info("demo catalog seeded")
	}

	var users core.UserStore = catalog
	if cfg.Feast.Enabled {
		feastStore, err := profile.NewFeastUserStore(
			cfg.Feast.Host, cfg.Feast.Port, cfg.Feast.Project,
			profile.WithFeastLogger(zlog))
		if err != nil {
			zlog.Fatal("connecting feast", zap.Error(err))
		}
		defer feastStore.Close()
		// 读走 Feature Store，写回落到目录
		users = &splitUserStore{reader: feastStore, writer: catalog}
		zlog.Info("feast online profiles enabled",
			zap.String("host", cfg.Feast.Host),
			zap.String("project", cfg.Feast.Project))
	}

	registry := similarity.NewRegistry(
		similarity.WithLogger(zlog),
		similarity.WithScoreTimeout(cfg.Similarity.ScoreTimeout),
		similarity.WithBackends(config.Constructors(cfg, zlog)...),
	)
	if !registry.SetBackend(ctx, cfg.Similarity.Default) {
		zlog.Warn("default backend not ready, serving degraded",
			zap.String("backend", registry.BackendName()))
	}

	eng := engine.New(users, catalog, registry,
		engine.WithWeights(engine.Weights{
			Interest:   cfg.Weights.Interest,
			Level:      cfg.Weights.Level,
			Popularity: cfg.Weights.Popularity,
		}),
		engine.WithEngineLogger(zlog),
	)

	ta := analyzer.NewSimple()
	srv := server.New(server.Deps{
		Engine:   eng,
		History:  engine.NewHistoryAnalyzer(users, catalog, engine.WithAnalyzerLogger(zlog)),
		Registry: registry,
		Users:    users,
		Contents: catalog,
		Ingestor: ingest.New(catalog, ta, ingest.WithIngestLogger(zlog)),
		Analyzer: ta,
		Logger:   zlog,
	})

	server.RegisterMetrics()
	if err := srv.Start(cfg.Server.Addr); err != nil {
		zlog.Fatal("http server stopped", zap.Error(err))
	}
}

func buildKV(cfg *config.Config) (core.KeyValueStore, error) {
	if cfg.Store.Kind == "redis" {
		return store.NewRedisStore(cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB)
	}
	return store.NewMemoryStore(), nil
}

// splitUserStore 把读路径交给在线画像、写路径交给目录行存。
type splitUserStore struct {
	reader core.UserStore
	writer core.UserStore
}

func (s *splitUserStore) FetchUser(ctx context.Context, id int64) (*core.User, error) {
	return s.reader.FetchUser(ctx, id)
}

func (s *splitUserStore) SaveUser(ctx context.Context, u *core.User) error {
	return s.writer.SaveUser(ctx, u)
}

func (s *splitUserStore) AppendHistory(ctx context.Context, userID, contentID int64) (bool, error) {
	return s.writer.AppendHistory(ctx, userID, contentID)
}

func (s *splitUserStore) ListUsers(ctx context.Context) ([]*core.User, error) {
	return s.writer.ListUsers(ctx)
}
