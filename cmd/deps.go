package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/todolist/internal"
	"github.com/frahmantamala/todolist/internal/auth"
	roleDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/role"
	todoDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/todo"
	userDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/user"
	"github.com/frahmantamala/todolist/internal/core/events"
	"github.com/frahmantamala/todolist/internal/credential"
	"github.com/frahmantamala/todolist/internal/notification"
	"github.com/frahmantamala/todolist/internal/role"
	rolePostgres "github.com/frahmantamala/todolist/internal/role/postgres"
	"github.com/frahmantamala/todolist/internal/session"
	"github.com/frahmantamala/todolist/internal/todo"
	todoPostgres "github.com/frahmantamala/todolist/internal/todo/postgres"
	"github.com/frahmantamala/todolist/internal/user"
	userPostgres "github.com/frahmantamala/todolist/internal/user/postgres"
	"github.com/frahmantamala/todolist/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dependencies holds the long-lived collaborators shared by every command.
type Dependencies struct {
	Config   *internal.Config
	Logger   *slog.Logger
	GormDB   *gorm.DB
	SQLDB    *sql.DB
	Redis    redis.UniversalClient
	EventBus *events.EventBus

	Tokens   *auth.JWTTokenService
	Sessions session.Store
	Roles    *role.Service
	Users    *user.Service
	ToDos    *todo.Service
	Gate     *auth.Gate
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Init(config.Logging.Level, config.Logging.Format)

	gormDB, sqlDB, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if config.Database.AutoMigrate {
		if err := gormDB.WithContext(ctx).AutoMigrate(&roleDatamodel.Role{}, &userDatamodel.User{}, &todoDatamodel.ToDo{}); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		lg.Info("schema migrated")
	}

	rdb, err := initRedis(ctx, config.Redis)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	hasher, err := credential.NewFromConfig(config.Security)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize password hasher: %w", err)
	}

	tokens, err := auth.NewJWTTokenService(config.Security.SecretKey, auth.WithLeeway(config.Security.TokenLeeway))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, config.Redis.Prefix, config.Redis.SessionTTL)
	}

	eventBus := events.NewEventBus(lg)
	notifier := notification.NewConfirmationNotifier(notification.NewLogMailer(lg), config.Server.BaseURL, lg)
	notifier.RegisterEventHandlers(eventBus)

	gate := auth.NewGate(lg)
	roles := role.NewService(rolePostgres.NewRoleRepository(gormDB), lg)
	users := user.NewService(
		userPostgres.NewUserRepository(gormDB),
		roles,
		hasher,
		tokens,
		eventBus,
		user.Config{
			AdminEmail:      config.Security.AdminEmail,
			ConfirmationTTL: config.Security.ConfirmationTokenTTL,
		},
		lg,
	)
	todos := todo.NewService(todoPostgres.NewToDoRepository(gormDB), todo.NewMarkdownRenderer(), gate, lg)

	return &Dependencies{
		Config:   config,
		Logger:   lg,
		GormDB:   gormDB,
		SQLDB:    sqlDB,
		Redis:    rdb,
		EventBus: eventBus,
		Tokens:   tokens,
		Sessions: sessions,
		Roles:    roles,
		Users:    users,
		ToDos:    todos,
		Gate:     gate,
	}, nil
}

// Close waits for in-flight event handlers, then releases connections.
func (d *Dependencies) Close() {
	d.EventBus.Wait()
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.SQLDB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

// initDB opens the configured database. Postgres goes through a pgx-backed
// sqlx pool that gorm then shares.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, *sql.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.Driver {
	case "sqlite":
		gormDB, err := gorm.Open(sqlite.Open(cfg.Source), gormCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, nil, err
		}
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
		return gormDB, sqlDB, nil

	default:
		const driver = "pgx"

		dbConn, err := sqlx.Connect(driver, cfg.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db connection: %w", err)
		}

		dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
		dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
		dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: dbConn.DB}), gormCfg)
		if err != nil {
			_ = dbConn.Close()
			return nil, nil, fmt.Errorf("failed to open gorm on db connection: %w", err)
		}
		return gormDB, dbConn.DB, nil
	}
}

// initRedis returns a nil client when no address is configured; cookie
// sessions are then disabled.
func initRedis(ctx context.Context, cfg internal.RedisConfig) (redis.UniversalClient, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}
