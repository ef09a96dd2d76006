package database

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/lifescribe/component"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
)

type note struct {
	ID   uint   `gorm:"primaryKey"`
	Body string `gorm:"uniqueIndex"`
}

func memoryConfig() Config {
	return Config{Driver: DriverSQLite, DSN: ":memory:", MaxRetries: 1, LogLevel: "silent"}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		var c Config
		c.ApplyDefaults()
		if c.Driver != DriverSQLite || c.DSN != DefaultSQLitePath || c.MaxOpenConns != 1 {
			t.Errorf("unexpected defaults %+v", c)
		}
		if err := c.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("postgres from host", func(t *testing.T) {
		c := Config{Host: "db", Name: "lifescribe", User: "app", Password: "secret"}
		c.ApplyDefaults()
		if c.Driver != DriverPostgres || c.Port != "5432" || c.MaxOpenConns != 25 {
			t.Errorf("unexpected defaults %+v", c)
		}
		want := "host=db port=5432 dbname=lifescribe user=app password=secret sslmode=disable"
		if got := c.ConnectionString(); got != want {
			t.Errorf("ConnectionString() = %q, want %q", got, want)
		}
	})

	t.Run("explicit dsn wins", func(t *testing.T) {
		c := Config{Driver: "Postgres", DSN: "postgres://x", Host: "ignored"}
		c.ApplyDefaults()
		if c.Driver != DriverPostgres || c.ConnectionString() != "postgres://x" {
			t.Errorf("unexpected %+v", c)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown driver", Config{Driver: "mysql"}},
		{"postgres without host", Config{Driver: DriverPostgres}},
		{"idle above open", Config{MaxOpenConns: 2, MaxIdleConns: 3}},
		{"bad duration", Config{SlowQueryThreshold: "soon"}},
		{"bad log level", Config{LogLevel: "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.cfg
			c.ApplyDefaults()
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestOpen_SQLiteMemory(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, memoryConfig(), logger.NewDefault("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if !db.IsAvailable(ctx) || db.Name() != DriverSQLite {
		t.Fatal("expected an available sqlite database")
	}
	if err := db.Migrate(ctx, nil, "", &note{}); err != nil {
		t.Fatal(err)
	}

	err = db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&note{Body: "a"}).Error
	})
	if err != nil {
		t.Fatal(err)
	}

	err = db.WithContext(ctx).Create(&note{Body: "a"}).Error
	if appErr := FromDatabase(err, "note"); appErr == nil || appErr.Code != errors.ErrCodeAlreadyExists {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}

	var n note
	err = db.WithContext(ctx).Where("body = ?", "missing").First(&n).Error
	if !IsNotFoundError(err) {
		t.Errorf("expected record not found, got %v", err)
	}
	if appErr := FromDatabase(err, "note"); appErr.Code != errors.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", appErr)
	}

	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if db.IsAvailable(ctx) {
		t.Error("closed database reported available")
	}
}

func TestWithTransaction_RollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, memoryConfig(), logger.NewDefault("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.Migrate(ctx, nil, "", &note{})

	sentinel := errors.Validation("stop")
	err = db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&note{Body: "rolled back"}).Error; err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	var count int64
	db.WithContext(ctx).Model(&note{}).Count(&count)
	if count != 0 {
		t.Errorf("expected rollback, found %d rows", count)
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"}, logger.NewDefault("test"))
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestOpen_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, memoryConfig(), logger.NewDefault("test"))
	if !errors.HasCode(err, errors.ErrCodeConnectionFailed) {
		t.Errorf("expected CONNECTION_FAILED, got %v", err)
	}
}

func TestComponent_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewComponent(memoryConfig(), logger.NewDefault("test")).WithMigrations(nil, "", &note{})

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %+v", h)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %+v", h)
	}
	if !c.DB().WithContext(ctx).Migrator().HasTable(&note{}) {
		t.Error("expected the note table to be migrated")
	}
	if d := c.Describe(); d.Type != DriverSQLite {
		t.Errorf("unexpected description %+v", d)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestComponentDescribeMasksDSN(t *testing.T) {
	c := NewComponent(Config{Driver: DriverPostgres, DSN: "postgres://lifescribe:hunter2@db:5432/transcripts"}, logger.NewDefault("test"))
	d := c.Describe()
	if strings.Contains(d.Details, "hunter2") {
		t.Errorf("password leaked into %q", d.Details)
	}
	if !strings.HasPrefix(d.Details, "postgres://lifescribe:***@db:5432/transcripts ") {
		t.Errorf("unexpected details %q", d.Details)
	}
}

func TestFromDatabase(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"not found", gorm.ErrRecordNotFound, errors.ErrCodeNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, errors.ErrCodeAlreadyExists},
		{"connection", stderrors.New("dial tcp 10.0.0.1:5432: connect: connection refused"), errors.ErrCodeServiceUnavailable},
		{"other", stderrors.New("syntax error at or near"), errors.ErrCodeDatabaseError},
		{"app error passes through", errors.NotFound("transcript", "7"), errors.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDatabase(tt.err, "transcript")
			if got == nil || got.Code != tt.code {
				t.Errorf("FromDatabase() = %v, want %s", got, tt.code)
			}
		})
	}
	if FromDatabase(nil, "x") != nil {
		t.Error("nil error should map to nil")
	}
	if e := FromDatabase(stderrors.New("syntax error"), "x"); e.Retryable {
		t.Error("generic database errors are not retryable")
	}
}
