package changetracking

import (
	"context"
	"database/sql"
	"strings"

	"github.com/microsoft/go-mssqldb/msdsn"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/EelisK/gorm-changetracking/internal/ddl"
)

// RetentionMeasure is the unit of a database change retention period.
type RetentionMeasure = ddl.RetentionMeasure

const (
	Minutes = ddl.Minutes
	Hours   = ddl.Hours
	Days    = ddl.Days
)

// ParseRetentionMeasure parses a unit name such as "minutes" or "Day".
func ParseRetentionMeasure(s string) (RetentionMeasure, error) {
	return ddl.ParseRetentionMeasure(s)
}

// Config defines the options of a Tracker.
type Config struct {
	Provider  Provider  // derived from the dialector when empty
	Database  string    // taken from the sqlserver DSN when empty
	Describer Describer // GormDescriber by default
}

// Tracker runs change tracking operations on a GORM connection.
type Tracker struct {
	db  *gorm.DB
	cfg Config
}

// New creates a Tracker for db.
func New(db *gorm.DB, cfg Config) *Tracker {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOf(db.Dialector)
	}
	if cfg.Describer == nil {
		cfg.Describer = GormDescriber{DB: db}
	}
	return &Tracker{db: db, cfg: cfg}
}

// WithDB returns a Tracker with the same configuration running on db,
// typically a transaction or a session derived from the original connection.
func (t *Tracker) WithDB(db *gorm.DB) *Tracker {
	return &Tracker{db: db, cfg: t.cfg}
}

// Provider returns the provider the tracker checks compatibility against.
func (t *Tracker) Provider() Provider {
	return t.cfg.Provider
}

// IsSqlServer reports whether the connection is to SQL Server.
func (t *Tracker) IsSqlServer() bool {
	return IsSqlServer(t.cfg.Provider)
}

// IsCtCompatible reports whether the connection supports change tracking.
func (t *Tracker) IsCtCompatible() bool {
	return IsCtCompatible(t.cfg.Provider)
}

// DatabaseName returns the database change tracking statements target.
func (t *Tracker) DatabaseName() (string, error) {
	if err := checkCompatible(t.cfg.Provider); err != nil {
		return "", err
	}
	if name := strings.TrimSpace(t.cfg.Database); name != "" {
		return name, nil
	}
	name, err := databaseFromDialector(t.db.Dialector)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", ConfigError.New("no database name configured or found in the connection string")
	}
	return name, nil
}

func databaseFromDialector(d gorm.Dialector) (string, error) {
	var cfg *sqlserver.Config
	switch v := d.(type) {
	case *sqlserver.Dialector:
		cfg = v.Config
	case sqlserver.Dialector:
		cfg = v.Config
	}
	if cfg == nil || cfg.DSN == "" {
		return "", nil
	}
	parsed, err := msdsn.Parse(cfg.DSN)
	if err != nil {
		return "", ConfigError.Wrap(err)
	}
	return parsed.Database, nil
}

// EnableDatabase turns change tracking on for the database.
func (t *Tracker) EnableDatabase(retentionPeriod uint, measure RetentionMeasure, autoCleanup bool) error {
	return t.EnableDatabaseContext(context.Background(), retentionPeriod, measure, autoCleanup)
}

// EnableDatabaseContext turns change tracking on for the database.
// Enabling an already tracked database is a no-op.
func (t *Tracker) EnableDatabaseContext(ctx context.Context, retentionPeriod uint, measure RetentionMeasure, autoCleanup bool) error {
	name, err := t.DatabaseName()
	if err != nil {
		return err
	}
	stmt, err := ddl.EnableDatabase(name, retentionPeriod, measure, autoCleanup)
	if err != nil {
		return err
	}
	return t.exec(ctx, stmt)
}

// DisableDatabase turns change tracking off for the database.
func (t *Tracker) DisableDatabase() error {
	return t.DisableDatabaseContext(context.Background())
}

// DisableDatabaseContext turns change tracking off for the database.
func (t *Tracker) DisableDatabaseContext(ctx context.Context) error {
	name, err := t.DatabaseName()
	if err != nil {
		return err
	}
	stmt, err := ddl.DisableDatabase(name)
	if err != nil {
		return err
	}
	return t.exec(ctx, stmt)
}

// EnableTable turns change tracking on for the table of model.
func (t *Tracker) EnableTable(model any, trackColumnsUpdated bool) error {
	return t.EnableTableContext(context.Background(), model, trackColumnsUpdated)
}

// EnableTableContext turns change tracking on for the table of model, which is
// a GORM model or a table name. Inheritance mapped models are rejected.
func (t *Tracker) EnableTableContext(ctx context.Context, model any, trackColumnsUpdated bool) error {
	if err := checkCompatible(t.cfg.Provider); err != nil {
		return err
	}
	desc, err := t.cfg.Describer.Describe(model)
	if err != nil {
		return err
	}
	if desc.Inheritance {
		return ConfigError.Wrap(ErrInheritance)
	}
	return t.exec(ctx, ddl.EnableTable(desc.Schema, desc.Table, trackColumnsUpdated))
}

// DisableTable turns change tracking off for the table of model.
func (t *Tracker) DisableTable(model any) error {
	return t.DisableTableContext(context.Background(), model)
}

// DisableTableContext turns change tracking off for the table of model.
func (t *Tracker) DisableTableContext(ctx context.Context, model any) error {
	if err := checkCompatible(t.cfg.Provider); err != nil {
		return err
	}
	desc, err := t.cfg.Describer.Describe(model)
	if err != nil {
		return err
	}
	return t.exec(ctx, ddl.DisableTable(desc.Schema, desc.Table))
}

// CurrentVersion returns the current change tracking version of the database.
func (t *Tracker) CurrentVersion() (int64, error) {
	return t.CurrentVersionContext(context.Background())
}

// CurrentVersionContext returns the current change tracking version of the database.
func (t *Tracker) CurrentVersionContext(ctx context.Context) (int64, error) {
	if err := checkCompatible(t.cfg.Provider); err != nil {
		return 0, err
	}
	return t.version(ctx, ddl.CurrentVersion)
}

// MinValidVersion returns the oldest version changes of model's table can be read from.
func (t *Tracker) MinValidVersion(model any) (int64, error) {
	return t.MinValidVersionContext(context.Background(), model)
}

// MinValidVersionContext returns the oldest version changes of model's table can be read from.
// Reading changes since an older version misses changes removed by cleanup.
func (t *Tracker) MinValidVersionContext(ctx context.Context, model any) (int64, error) {
	if err := checkCompatible(t.cfg.Provider); err != nil {
		return 0, err
	}
	desc, err := t.cfg.Describer.Describe(model)
	if err != nil {
		return 0, err
	}
	return t.version(ctx, ddl.MinValidVersion(desc.Schema, desc.Table))
}

func (t *Tracker) version(ctx context.Context, stmt string) (int64, error) {
	var v sql.NullInt64
	if err := t.db.WithContext(ctx).Raw(stmt).Row().Scan(&v); err != nil {
		t.db.Logger.Error(ctx, "Failed to read change tracking version: %v", err)
		return 0, err
	}
	if !v.Valid {
		return 0, ErrTrackingDisabled
	}
	return v.Int64, nil
}

func (t *Tracker) exec(ctx context.Context, stmt string) error {
	if err := t.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		t.db.Logger.Error(ctx, "Failed to run change tracking statement: %v", err)
		return err
	}
	return nil
}
