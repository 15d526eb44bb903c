package ddl

import (
	"fmt"
	"strings"

	"github.com/EelisK/gorm-changetracking/internal/cfgerr"
	"github.com/EelisK/gorm-changetracking/internal/ident"
)

// RetentionMeasure is the unit of a database change retention period.
type RetentionMeasure int

const (
	Minutes RetentionMeasure = iota
	Hours
	Days
)

// String returns the SQL keyword for the unit, or an empty string when m is unknown.
func (m RetentionMeasure) String() string {
	switch m {
	case Minutes:
		return "MINUTES"
	case Hours:
		return "HOURS"
	case Days:
		return "DAYS"
	default:
		return ""
	}
}

// ParseRetentionMeasure accepts the unit name in any case, singular or plural.
func ParseRetentionMeasure(s string) (RetentionMeasure, error) {
	switch strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "S") {
	case "MINUTE":
		return Minutes, nil
	case "HOUR":
		return Hours, nil
	case "DAY":
		return Days, nil
	}
	return 0, cfgerr.Class.New("unknown retention measure %q", s)
}

// CurrentVersion reads the database wide change tracking version.
const CurrentVersion = "SELECT CHANGE_TRACKING_CURRENT_VERSION()"

// Change table system columns.
const (
	OperationColumn = "SYS_CHANGE_OPERATION"
	VersionColumn   = "SYS_CHANGE_VERSION"
)

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// EnableDatabase turns change tracking on for database unless it already is.
func EnableDatabase(database string, retentionPeriod uint, measure RetentionMeasure, autoCleanup bool) (string, error) {
	if strings.TrimSpace(database) == "" {
		return "", cfgerr.Class.New("database name is empty")
	}
	if retentionPeriod == 0 {
		return "", cfgerr.Class.New("retention period must be greater than 0")
	}
	unit := measure.String()
	if unit == "" {
		return "", cfgerr.Class.New("unknown retention measure %d", int(measure))
	}
	return fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM sys.change_tracking_databases WHERE database_id = DB_ID(%s)) "+
			"ALTER DATABASE %s SET CHANGE_TRACKING = ON (CHANGE_RETENTION = %d %s, AUTO_CLEANUP = %s)",
		ident.NLiteral(database), ident.Quote(database), retentionPeriod, unit, onOff(autoCleanup),
	), nil
}

// DisableDatabase turns change tracking off for database if it is on.
func DisableDatabase(database string) (string, error) {
	if strings.TrimSpace(database) == "" {
		return "", cfgerr.Class.New("database name is empty")
	}
	return fmt.Sprintf(
		"IF EXISTS (SELECT 1 FROM sys.change_tracking_databases WHERE database_id = DB_ID(%s)) "+
			"ALTER DATABASE %s SET CHANGE_TRACKING = OFF",
		ident.NLiteral(database), ident.Quote(database),
	), nil
}

// EnableTable turns change tracking on for schema.table unless it already is.
func EnableTable(schema, table string, trackColumnsUpdated bool) string {
	schema, table = ident.Table(schema, table)
	return fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM sys.change_tracking_tables WHERE object_id = OBJECT_ID(%s)) "+
			"ALTER TABLE %s ENABLE CHANGE_TRACKING WITH (TRACK_COLUMNS_UPDATED = %s)",
		ident.ObjectLiteral(schema, table), ident.QuoteQualified(schema, table), onOff(trackColumnsUpdated),
	)
}

// DisableTable turns change tracking off for schema.table if it is on.
func DisableTable(schema, table string) string {
	schema, table = ident.Table(schema, table)
	return fmt.Sprintf(
		"IF EXISTS (SELECT 1 FROM sys.change_tracking_tables WHERE object_id = OBJECT_ID(%s)) "+
			"ALTER TABLE %s DISABLE CHANGE_TRACKING",
		ident.ObjectLiteral(schema, table), ident.QuoteQualified(schema, table),
	)
}

// MinValidVersion reads the oldest version changes of schema.table can still be read from.
func MinValidVersion(schema, table string) string {
	schema, table = ident.Table(schema, table)
	return fmt.Sprintf("SELECT CHANGE_TRACKING_MIN_VALID_VERSION(OBJECT_ID(%s))", ident.ObjectLiteral(schema, table))
}

// ChangesQuery describes a read of CHANGETABLE(CHANGES ...).
type ChangesQuery struct {
	Schema string
	Table  string
	// Keys are the primary key column names, in order.
	Keys []string
	// Columns are the entity columns selected from the joined table. Ignored without Join.
	Columns []string
	// On is the join condition between the "ct" and "e" aliases.
	On   string
	Join bool
}

// Change table and entity table aliases used by Build.
const (
	ChangeAlias = "ct"
	EntityAlias = "e"
)

// Build renders the query. The since version is its only bind variable,
// written as "?" for GORM to translate into the dialect's placeholder.
func (q ChangesQuery) Build() (string, error) {
	if len(q.Keys) == 0 {
		return "", cfgerr.Class.New("table %s has no primary key", q.Table)
	}
	schema, table := ident.Table(q.Schema, q.Table)
	target := ident.QuoteQualified(schema, table)

	cols := []string{
		ident.QuoteQualified(ChangeAlias, VersionColumn),
		ident.QuoteQualified(ChangeAlias, OperationColumn),
	}
	for _, k := range q.Keys {
		cols = append(cols, ident.QuoteQualified(ChangeAlias, k))
	}
	if q.Join {
		if q.On == "" {
			return "", cfgerr.Class.New("join condition for %s is empty", q.Table)
		}
		for _, c := range q.Columns {
			cols = append(cols, ident.QuoteQualified(EntityAlias, c))
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	fmt.Fprintf(&b, " FROM CHANGETABLE(CHANGES %s, ?) AS %s", target, ChangeAlias)
	if q.Join {
		fmt.Fprintf(&b, " LEFT OUTER JOIN %s AS %s ON %s", target, EntityAlias, q.On)
	}
	fmt.Fprintf(&b, " ORDER BY %s", ident.QuoteQualified(ChangeAlias, VersionColumn))
	return b.String(), nil
}
