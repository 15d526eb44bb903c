package changetracking

import (
	"errors"

	"github.com/EelisK/gorm-changetracking/internal/cfgerr"
)

// ConfigError classifies every request rejected before SQL is sent.
var ConfigError = cfgerr.Class

var (
	// ErrNotSqlServer is returned for connections to another vendor.
	ErrNotSqlServer = errors.New("provider is not SqlServer")
	// ErrNotCompatible is returned for SQL Server providers without change tracking.
	ErrNotCompatible = errors.New("SqlServer version is not compatible with change tracking")
	// ErrInheritance is returned when enabling tracking for an inheritance mapped entity.
	ErrInheritance = errors.New("cannot change track entities with inheritance")
	// ErrTrackingDisabled is returned when the database or table reports no tracking version.
	ErrTrackingDisabled = errors.New("change tracking is not enabled")
)
