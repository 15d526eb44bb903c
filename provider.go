package changetracking

import (
	"fmt"

	"gorm.io/gorm"
)

// Provider identifies the database vendor and version behind a connection.
type Provider string

const (
	SqlServer     Provider = "SqlServer"
	SqlServer2000 Provider = "SqlServer2000"
	SqlServer2008 Provider = "SqlServer2008"
	SqlServer2012 Provider = "SqlServer2012"
	SqlServer2014 Provider = "SqlServer2014"
	SqlCe         Provider = "SqlCe"
)

// ProviderOf maps a GORM dialector to a provider. The sqlserver dialector
// does not report a server version, so it maps to SqlServer.
func ProviderOf(d gorm.Dialector) Provider {
	if d == nil {
		return ""
	}
	if name := d.Name(); name != "sqlserver" {
		return Provider(name)
	}
	return SqlServer
}

// IsSqlServer reports whether p is one of the SQL Server providers.
func IsSqlServer(p Provider) bool {
	switch p {
	case SqlServer, SqlServer2000, SqlServer2008, SqlServer2012, SqlServer2014:
		return true
	default:
		return false
	}
}

// IsCtCompatible reports whether p supports change tracking.
func IsCtCompatible(p Provider) bool {
	switch p {
	case SqlServer, SqlServer2008, SqlServer2012, SqlServer2014:
		return true
	default:
		return false
	}
}

func checkCompatible(p Provider) error {
	if !IsSqlServer(p) {
		return ConfigError.Wrap(fmt.Errorf("%w: %q", ErrNotSqlServer, p))
	}
	if !IsCtCompatible(p) {
		return ConfigError.Wrap(fmt.Errorf("%w: %q", ErrNotCompatible, p))
	}
	return nil
}
