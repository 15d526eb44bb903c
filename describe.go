package changetracking

import (
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/EelisK/gorm-changetracking/internal/ident"
	"github.com/EelisK/gorm-changetracking/shadow"
)

// Describer supplies entity metadata for a model.
type Describer interface {
	Describe(model any) (*shadow.Descriptor, error)
}

// GormDescriber describes models through the GORM schema of DB.
//
// A string model is read as a possibly schema-qualified table name; its
// descriptor carries no type or columns and only serves table statements.
type GormDescriber struct {
	DB *gorm.DB
}

// Describe implements Describer.
func (d GormDescriber) Describe(model any) (*shadow.Descriptor, error) {
	switch v := model.(type) {
	case nil:
		return nil, ConfigError.New("nil model")
	case string:
		owner, table, err := splitTable(v)
		if err != nil {
			return nil, err
		}
		return &shadow.Descriptor{Schema: owner, Table: table}, nil
	}

	stmt := &gorm.Statement{DB: d.DB}
	if err := stmt.Parse(model); err != nil {
		return nil, ConfigError.Wrap(err)
	}
	sch := stmt.Schema

	owner, table, err := splitTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	desc := &shadow.Descriptor{
		Type:   sch.ModelType,
		Schema: owner,
		Table:  table,
	}
	for _, f := range sch.Fields {
		if f.DBName == "" || !f.Readable {
			continue
		}
		desc.Columns = append(desc.Columns, column(f))
	}
	if im, ok := reflect.New(sch.ModelType).Interface().(InheritanceMapper); ok {
		desc.Inheritance = strings.TrimSpace(im.InheritanceDiscriminator()) != ""
	}
	return desc, nil
}

func column(f *schema.Field) shadow.Column {
	return shadow.Column{
		Name:       f.Name,
		Path:       f.BindNames,
		DBName:     f.DBName,
		Type:       f.FieldType,
		PrimaryKey: f.PrimaryKey,
	}
}

func splitTable(name string) (string, string, error) {
	parts := ident.SplitQualified(name)
	switch len(parts) {
	case 1:
		if parts[0] != "" {
			return "", parts[0], nil
		}
	case 2:
		if parts[1] != "" {
			return parts[0], parts[1], nil
		}
	}
	return "", "", ConfigError.New("unsupported table identifier %q", name)
}
