// Package shadow synthesizes the change tracking row shape of an entity: its
// primary key fields plus the change operation and version, together with the
// predicate that joins it back to the entity and the constructor for key-only
// entities. It depends on nothing but a Descriptor, so any mapping layer can
// feed it.
package shadow

import (
	"reflect"

	"github.com/fatih/structs"

	"github.com/EelisK/gorm-changetracking/internal/cfgerr"
)

// Column is one mapped column of an entity.
type Column struct {
	Name       string   // struct field name
	Path       []string // field names from the entity root, for fields of embedded structs
	DBName     string
	Type       reflect.Type
	PrimaryKey bool
}

// Descriptor is the structural metadata of an entity type.
type Descriptor struct {
	Type    reflect.Type
	Schema  string
	Table   string
	Columns []Column
	// Inheritance is set when several types share the table through a discriminator.
	Inheritance bool
}

// PrimaryKeys returns the primary key columns in declaration order.
func (d *Descriptor) PrimaryKeys() []Column {
	var pks []Column
	for _, c := range d.Columns {
		if c.PrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}

// ColumnType returns the Go type of c, read from the entity's struct field
// when the column leaves it unset.
func (d *Descriptor) ColumnType(c Column) (reflect.Type, error) {
	if c.Type != nil {
		return c.Type, nil
	}
	if d.Type == nil {
		return nil, cfgerr.Class.New("entity descriptor has no object type")
	}
	t, ok := fieldType(d.Type, c.FieldPath())
	if !ok {
		return nil, cfgerr.Class.New("entity type %s has no field %s", d.Type, c.Name)
	}
	return t, nil
}

// DBNames returns the column names of cs.
func DBNames(cs []Column) []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.DBName
	}
	return names
}

// FieldPath returns the field names leading to c from the entity root.
func (c Column) FieldPath() []string {
	if len(c.Path) > 0 {
		return c.Path
	}
	return []string{c.Name}
}

// FieldAt follows path through s and its embedded structs.
func FieldAt(s *structs.Struct, path []string) (*structs.Field, bool) {
	if len(path) == 0 {
		return nil, false
	}
	f, ok := s.FieldOk(path[0])
	for _, name := range path[1:] {
		if !ok || f.Kind() != reflect.Struct {
			return nil, false
		}
		f, ok = f.FieldOk(name)
	}
	return f, ok
}
