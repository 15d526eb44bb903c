package changetracking

import (
	"github.com/EelisK/gorm-changetracking/shadow"
)

// ChangeKind is the kind of change recorded for a row.
type ChangeKind = shadow.ChangeKind

const (
	Insert = shadow.Insert
	Update = shadow.Update
	Delete = shadow.Delete
)

// InheritanceMapper is implemented by models that share their table with other
// model types, told apart by the returned discriminator column.
type InheritanceMapper interface {
	InheritanceDiscriminator() string
}

// Changed is one change of an entity since a known version.
type Changed[T any] struct {
	Kind    ChangeKind
	Version int64
	// Entity is the current row when Loaded, otherwise only its primary key is set.
	Entity T
	Loaded bool
	// Shadow is the change table row the change was read from.
	Shadow *shadow.Row
}

// IsFullLoaded reports whether Entity holds the full current row rather than its key.
func (c Changed[T]) IsFullLoaded() bool {
	return c.Loaded
}
