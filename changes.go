package changetracking

import (
	"context"
	"fmt"
	"reflect"

	"github.com/fatih/structs"

	"github.com/EelisK/gorm-changetracking/internal/ddl"
	"github.com/EelisK/gorm-changetracking/shadow"
)

// ChangesOption configures a changes read.
type ChangesOption func(*changesOptions)

type changesOptions struct {
	keysOnly bool
}

// KeysOnly skips the join to the entity table; every change carries a key-only entity.
func KeysOnly() ChangesOption {
	return func(o *changesOptions) {
		o.keysOnly = true
	}
}

// GetChanges reads the changes of T's table since version.
func GetChanges[T any](t *Tracker, since int64, opts ...ChangesOption) ([]Changed[T], error) {
	return GetChangesContext[T](context.Background(), t, since, opts...)
}

// GetChangesContext reads the changes of T's table since version, ordered by
// change version. T must be a struct model with a primary key.
//
// Inserted and updated rows carry the current entity; deleted rows, and every
// row when KeysOnly is given, carry an entity with only its key set.
func GetChangesContext[T any](ctx context.Context, t *Tracker, since int64, opts ...ChangesOption) ([]Changed[T], error) {
	var o changesOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := checkCompatible(t.cfg.Provider); err != nil {
		return nil, err
	}

	var model T
	if typ := reflect.TypeOf(model); typ == nil || typ.Kind() != reflect.Struct {
		return nil, ConfigError.New("entity type %T is not a struct and cannot be constructed", model)
	}
	desc, err := t.cfg.Describer.Describe(&model)
	if err != nil {
		return nil, err
	}
	if desc.Type != reflect.TypeOf(model) {
		return nil, ConfigError.New("descriptor of %T describes entity type %v", model, desc.Type)
	}
	typ, pred, mapper, err := shadow.For(desc)
	if err != nil {
		return nil, err
	}

	join := !o.keysOnly
	q := ddl.ChangesQuery{
		Schema: desc.Schema,
		Table:  desc.Table,
		Keys:   shadow.DBNames(desc.PrimaryKeys()),
		Join:   join,
	}
	var colTypes []reflect.Type
	if join {
		q.Columns = shadow.DBNames(desc.Columns)
		q.On = pred.SQL(ddl.ChangeAlias, ddl.EntityAlias)
		colTypes = make([]reflect.Type, len(desc.Columns))
		for i, c := range desc.Columns {
			if colTypes[i], err = desc.ColumnType(c); err != nil {
				return nil, err
			}
		}
	}
	stmt, err := q.Build()
	if err != nil {
		return nil, err
	}

	rows, err := t.db.WithContext(ctx).Raw(stmt, since).Rows()
	if err != nil {
		t.db.Logger.Error(ctx, "Failed to read changes of %s: %v", desc.Table, err)
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var changes []Changed[T]
	for rows.Next() {
		row := typ.NewRow()
		dest := row.Dest()
		var cells []reflect.Value
		if join {
			cells = make([]reflect.Value, len(desc.Columns))
			for i := range desc.Columns {
				cells[i] = reflect.New(reflect.PointerTo(colTypes[i]))
				dest = append(dest, cells[i].Interface())
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		change := Changed[T]{Kind: row.Operation, Version: row.Version, Shadow: row}
		if join && row.Operation != shadow.Delete {
			entity, found, err := joined[T](desc.Columns, cells)
			if err != nil {
				return nil, err
			}
			if found && pred.Match(row, entity) {
				change.Entity = *entity
				change.Loaded = true
				changes = append(changes, change)
				continue
			}
		}
		keyOnly, err := mapper(row)
		if err != nil {
			return nil, err
		}
		entity, ok := keyOnly.(*T)
		if !ok {
			return nil, fmt.Errorf("changetracking: key-only entity is %T, not *%T", keyOnly, model)
		}
		change.Entity = *entity
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// joined assembles the entity side of a joined row. found is false when the
// left join matched nothing, which shows as NULL primary key columns.
func joined[T any](cols []shadow.Column, cells []reflect.Value) (*T, bool, error) {
	entity := new(T)
	s := structs.New(entity)
	found := false
	for i, c := range cols {
		v := cells[i].Elem()
		if v.IsNil() {
			continue
		}
		if c.PrimaryKey {
			found = true
		}
		f, ok := shadow.FieldAt(s, c.FieldPath())
		if !ok {
			return nil, false, fmt.Errorf("changetracking: %T has no field %s", *entity, c.Name)
		}
		if err := f.Set(v.Elem().Interface()); err != nil {
			return nil, false, fmt.Errorf("changetracking: set %T.%s: %w", *entity, c.Name, err)
		}
	}
	return entity, found, nil
}
