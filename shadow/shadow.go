package shadow

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	"github.com/EelisK/gorm-changetracking/internal/cfgerr"
	"github.com/EelisK/gorm-changetracking/internal/ident"
)

// Fixed shadow fields, mapped to the change table system columns.
var (
	OperationField = Field{Name: "SysChangeOperation", Column: "SYS_CHANGE_OPERATION", Type: reflect.TypeOf(ChangeKind(0))}
	VersionField   = Field{Name: "SysChangeVersion", Column: "SYS_CHANGE_VERSION", Type: reflect.TypeOf(int64(0))}
)

// Field is one field of a shadow type.
type Field struct {
	Name   string
	Column string
	Type   reflect.Type
	path   []string
}

// Type is the shadow row shape of one entity type. It never changes once built.
type Type struct {
	Name   string
	Entity reflect.Type
	Keys   []Field
}

// Field looks a field up by name, the fixed operation and version fields included.
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Fields returns the key fields followed by the operation and version fields.
func (t *Type) Fields() []Field {
	fs := make([]Field, 0, len(t.Keys)+2)
	fs = append(fs, t.Keys...)
	return append(fs, OperationField, VersionField)
}

// NewRow returns an empty row of t.
func (t *Type) NewRow() *Row {
	r := &Row{Type: t, keys: make([]reflect.Value, len(t.Keys))}
	for i, k := range t.Keys {
		r.keys[i] = reflect.New(k.Type)
	}
	return r
}

// Row is one change row read through a shadow type.
type Row struct {
	Type      *Type
	Operation ChangeKind
	Version   int64
	keys      []reflect.Value
}

// Dest returns scan destinations in the order version, operation, keys.
func (r *Row) Dest() []any {
	dest := make([]any, 0, len(r.keys)+2)
	dest = append(dest, &r.Version, &r.Operation)
	for _, k := range r.keys {
		dest = append(dest, k.Interface())
	}
	return dest
}

// Key returns the value of the named key field, or nil if there is none.
func (r *Row) Key(name string) any {
	for i, k := range r.Type.Keys {
		if k.Name == name {
			return r.keys[i].Elem().Interface()
		}
	}
	return nil
}

// SetKey assigns the named key field.
func (r *Row) SetKey(name string, v any) error {
	for i, k := range r.Type.Keys {
		if k.Name != name {
			continue
		}
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || !rv.Type().AssignableTo(k.Type) {
			return fmt.Errorf("shadow: cannot assign %T to %s.%s of type %s", v, r.Type.Name, name, k.Type)
		}
		r.keys[i].Elem().Set(rv)
		return nil
	}
	return fmt.Errorf("shadow: %s has no key field %s", r.Type.Name, name)
}

// Map returns every field value by field name.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.keys)+2)
	for i, k := range r.Type.Keys {
		m[k.Name] = r.keys[i].Elem().Interface()
	}
	m[OperationField.Name] = r.Operation
	m[VersionField.Name] = r.Version
	return m
}

// Predicate is the primary key equality between a shadow row and an entity.
type Predicate struct {
	keys []Field
}

// Match reports whether every primary key field of entity equals the row's.
// entity is a struct or a pointer to one.
func (p Predicate) Match(row *Row, entity any) bool {
	if entity == nil || len(p.keys) == 0 {
		return false
	}
	rv := reflect.ValueOf(entity)
	switch {
	case rv.Kind() == reflect.Pointer && rv.IsNil():
		return false
	case rv.Kind() != reflect.Pointer:
		// nested fields are only reachable through an addressable struct
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		entity = ptr.Interface()
	}
	s := structs.New(entity)
	for _, k := range p.keys {
		f, ok := FieldAt(s, k.path)
		if !ok || !equal(row.Key(k.Name), f.Value()) {
			return false
		}
	}
	return true
}

// SQL renders the predicate as a join condition between the two aliases.
func (p Predicate) SQL(shadowAlias, entityAlias string) string {
	conds := make([]string, len(p.keys))
	for i, k := range p.keys {
		conds[i] = ident.QuoteQualified(shadowAlias, k.Column) + " = " + ident.QuoteQualified(entityAlias, k.Column)
	}
	return strings.Join(conds, " AND ")
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Mapper builds a new entity, returned as a pointer, holding only the row's key values.
type Mapper func(row *Row) (any, error)

// Cache holds one synthesized shadow per entity type and key column mapping.
// The same type mapped to other key columns, as under another naming
// strategy, gets its own shadow.
type Cache struct {
	mu    sync.Mutex
	types sync.Map // cacheKey -> *entry
}

type cacheKey struct {
	typ  reflect.Type
	keys string
}

func keyOf(desc *Descriptor) cacheKey {
	var b strings.Builder
	for _, pk := range desc.PrimaryKeys() {
		b.WriteString(strings.Join(pk.FieldPath(), "."))
		b.WriteByte('=')
		b.WriteString(pk.DBName)
		b.WriteByte(0)
	}
	return cacheKey{typ: desc.Type, keys: b.String()}
}

type entry struct {
	typ    *Type
	pred   Predicate
	mapper Mapper
}

var defaultCache Cache

// For returns the shadow of desc's entity type from the process wide cache.
func For(desc *Descriptor) (*Type, Predicate, Mapper, error) {
	return defaultCache.For(desc)
}

// For returns the shadow of desc's entity type, synthesizing it on first use
// of the type with desc's key columns.
func (c *Cache) For(desc *Descriptor) (*Type, Predicate, Mapper, error) {
	if desc == nil || desc.Type == nil {
		return nil, Predicate{}, nil, cfgerr.Class.New("entity descriptor has no object type")
	}
	key := keyOf(desc)
	if v, ok := c.types.Load(key); ok {
		e := v.(*entry)
		return e.typ, e.pred, e.mapper, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.types.Load(key); ok {
		e := v.(*entry)
		return e.typ, e.pred, e.mapper, nil
	}
	e, err := synthesize(desc)
	if err != nil {
		return nil, Predicate{}, nil, err
	}
	c.types.Store(key, e)
	return e.typ, e.pred, e.mapper, nil
}

func synthesize(desc *Descriptor) (*entry, error) {
	if desc.Type.Kind() != reflect.Struct {
		return nil, cfgerr.Class.New("entity type %s is not a struct and cannot be constructed", desc.Type)
	}
	pks := desc.PrimaryKeys()
	if len(pks) == 0 {
		return nil, cfgerr.Class.New("entity type %s has no primary key", desc.Type)
	}

	t := &Type{Name: desc.Type.Name() + "Ct", Entity: desc.Type}
	for _, pk := range pks {
		if _, ok := fieldType(desc.Type, pk.FieldPath()); !ok {
			return nil, cfgerr.Class.New("entity type %s has no field %s", desc.Type, pk.Name)
		}
		typ, err := desc.ColumnType(pk)
		if err != nil {
			return nil, err
		}
		t.Keys = append(t.Keys, Field{Name: pk.Name, Column: pk.DBName, Type: typ, path: pk.FieldPath()})
	}

	pred := Predicate{keys: t.Keys}
	mapper := func(row *Row) (any, error) {
		if row == nil || row.Type != t {
			return nil, fmt.Errorf("shadow: row does not belong to %s", t.Name)
		}
		ptr := reflect.New(t.Entity)
		s := structs.New(ptr.Interface())
		for i, k := range t.Keys {
			f, ok := FieldAt(s, k.path)
			if !ok {
				return nil, fmt.Errorf("shadow: %s has no field %s", t.Entity, k.Name)
			}
			if err := f.Set(row.keys[i].Elem().Interface()); err != nil {
				return nil, fmt.Errorf("shadow: set %s.%s: %w", t.Entity, k.Name, err)
			}
		}
		return ptr.Interface(), nil
	}
	return &entry{typ: t, pred: pred, mapper: mapper}, nil
}

func fieldType(t reflect.Type, path []string) (reflect.Type, bool) {
	for _, name := range path {
		if t.Kind() != reflect.Struct {
			return nil, false
		}
		f, ok := t.FieldByName(name)
		if !ok {
			return nil, false
		}
		t = f.Type
	}
	return t, len(path) > 0
}
