package shadow

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// ChangeKind is the kind of change recorded for a row.
type ChangeKind int

const (
	Insert ChangeKind = iota
	Update
	Delete
)

var kindCodes = [...]string{Insert: "I", Update: "U", Delete: "D"}
var kindNames = [...]string{Insert: "Insert", Update: "Update", Delete: "Delete"}

// Code returns the single character stored in SYS_CHANGE_OPERATION.
func (k ChangeKind) Code() string {
	if k < Insert || k > Delete {
		return ""
	}
	return kindCodes[k]
}

func (k ChangeKind) String() string {
	if k < Insert || k > Delete {
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseChangeKind maps an operation code back to its kind.
func ParseChangeKind(code string) (ChangeKind, error) {
	switch strings.TrimSpace(code) {
	case "I":
		return Insert, nil
	case "U":
		return Update, nil
	case "D":
		return Delete, nil
	}
	return 0, fmt.Errorf("shadow: unknown change operation %q", code)
}

// Scan implements sql.Scanner.
func (k *ChangeKind) Scan(src any) error {
	var code string
	switch v := src.(type) {
	case string:
		code = v
	case []byte:
		code = string(v)
	default:
		return fmt.Errorf("shadow: cannot scan %T into ChangeKind", src)
	}
	parsed, err := ParseChangeKind(code)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value implements driver.Valuer.
func (k ChangeKind) Value() (driver.Value, error) {
	code := k.Code()
	if code == "" {
		return nil, fmt.Errorf("shadow: invalid change kind %d", int(k))
	}
	return code, nil
}
