// Package cfgerr holds the error class shared by every package that rejects
// a change tracking request before any SQL is sent.
package cfgerr

import (
	"github.com/zeebo/errs"
)

var class = errs.Class("changetracking configuration")

// Class is the configuration error class. errs matches classes by address,
// so it is shared as a pointer.
var Class = &class
