package db

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Get for a missing or expired key.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexNotFound means the FT index has not been created (or was dropped).
	ErrIndexNotFound = errors.New("db: index not found")
	// ErrIndexExists is returned by CreateIndex when another writer won the race.
	ErrIndexExists = errors.New("db: index already exists")
)

// Op names the server command behind an Error.
type Op string

// Commands issued by the store.
const (
	OpCreateIndex Op = "FT.CREATE"
	OpDropIndex   Op = "FT.DROPINDEX"
	OpIndexInfo   Op = "FT.INFO"
	OpSearch      Op = "FT.SEARCH"
	OpAggregate   Op = "FT.AGGREGATE"
	OpDel         Op = "DEL"
	OpHSet        Op = "HSET"
	OpScan        Op = "SCAN"
	OpGet         Op = "GET"
	OpSet         Op = "SET"
)

// Error is a backend failure tagged with the command and, for per-key
// commands, the key it was issued for.
type Error struct {
	Op  Op
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
