// Package cperrors defines the typed error taxonomy of spec.md §7:
// IoError, ParseFailure, UnsupportedLanguage, SymbolCollision,
// ResolveMiss, StoreCorruption, CommitFailure, Timeout, Cancelled.
//
// Shape is ported from the teacher's internal/errors package: a Type
// enum, contextual struct fields, and Error()/Unwrap() so the errors
// package's Is/As machinery composes.
package cperrors

import (
	"fmt"
	"time"
)

// Type identifies which branch of the taxonomy an error belongs to.
type Type string

const (
	TypeIO                 Type = "io"
	TypeParseFailure       Type = "parse_failure"
	TypeUnsupportedLang    Type = "unsupported_language"
	TypeSymbolCollision    Type = "symbol_collision"
	TypeResolveMiss        Type = "resolve_miss"
	TypeStoreCorruption    Type = "store_corruption"
	TypeCommitFailure      Type = "commit_failure"
	TypeTimeout            Type = "timeout"
	TypeCancelled          Type = "cancelled"
	TypeConfig             Type = "config"
	TypeInvalidParams      Type = "invalid_params"
	TypeUnknownNode        Type = "unknown_node"
	TypeNotYetIndexed      Type = "not_yet_indexed"
)

// IOError wraps a filesystem failure encountered while reading source
// bytes.
type IOError struct {
	Path       string
	Underlying error
	Timestamp  time.Time
}

func NewIOError(path string, err error) *IOError {
	return &IOError{Path: path, Underlying: err, Timestamp: time.Now()}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s: %v", e.Path, e.Underlying)
}

func (e *IOError) Unwrap() error { return e.Underlying }

// ParseFailure carries the line/column of a grammar error. The file it
// came from is skipped; the caller decides whether to surface it.
type ParseFailure struct {
	Path       string
	Line       int
	Column     int
	Underlying error
	Timestamp  time.Time
}

func NewParseFailure(path string, line, column int, err error) *ParseFailure {
	return &ParseFailure{Path: path, Line: line, Column: column, Underlying: err, Timestamp: time.Now()}
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure at %s:%d:%d: %v", e.Path, e.Line, e.Column, e.Underlying)
}

func (e *ParseFailure) Unwrap() error { return e.Underlying }

// UnsupportedLanguage is returned when a file extension has no registry
// entry. The Coordinator skips the file and records this error in the
// commit's diagnostics.
type UnsupportedLanguage struct {
	Path      string
	Extension string
}

func NewUnsupportedLanguage(path, ext string) *UnsupportedLanguage {
	return &UnsupportedLanguage{Path: path, Extension: ext}
}

func (e *UnsupportedLanguage) Error() string {
	return fmt.Sprintf("unsupported language for %s (extension %q)", e.Path, e.Extension)
}

// SymbolCollision records that two nodes claim the same fully qualified
// name; the first-seen node wins, the second is logged via this error.
type SymbolCollision struct {
	QualifiedName string
	WinnerPath    string
	LoserPath     string
	Timestamp     time.Time
}

func NewSymbolCollision(fqn, winner, loser string) *SymbolCollision {
	return &SymbolCollision{QualifiedName: fqn, WinnerPath: winner, LoserPath: loser, Timestamp: time.Now()}
}

func (e *SymbolCollision) Error() string {
	return fmt.Sprintf("symbol collision on %q: %s wins over %s", e.QualifiedName, e.WinnerPath, e.LoserPath)
}

// ResolveMiss is counted, never surfaced as a hard failure: the
// unresolved reference is dropped per spec.md §4.6.
type ResolveMiss struct {
	OriginPath string
	Target     string
}

func NewResolveMiss(originPath, target string) *ResolveMiss {
	return &ResolveMiss{OriginPath: originPath, Target: target}
}

func (e *ResolveMiss) Error() string {
	return fmt.Sprintf("unresolved reference %q from %s", e.Target, e.OriginPath)
}

// StoreCorruption marks an unreadable persisted record; the record is
// dropped and the Store continues scanning.
type StoreCorruption struct {
	Key        string
	Underlying error
}

func NewStoreCorruption(key string, err error) *StoreCorruption {
	return &StoreCorruption{Key: key, Underlying: err}
}

func (e *StoreCorruption) Error() string {
	return fmt.Sprintf("store corruption at key %q: %v", e.Key, e.Underlying)
}

func (e *StoreCorruption) Unwrap() error { return e.Underlying }

// CommitFailure is fatal after one retry: the graph remains at its
// pre-commit state and the caller must surface this to its own caller.
type CommitFailure struct {
	Attempt    int
	Underlying error
}

func NewCommitFailure(attempt int, err error) *CommitFailure {
	return &CommitFailure{Attempt: attempt, Underlying: err}
}

func (e *CommitFailure) Error() string {
	return fmt.Sprintf("commit failed after %d attempt(s): %v", e.Attempt, e.Underlying)
}

func (e *CommitFailure) Unwrap() error { return e.Underlying }

// Timeout describes an operation stopped by a deadline. No operation in
// this module returns it: queries report a context past its deadline
// as Cancelled.
type Timeout struct {
	Operation string
}

func NewTimeout(op string) *Timeout { return &Timeout{Operation: op} }

func (e *Timeout) Error() string { return fmt.Sprintf("%s: timed out", e.Operation) }

// Cancelled is returned when a query's caller-supplied context is done,
// whether it was cancelled or its deadline passed.
type Cancelled struct {
	Operation string
}

func NewCancelled(op string) *Cancelled { return &Cancelled{Operation: op} }

func (e *Cancelled) Error() string { return fmt.Sprintf("%s: cancelled", e.Operation) }

// ConfigError is the §4.10 addition: invalid configuration surfaced
// before any indexing starts.
type ConfigError struct {
	Field  string
	Reason string
}

func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// QueryError is the structured code/message pair the RPC transport
// wraps for invalid parameters, unknown nodes, not-yet-indexed state,
// and timeouts (spec.md §7, "Query errors surface to the RPC transport
// with structured codes").
type QueryError struct {
	Code    Type
	Message string
}

func NewQueryError(code Type, message string) *QueryError {
	return &QueryError{Code: code, Message: message}
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
