package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrPageMismatch    = errors.New("timestamp and body element counts do not align")
	ErrNoSymbols       = errors.New("no symbols to collect")
	ErrLoginFailed     = errors.New("feed login failed")
	ErrMissingSetting  = errors.New("required setting is missing")
	ErrUnknownDriver   = errors.New("unknown database driver")
	ErrElementNotFound = errors.New("element not found")
	ErrBadCounter      = errors.New("engagement counter is not an integer")
	ErrInvalidSymbol   = errors.New("symbol cannot be used as a file name")
)

// SessionError wraps failures acquiring or driving a symbol's feed session.
// It is fatal for that symbol only.
type SessionError struct {
	Symbol string
	Stage  string // launch, navigate, login
	Err    error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("feed session for %s failed at %s: %v", e.Symbol, e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// LookupError wraps a failed per-record field lookup on a feed page.
type LookupError struct {
	Field string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s: %v", e.Field, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
