// Package backend builds the optional outer services of the ledger: the
// sheet mirror written by the worker and the AMQP client carrying
// ledger.changed events.
package backend

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/sheets"
)

// MirrorResult is a ready mirror plus its optional hooks.
type MirrorResult struct {
	Kind   MirrorKind
	Mirror sheets.Mirror
	// Prepare runs once before the first write, e.g. to create missing tabs.
	Prepare func(ctx context.Context) error
	// Invalidate drops cached row positions after an out-of-band change.
	Invalidate func(tab string)
}

// Factory creates the outer services based on configuration.
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
	CreateEventClient(config Config) (*amqp.Client, error)
}

// Config holds the settings the factory needs.
type Config struct {
	Mirror MirrorKind

	// AMQP; an empty URL means events are disabled.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// MirrorKind selects the mirror implementation.
type MirrorKind string

const (
	MirrorNone   MirrorKind = "none"
	MirrorMemory MirrorKind = "memory"
	MirrorSheets MirrorKind = "sheets"
)

// String implements fmt.Stringer
func (k MirrorKind) String() string {
	return string(k)
}

// IsValid returns true if the mirror kind is known.
func (k MirrorKind) IsValid() bool {
	switch k {
	case MirrorNone, MirrorMemory, MirrorSheets:
		return true
	default:
		return false
	}
}
