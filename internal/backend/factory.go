package backend

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/amqp"
	"ledger/internal/log"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/sheets/memory"
)

// ErrEventsDisabled is returned by CreateEventClient when no AMQP URL is set.
var ErrEventsDisabled = errors.New("AMQP events are disabled")

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentSheets),
	}
}

// CreateMirror implements Factory.CreateMirror. MirrorNone yields a result
// with a nil Mirror.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Mirror {
	case MirrorNone:
		f.logger.Info("Ledger mirror disabled")
		return &MirrorResult{Kind: MirrorNone}, nil
	case MirrorMemory:
		return f.createMemoryMirror()
	case MirrorSheets:
		return f.createSheetsMirror(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported mirror backend: %s", config.Mirror)
	}
}

func (f *DefaultFactory) createMemoryMirror() (*MirrorResult, error) {
	f.logger.Info("Initialized memory mirror")
	return &MirrorResult{
		Kind:   MirrorMemory,
		Mirror: memory.New(),
	}, nil
}

func (f *DefaultFactory) createSheetsMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets mirror: %w", err)
	}

	f.logger.Info("Initialized Google Sheets mirror",
		"spreadsheet_id", config.GoogleSpreadsheetID)

	return &MirrorResult{
		Kind:       MirrorSheets,
		Mirror:     cli,
		Prepare:    cli.EnsureTabs,
		Invalidate: cli.InvalidateRowCache,
	}, nil
}

// CreateEventClient dials the broker and declares the ledger topology.
func (f *DefaultFactory) CreateEventClient(config Config) (*amqp.Client, error) {
	if !config.EventsEnabled() {
		return nil, ErrEventsDisabled
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("initialize AMQP client: %w", err)
	}

	f.logger.WithComponent(log.ComponentAMQP).Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}
