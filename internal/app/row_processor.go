package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jembi/datim-update-infoman/internal/config"
	"github.com/jembi/datim-update-infoman/internal/core/row"
	"github.com/jembi/datim-update-infoman/internal/ports/primary"
	"github.com/jembi/datim-update-infoman/internal/ports/secondary"
)

// RowProcessor implements the RowService interface.
type RowProcessor struct {
	cfg    config.Config
	client secondary.DirectoryClient
	logger *zap.Logger
}

// NewRowProcessor creates a new RowProcessor with injected dependencies.
func NewRowProcessor(cfg config.Config, client secondary.DirectoryClient, logger *zap.Logger) *RowProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RowProcessor{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// ProcessRow looks up the resource named by the row's PEPFAR ID and adds the
// row's local ID to it as an otherID.
func (p *RowProcessor) ProcessRow(ctx context.Context, fields []string) row.Outcome {
	rowCtx := row.ProcessRowContext{
		Fields:         fields,
		CanonicalIDCol: p.cfg.CanonicalIDCol,
		LocalIDCol:     p.cfg.LocalIDCol,
		MaxColumn:      p.cfg.MaxColumn(),
	}

	if guard := row.CanProcessRow(rowCtx); !guard.Allowed {
		p.logger.Debug("row rejected", zap.Error(guard.Error()))
		return row.Invalid()
	}
	keys := row.ExtractKeys(rowCtx)

	res, err := p.client.Search(ctx, p.cfg.ResourceType, p.cfg.Directory, keys.CanonicalID)
	if err != nil {
		return p.failure(err)
	}
	if res == nil {
		return row.Warning(fmt.Sprintf("Could not find %s resource with entityID %s", p.cfg.ResourceType, keys.CanonicalID))
	}

	updated := res.WithOtherID(keys.LocalID, p.cfg.CodingSchema)
	if err := p.client.Update(ctx, p.cfg.ResourceType, p.cfg.Directory, updated); err != nil {
		return p.failure(err)
	}

	p.logger.Debug("resource updated",
		zap.String("entity_id", keys.CanonicalID),
		zap.String("local_id", keys.LocalID))
	return row.Success()
}

// failure maps a client error onto a fatal outcome.
func (p *RowProcessor) failure(err error) row.Outcome {
	var transportErr *secondary.TransportError
	if errors.As(err, &transportErr) {
		return row.TransportFailure(transportErr.Error())
	}

	var reqErr *secondary.RequestError
	if errors.As(err, &reqErr) {
		return row.RequestFailure(reqErr.Error())
	}

	p.logger.Warn("unclassified client error", zap.Error(err))
	return row.RequestFailure(err.Error())
}

// Ensure RowProcessor implements the interface.
var _ primary.RowService = (*RowProcessor)(nil)
