package usecase

import (
	"context"
	"strings"

	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/entity"
	domainErrors "github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/errors"
	"github.com/francisco-dev-ao/loja356-25-sub001/internal/domain/repository"
)

// AuditService exposes the callback audit trail
type AuditService struct {
	records repository.CallbackRecordRepository
}

// NewAuditService creates a new audit service
func NewAuditService(records repository.CallbackRecordRepository) *AuditService {
	return &AuditService{records: records}
}

// ListCallbacks returns the callbacks received for reference, newest first
func (s *AuditService) ListCallbacks(ctx context.Context, reference string, params entity.PaginationParams) (*entity.PaginatedCallbacksResponse, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domainErrors.NewValidationError("reference", "must not be empty")
	}
	params.Validate()

	records, total, err := s.records.ListByReference(ctx, reference, params.Offset(), params.Limit)
	if err != nil {
		return nil, err
	}

	return &entity.PaginatedCallbacksResponse{
		Reference:  reference,
		Data:       records,
		Pagination: entity.NewPaginationMeta(params.Page, params.Limit, total),
	}, nil
}
