package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"perfreport/internal/domain"
	"perfreport/internal/report"
	"perfreport/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrAgentDisabled  = errors.New("chat agent is not configured")
)

// Store is the persistence the service needs. *repository.Repository
// satisfies it.
type Store interface {
	CreateCRMUpload(ctx context.Context, input domain.UploadInput, records []domain.CRMRecord) (domain.Upload, error)
	CreateERPUpload(ctx context.Context, input domain.UploadInput, records []domain.ERPRecord) (domain.Upload, error)
	CreateMappingUpload(ctx context.Context, input domain.UploadInput, records []domain.MappingRecord) (domain.Upload, error)
	ListUploads(ctx context.Context, uploadType domain.UploadType, filter repository.ListFilter) ([]domain.Upload, error)
	GetUpload(ctx context.Context, id int64) (*domain.Upload, error)
	GetUploadsByIDs(ctx context.Context, ids []int64) ([]domain.Upload, error)
	LatestUpload(ctx context.Context, uploadType domain.UploadType) (*domain.Upload, error)

	ListCRMRecords(ctx context.Context, uploadID int64) ([]domain.CRMRecord, error)
	ListERPRecords(ctx context.Context, uploadID int64) ([]domain.ERPRecord, error)
	ListMappingRecords(ctx context.Context, uploadID int64) ([]domain.MappingRecord, error)

	CreateReport(ctx context.Context, input repository.ReportInput) (domain.Report, error)
	CreateChatReport(ctx context.Context, upload domain.UploadInput, snapshot json.RawMessage) (domain.Upload, domain.Report, error)
	GetReport(ctx context.Context, id int64) (*domain.Report, error)
	LatestReport(ctx context.Context) (*domain.Report, error)
	ListReports(ctx context.Context, filter repository.ListFilter) ([]domain.Report, error)

	CreateComparison(ctx context.Context, input repository.ComparisonInput) (domain.Comparison, error)
	FinishComparison(ctx context.Context, id string, status domain.ComparisonStatus, result, errMessage *string) (*domain.Comparison, error)
	GetComparison(ctx context.Context, id string) (*domain.Comparison, error)
	ListComparisons(ctx context.Context, sessionID string, filter repository.ListFilter) ([]domain.Comparison, error)
	ComparisonHistory(ctx context.Context, sessionID string) ([]domain.Comparison, error)
}

// Chatter sends one message to a hosted agent. *agent.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, agentID, sessionID, message string) (string, error)
}

type Options struct {
	// Agent may be nil, in which case chat and comparison calls fail with
	// ErrAgentDisabled.
	Agent          Chatter
	ReportAgentID  string
	CompareAgentID string
	Logger         *zap.Logger
}

type Service struct {
	store          Store
	engine         *report.Engine
	agent          Chatter
	reportAgentID  string
	compareAgentID string
	log            *zap.Logger
}

func New(store Store, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:          store,
		engine:         report.NewEngine(log.Named("engine")),
		agent:          opts.Agent,
		reportAgentID:  opts.ReportAgentID,
		compareAgentID: opts.CompareAgentID,
		log:            log,
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
