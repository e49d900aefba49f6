package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"perfreport/internal/domain"
	"perfreport/internal/excel"
	"perfreport/internal/report"
	"perfreport/internal/repository"

	"go.uber.org/zap"
)

// UploadKind is the short name of an uploadable source used in routes and
// CLI flags.
type UploadKind string

const (
	KindCRM      UploadKind = "crm"
	KindERP      UploadKind = "erp"
	KindDataCode UploadKind = "datacode"
)

func ParseUploadKind(raw string) (UploadKind, error) {
	switch kind := UploadKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case KindCRM, KindERP, KindDataCode:
		return kind, nil
	}
	return "", invalidf("unknown upload kind %q", raw)
}

func (k UploadKind) Type() domain.UploadType {
	switch k {
	case KindCRM:
		return domain.UploadTypeCRM
	case KindERP:
		return domain.UploadTypeERPSales
	default:
		return domain.UploadTypeDataCode
	}
}

type UploadResult struct {
	Upload  domain.Upload `json:"upload"`
	Records int           `json:"records"`
}

// UploadDetail is a stored batch together with its raw records.
type UploadDetail struct {
	Upload  domain.Upload `json:"upload"`
	Records any           `json:"records"`
}

// UploadFile parses a spreadsheet or CSV export and stores it as one batch.
func (s *Service) UploadFile(ctx context.Context, kind UploadKind, input domain.UploadInput, fileName string, r io.Reader) (UploadResult, error) {
	if strings.TrimSpace(input.FileName) == "" {
		input.FileName = fileName
	}
	if err := validateUploadInput(kind, &input); err != nil {
		return UploadResult{}, err
	}

	switch kind {
	case KindCRM:
		records, err := excel.ParseCRM(fileName, r)
		if err != nil {
			return UploadResult{}, invalidf("parse crm file: %v", err)
		}
		return s.storeCRM(ctx, input, records)
	case KindERP:
		records, err := excel.ParseERP(fileName, r)
		if err != nil {
			return UploadResult{}, invalidf("parse erp file: %v", err)
		}
		return s.storeERP(ctx, input, records)
	default:
		records, err := excel.ParseMappings(fileName, r)
		if err != nil {
			return UploadResult{}, invalidf("parse datacode file: %v", err)
		}
		return s.storeMappings(ctx, input, records)
	}
}

// UploadRecords stores a batch sent as JSON objects keyed by column label.
func (s *Service) UploadRecords(ctx context.Context, kind UploadKind, input domain.UploadInput, records []map[string]any) (UploadResult, error) {
	if err := validateUploadInput(kind, &input); err != nil {
		return UploadResult{}, err
	}

	switch kind {
	case KindCRM:
		parsed, err := excel.CRMFromRecords(records)
		if err != nil {
			return UploadResult{}, invalidf("%v", err)
		}
		return s.storeCRM(ctx, input, parsed)
	case KindERP:
		parsed, err := excel.ERPFromRecords(records)
		if err != nil {
			return UploadResult{}, invalidf("%v", err)
		}
		return s.storeERP(ctx, input, parsed)
	default:
		parsed, err := excel.MappingsFromRecords(records)
		if err != nil {
			return UploadResult{}, invalidf("%v", err)
		}
		return s.storeMappings(ctx, input, parsed)
	}
}

func (s *Service) storeCRM(ctx context.Context, input domain.UploadInput, records []domain.CRMRecord) (UploadResult, error) {
	upload, err := s.store.CreateCRMUpload(ctx, input, records)
	if err != nil {
		return UploadResult{}, err
	}
	s.logUpload(upload, len(records))
	return UploadResult{Upload: upload, Records: len(records)}, nil
}

func (s *Service) storeERP(ctx context.Context, input domain.UploadInput, records []domain.ERPRecord) (UploadResult, error) {
	upload, err := s.store.CreateERPUpload(ctx, input, records)
	if err != nil {
		return UploadResult{}, err
	}
	s.logUpload(upload, len(records))
	return UploadResult{Upload: upload, Records: len(records)}, nil
}

func (s *Service) storeMappings(ctx context.Context, input domain.UploadInput, records []domain.MappingRecord) (UploadResult, error) {
	upload, err := s.store.CreateMappingUpload(ctx, input, records)
	if err != nil {
		return UploadResult{}, err
	}
	s.logUpload(upload, len(records))
	return UploadResult{Upload: upload, Records: len(records)}, nil
}

func (s *Service) logUpload(upload domain.Upload, records int) {
	s.log.Info("upload stored",
		zap.Int64("upload_id", upload.UploadID),
		zap.String("type", string(upload.UploadType)),
		zap.String("period", upload.Month+"/"+upload.Year),
		zap.Int("records", records),
	)
}

// validateUploadInput trims the batch metadata. A CRM batch sets the report
// period, so its month and year must parse.
func validateUploadInput(kind UploadKind, input *domain.UploadInput) error {
	input.FileName = strings.TrimSpace(input.FileName)
	input.Name = strings.TrimSpace(input.Name)
	input.Month = strings.TrimSpace(input.Month)
	input.Year = strings.TrimSpace(input.Year)
	input.Description = normalizeNullable(input.Description)

	if input.Name == "" {
		return invalidf("name is required")
	}
	if input.Month == "" || input.Year == "" {
		return invalidf("month and year are required")
	}
	if kind == KindCRM {
		if _, err := report.FiscalWindowFor(input.Month, input.Year); err != nil {
			return invalidf("%v", err)
		}
	}
	return nil
}

func (s *Service) ListUploads(ctx context.Context, kind UploadKind, limit, offset int) ([]domain.Upload, error) {
	return s.store.ListUploads(ctx, kind.Type(), repository.ListFilter{Limit: limit, Offset: offset})
}

// GetUpload returns a batch of the given kind with its records. A batch of a
// different kind is reported as not found.
func (s *Service) GetUpload(ctx context.Context, kind UploadKind, id int64) (UploadDetail, error) {
	upload, err := s.store.GetUpload(ctx, id)
	if err != nil {
		return UploadDetail{}, err
	}
	if upload.UploadType != kind.Type() {
		return UploadDetail{}, repository.ErrNotFound
	}

	detail := UploadDetail{Upload: *upload}
	switch kind {
	case KindCRM:
		detail.Records, err = s.store.ListCRMRecords(ctx, id)
	case KindERP:
		detail.Records, err = s.store.ListERPRecords(ctx, id)
	default:
		detail.Records, err = s.store.ListMappingRecords(ctx, id)
	}
	if err != nil {
		return UploadDetail{}, err
	}
	return detail, nil
}

// LatestUploads returns the newest batch of each source; missing ones are nil.
func (s *Service) LatestUploads(ctx context.Context) (domain.LatestUploads, error) {
	var latest domain.LatestUploads
	targets := []struct {
		uploadType domain.UploadType
		dst        **domain.Upload
	}{
		{domain.UploadTypeCRM, &latest.CRM},
		{domain.UploadTypeERPSales, &latest.ERP},
		{domain.UploadTypeDataCode, &latest.DataCode},
	}
	for _, target := range targets {
		upload, err := s.store.LatestUpload(ctx, target.uploadType)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return domain.LatestUploads{}, fmt.Errorf("latest uploads: %w", err)
		}
		*target.dst = upload
	}
	return latest, nil
}
