package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"perfreport/internal/domain"
	"perfreport/internal/excel"
	"perfreport/internal/report"
	"perfreport/internal/repository"

	"go.uber.org/zap"
)

const DefaultLatestReportName = "Latest Report"

// GeneratedReport is a stored report together with how its inputs were used.
type GeneratedReport struct {
	Report domain.Report `json:"report"`
	Stats  report.Stats  `json:"stats"`
}

// GenerateReport builds a report from exactly one CRM, one ERP and one
// DataCode batch. The period comes from the CRM batch and the stored report
// references the ERP batch.
func (s *Service) GenerateReport(ctx context.Context, ids []int64, name string) (GeneratedReport, error) {
	if err := validateReportIDs(ids); err != nil {
		return GeneratedReport{}, err
	}
	uploads, err := s.store.GetUploadsByIDs(ctx, ids)
	if err != nil {
		return GeneratedReport{}, err
	}
	set, err := classifyUploads(ids, uploads)
	if err != nil {
		return GeneratedReport{}, err
	}
	return s.generate(ctx, set, name, true)
}

// GenerateLatestReport builds a report from the newest batch of each source.
func (s *Service) GenerateLatestReport(ctx context.Context, name string) (GeneratedReport, error) {
	latest, err := s.LatestUploads(ctx)
	if err != nil {
		return GeneratedReport{}, err
	}
	if latest.CRM == nil || latest.ERP == nil || latest.DataCode == nil {
		return GeneratedReport{}, invalidf("latest uploads missing: every source type must be uploaded first")
	}
	if strings.TrimSpace(name) == "" {
		name = DefaultLatestReportName
	}
	return s.generate(ctx, uploadSet{crm: *latest.CRM, erp: *latest.ERP, dataCode: *latest.DataCode}, name, false)
}

type uploadSet struct {
	crm      domain.Upload
	erp      domain.Upload
	dataCode domain.Upload
}

func (s *Service) generate(ctx context.Context, set uploadSet, name string, requireRecords bool) (GeneratedReport, error) {
	crm, err := s.store.ListCRMRecords(ctx, set.crm.UploadID)
	if err != nil {
		return GeneratedReport{}, err
	}
	erp, err := s.store.ListERPRecords(ctx, set.erp.UploadID)
	if err != nil {
		return GeneratedReport{}, err
	}
	mappings, err := s.store.ListMappingRecords(ctx, set.dataCode.UploadID)
	if err != nil {
		return GeneratedReport{}, err
	}
	if requireRecords {
		switch {
		case len(crm) == 0:
			return GeneratedReport{}, invalidf("crm upload %d has no records", set.crm.UploadID)
		case len(erp) == 0:
			return GeneratedReport{}, invalidf("erp upload %d has no records", set.erp.UploadID)
		case len(mappings) == 0:
			return GeneratedReport{}, invalidf("datacode upload %d has no records", set.dataCode.UploadID)
		}
	}

	rows, stats, err := s.engine.GenerateWithStats(erp, mappings, crm, set.crm.Month, set.crm.Year)
	if err != nil {
		return GeneratedReport{}, invalidf("%v", err)
	}
	snapshot, err := json.Marshal(nonNilRows(rows))
	if err != nil {
		return GeneratedReport{}, fmt.Errorf("encode report snapshot: %w", err)
	}

	stored, err := s.store.CreateReport(ctx, repository.ReportInput{
		Name:     strings.TrimSpace(name),
		Month:    set.crm.Month,
		Year:     set.crm.Year,
		UploadID: set.erp.UploadID,
		Snapshot: snapshot,
	})
	if err != nil {
		return GeneratedReport{}, err
	}
	s.log.Info("report generated",
		zap.Int64("report_id", stored.ReportID),
		zap.Int64("crm_upload_id", set.crm.UploadID),
		zap.Int64("erp_upload_id", set.erp.UploadID),
		zap.Int64("datacode_upload_id", set.dataCode.UploadID),
		zap.Int("rows", len(rows)),
	)
	return GeneratedReport{Report: stored, Stats: stats}, nil
}

func nonNilRows(rows []report.ProjectSummaryRow) []report.ProjectSummaryRow {
	if rows == nil {
		return []report.ProjectSummaryRow{}
	}
	return rows
}

func validateReportIDs(ids []int64) error {
	if len(ids) != 3 {
		return invalidf("exactly 3 upload ids are required, one each of CRM, ERP_Sales and DataCode")
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return invalidf("upload ids must be distinct")
		}
		seen[id] = struct{}{}
	}
	return nil
}

func classifyUploads(ids []int64, uploads []domain.Upload) (uploadSet, error) {
	found := make(map[int64]bool, len(uploads))
	byType := make(map[domain.UploadType]domain.Upload, len(uploads))
	for _, u := range uploads {
		found[u.UploadID] = true
		byType[u.UploadType] = u
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, fmt.Sprint(id))
		}
	}
	if len(missing) > 0 {
		return uploadSet{}, invalidf("upload ids not found: %s", strings.Join(missing, ", "))
	}

	required := []domain.UploadType{domain.UploadTypeCRM, domain.UploadTypeERPSales, domain.UploadTypeDataCode}
	var problems []string
	for _, t := range required {
		if _, ok := byType[t]; !ok {
			problems = append(problems, "missing "+string(t))
		}
	}
	var extra []string
	for t := range byType {
		if t != domain.UploadTypeCRM && t != domain.UploadTypeERPSales && t != domain.UploadTypeDataCode {
			extra = append(extra, string(t))
		}
	}
	sort.Strings(extra)
	for _, t := range extra {
		problems = append(problems, "unexpected "+t)
	}
	if len(problems) > 0 {
		return uploadSet{}, invalidf("upload types: %s", strings.Join(problems, "; "))
	}

	return uploadSet{
		crm:      byType[domain.UploadTypeCRM],
		erp:      byType[domain.UploadTypeERPSales],
		dataCode: byType[domain.UploadTypeDataCode],
	}, nil
}

func (s *Service) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	return s.store.GetReport(ctx, id)
}

func (s *Service) LatestReport(ctx context.Context) (*domain.Report, error) {
	return s.store.LatestReport(ctx)
}

func (s *Service) ListReports(ctx context.Context, limit, offset int) ([]domain.Report, error) {
	return s.store.ListReports(ctx, repository.ListFilter{Limit: limit, Offset: offset})
}

// ExportReport writes a stored report as an xlsx workbook.
func (s *Service) ExportReport(ctx context.Context, id int64, w io.Writer) (*domain.Report, error) {
	stored, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := excel.WriteReport(w, stored.Snapshot); err != nil {
		return nil, fmt.Errorf("export report %d: %w", id, err)
	}
	return stored, nil
}

// IsNotFound reports whether err means a requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
