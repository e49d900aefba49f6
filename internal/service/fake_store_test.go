package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"perfreport/internal/domain"
	"perfreport/internal/repository"
)

type fakeStore struct {
	mu          sync.Mutex
	nextID      int64
	now         time.Time
	uploads     map[int64]domain.Upload
	crm         map[int64][]domain.CRMRecord
	erp         map[int64][]domain.ERPRecord
	mappings    map[int64][]domain.MappingRecord
	reports     []domain.Report
	comparisons []domain.Comparison
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		now:      time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC),
		uploads:  map[int64]domain.Upload{},
		crm:      map[int64][]domain.CRMRecord{},
		erp:      map[int64][]domain.ERPRecord{},
		mappings: map[int64][]domain.MappingRecord{},
	}
}

// tick keeps timestamps strictly increasing so ordering is deterministic.
func (f *fakeStore) tick() (int64, time.Time) {
	f.nextID++
	f.now = f.now.Add(time.Minute)
	return f.nextID, f.now
}

func (f *fakeStore) addUpload(t domain.UploadType, input domain.UploadInput) domain.Upload {
	id, at := f.tick()
	u := domain.Upload{
		UploadID:    id,
		UploadType:  t,
		FileName:    input.FileName,
		Name:        input.Name,
		Month:       input.Month,
		Year:        input.Year,
		Description: input.Description,
		UploadedAt:  at,
	}
	f.uploads[id] = u
	return u
}

func (f *fakeStore) CreateCRMUpload(_ context.Context, input domain.UploadInput, records []domain.CRMRecord) (domain.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.addUpload(domain.UploadTypeCRM, input)
	f.crm[u.UploadID] = records
	return u, nil
}

func (f *fakeStore) CreateERPUpload(_ context.Context, input domain.UploadInput, records []domain.ERPRecord) (domain.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.addUpload(domain.UploadTypeERPSales, input)
	f.erp[u.UploadID] = records
	return u, nil
}

func (f *fakeStore) CreateMappingUpload(_ context.Context, input domain.UploadInput, records []domain.MappingRecord) (domain.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.addUpload(domain.UploadTypeDataCode, input)
	f.mappings[u.UploadID] = records
	return u, nil
}

func (f *fakeStore) ListUploads(_ context.Context, uploadType domain.UploadType, _ repository.ListFilter) ([]domain.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Upload
	for _, u := range f.uploads {
		if u.UploadType == uploadType {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadID > out[j].UploadID })
	return out, nil
}

func (f *fakeStore) GetUpload(_ context.Context, id int64) (*domain.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeStore) GetUploadsByIDs(_ context.Context, ids []int64) ([]domain.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Upload
	for _, id := range ids {
		if u, ok := f.uploads[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) LatestUpload(_ context.Context, uploadType domain.UploadType) (*domain.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.Upload
	for _, u := range f.uploads {
		if u.UploadType != uploadType {
			continue
		}
		if latest == nil || u.UploadID > latest.UploadID {
			copied := u
			latest = &copied
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (f *fakeStore) ListCRMRecords(_ context.Context, uploadID int64) ([]domain.CRMRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.crm[uploadID], nil
}

func (f *fakeStore) ListERPRecords(_ context.Context, uploadID int64) ([]domain.ERPRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.erp[uploadID], nil
}

func (f *fakeStore) ListMappingRecords(_ context.Context, uploadID int64) ([]domain.MappingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mappings[uploadID], nil
}

func (f *fakeStore) addReport(name, month, year string, uploadID int64, snapshot json.RawMessage) domain.Report {
	id, at := f.tick()
	r := domain.Report{ReportID: id, Name: name, Month: month, Year: year, UploadID: uploadID, GeneratedAt: at, Snapshot: snapshot}
	f.reports = append(f.reports, r)
	return r
}

func (f *fakeStore) CreateReport(_ context.Context, input repository.ReportInput) (domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addReport(input.Name, input.Month, input.Year, input.UploadID, input.Snapshot), nil
}

func (f *fakeStore) CreateChatReport(_ context.Context, upload domain.UploadInput, snapshot json.RawMessage) (domain.Upload, domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.addUpload(domain.UploadTypeChatReport, upload)
	return u, f.addReport(upload.Name, upload.Month, upload.Year, u.UploadID, snapshot), nil
}

func (f *fakeStore) GetReport(_ context.Context, id int64) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reports {
		if r.ReportID == id {
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) LatestReport(_ context.Context) (*domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reports) == 0 {
		return nil, repository.ErrNotFound
	}
	r := f.reports[len(f.reports)-1]
	return &r, nil
}

func (f *fakeStore) ListReports(_ context.Context, _ repository.ListFilter) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Report, 0, len(f.reports))
	for i := len(f.reports) - 1; i >= 0; i-- {
		r := f.reports[i]
		r.Snapshot = nil
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) CreateComparison(_ context.Context, input repository.ComparisonInput) (domain.Comparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, at := f.tick()
	c := domain.Comparison{
		ComparisonID:  input.ComparisonID,
		SessionID:     input.SessionID,
		QueryText:     input.QueryText,
		OldReportSize: input.OldReportSize,
		NewReportSize: input.NewReportSize,
		Status:        domain.ComparisonPending,
		CreatedAt:     at,
	}
	f.comparisons = append(f.comparisons, c)
	return c, nil
}

func (f *fakeStore) FinishComparison(_ context.Context, id string, status domain.ComparisonStatus, result, errMessage *string) (*domain.Comparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == domain.ComparisonPending {
		return nil, errors.New("invalid final status")
	}
	for i := range f.comparisons {
		if f.comparisons[i].ComparisonID == id {
			f.comparisons[i].Status = status
			f.comparisons[i].Result = result
			f.comparisons[i].Error = errMessage
			c := f.comparisons[i]
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) GetComparison(_ context.Context, id string) (*domain.Comparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.comparisons {
		if c.ComparisonID == id {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ListComparisons(_ context.Context, sessionID string, _ repository.ListFilter) ([]domain.Comparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Comparison
	for i := len(f.comparisons) - 1; i >= 0; i-- {
		if sessionID == "" || f.comparisons[i].SessionID == sessionID {
			out = append(out, f.comparisons[i])
		}
	}
	return out, nil
}

func (f *fakeStore) ComparisonHistory(_ context.Context, sessionID string) ([]domain.Comparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Comparison
	for _, c := range f.comparisons {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ Store = (*fakeStore)(nil)
var _ Store = (*repository.Repository)(nil)

type chatCall struct {
	agentID   string
	sessionID string
	message   string
}

type fakeAgent struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []chatCall
}

func (a *fakeAgent) Chat(_ context.Context, agentID, sessionID, message string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, chatCall{agentID: agentID, sessionID: sessionID, message: message})
	if a.err != nil {
		return "", a.err
	}
	if len(a.replies) == 0 {
		return "", nil
	}
	reply := a.replies[0]
	a.replies = a.replies[1:]
	return reply, nil
}
