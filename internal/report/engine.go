package report

import (
	"errors"
	"fmt"
	"math"

	"perfreport/internal/domain"

	"go.uber.org/zap"
)

// Expected exclusions. Records hitting these are dropped quietly; anything
// else returned while evaluating a record is a data fault and logged as such.
var (
	errNoSalesDate     = errors.New("missing sales date")
	errOutsideWindow   = errors.New("outside fiscal year")
	errNotEligible     = errors.New("not eligible")
	errNoRevenueInYear = errors.New("no scheduled revenue in fiscal year")
)

var errNoProjectName = errors.New("missing project name")

// Stats counts how each input record was handled during one build.
type Stats struct {
	ERPIncluded int `json:"erp_included"`
	ERPExcluded int `json:"erp_excluded"`
	ERPFailed   int `json:"erp_failed"`
	CRMIncluded int `json:"crm_included"`
	CRMExcluded int `json:"crm_excluded"`
	CRMFailed   int `json:"crm_failed"`
}

type Engine struct {
	log *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

// Generate builds a performance report with a no-op logger.
func Generate(
	erp []domain.ERPRecord,
	mappings []domain.MappingRecord,
	crm []domain.CRMRecord,
	month, year string,
) ([]ProjectSummaryRow, error) {
	return NewEngine(nil).Generate(erp, mappings, crm, month, year)
}

func (e *Engine) Generate(
	erp []domain.ERPRecord,
	mappings []domain.MappingRecord,
	crm []domain.CRMRecord,
	month, year string,
) ([]ProjectSummaryRow, error) {
	rows, _, err := e.GenerateWithStats(erp, mappings, crm, month, year)
	return rows, err
}

// GenerateWithStats fuses ERP postings and amortized CRM contracts into one
// row per project code. ERP rows come first, each group in first-seen order.
// Only an unparseable period fails the build; bad records are skipped.
func (e *Engine) GenerateWithStats(
	erp []domain.ERPRecord,
	mappings []domain.MappingRecord,
	crm []domain.CRMRecord,
	month, year string,
) ([]ProjectSummaryRow, Stats, error) {
	var stats Stats
	window, err := FiscalWindowFor(month, year)
	if err != nil {
		return nil, stats, err
	}
	log := e.log.With(zap.String("period", month+"/"+year), zap.Stringer("fiscal_year", window))
	parents := NewParentCodes(mappings)

	erpRows := newRowSet()
	for idx, rec := range erp {
		c, err := erpContribution(rec, window, parents)
		if err != nil {
			if isExclusion(err) {
				stats.ERPExcluded++
				log.Debug("erp record excluded", zap.Int("index", idx), zap.String("job_no", rec.JobNo), zap.Error(err))
			} else {
				stats.ERPFailed++
				log.Warn("erp record skipped", zap.Int("index", idx), zap.String("job_no", rec.JobNo), zap.Error(err))
			}
			continue
		}
		row := erpRows.get(c.code, func() *ProjectSummaryRow {
			return &ProjectSummaryRow{
				ParentCode:  c.parentCode,
				ClientName:  rec.ClientName,
				ProjectName: rec.ProjectName,
				Rank:        RankSA,
				ProjectCode: c.code,
			}
		})
		row.Add(c.fiscalMonth, c.amount)
		stats.ERPIncluded++
	}

	crmRows := newRowSet()
	for idx, rec := range crm {
		c, err := crmContribution(rec, window, parents)
		if err != nil {
			if isExclusion(err) {
				stats.CRMExcluded++
				log.Debug("crm record excluded", zap.Int("index", idx), zap.Int64("project_id", rec.ProjectID), zap.Error(err))
			} else {
				stats.CRMFailed++
				log.Warn("crm record skipped", zap.Int("index", idx), zap.Int64("project_id", rec.ProjectID), zap.Error(err))
			}
			continue
		}
		row := crmRows.get(c.code, func() *ProjectSummaryRow {
			return &ProjectSummaryRow{
				ParentCode:  c.parentCode,
				ClientName:  rec.CompanyName,
				ProjectName: rec.ProjectName,
				Rank:        c.rank,
				ProjectCode: c.code,
			}
		})
		for _, inst := range c.installments {
			row.Add(FiscalMonthIndex(inst.Month.Month()), inst.Amount)
		}
		stats.CRMIncluded++
	}

	result := append(erpRows.list(), crmRows.list()...)
	log.Info("performance report built",
		zap.Int("projects", len(result)),
		zap.Int("erp_included", stats.ERPIncluded),
		zap.Int("erp_failed", stats.ERPFailed),
		zap.Int("crm_included", stats.CRMIncluded),
		zap.Int("crm_failed", stats.CRMFailed),
	)
	return result, stats, nil
}

type erpEntry struct {
	code        string
	parentCode  string
	fiscalMonth int
	amount      float64
}

func erpContribution(rec domain.ERPRecord, window FiscalWindow, parents *ParentCodes) (erpEntry, error) {
	if rec.SalesDate == nil {
		return erpEntry{}, errNoSalesDate
	}
	if !window.Contains(*rec.SalesDate) {
		return erpEntry{}, fmt.Errorf("%w: %s", errOutsideWindow, rec.SalesDate.Format("2006-01-02"))
	}
	if rec.ProjectName == "" {
		return erpEntry{}, errNoProjectName
	}
	code, err := ERPProjectCode(rec.JobNo)
	if err != nil {
		return erpEntry{}, err
	}
	profit := 0.0
	if rec.OperatingProfit != nil {
		profit = *rec.OperatingProfit
	}
	if math.IsNaN(profit) || math.IsInf(profit, 0) {
		return erpEntry{}, fmt.Errorf("invalid operating profit %v", profit)
	}
	return erpEntry{
		code:        code,
		parentCode:  parents.Resolve(rec.ProjectName, rec.ClientName),
		fiscalMonth: FiscalMonthIndex(rec.SalesDate.Month()),
		amount:      profit,
	}, nil
}

type crmEntry struct {
	code         string
	parentCode   string
	rank         Rank
	installments []Installment
}

func crmContribution(rec domain.CRMRecord, window FiscalWindow, parents *ParentCodes) (crmEntry, error) {
	rank := ExtractRank(rec.Phase)
	if !Eligible(rank, rec.HighPotential) {
		return crmEntry{}, fmt.Errorf("%w: rank %s, high potential %t", errNotEligible, rank, rec.HighPotential)
	}
	if rec.BillingCount != nil && (*rec.BillingCount < 0 || *rec.BillingCount > MaxBillingCount) {
		return crmEntry{}, fmt.Errorf("invalid billing count %d", *rec.BillingCount)
	}
	total := 0.0
	if rec.OrderAmountNet != nil {
		net := *rec.OrderAmountNet
		if math.IsNaN(net) || math.IsInf(net, 0) {
			return crmEntry{}, fmt.Errorf("invalid net order amount %v", net)
		}
		total = net * OrderAmountScale
	}

	schedule := AmortizationSchedule(total, rec.BillingCount, rec.ContractStartDate, rec.ContractEndDate)
	inWindow := make([]Installment, 0, len(schedule))
	for _, inst := range schedule {
		if window.Contains(inst.Month) {
			inWindow = append(inWindow, inst)
		}
	}
	if len(inWindow) == 0 {
		return crmEntry{}, errNoRevenueInYear
	}

	return crmEntry{
		code:         CRMProjectCode(rec.ProjectID),
		parentCode:   parents.Resolve(rec.ProjectName, rec.CompanyName),
		rank:         DisplayRank(rank),
		installments: inWindow,
	}, nil
}

func isExclusion(err error) bool {
	return errors.Is(err, errNoSalesDate) ||
		errors.Is(err, errOutsideWindow) ||
		errors.Is(err, errNotEligible) ||
		errors.Is(err, errNoRevenueInYear)
}

// rowSet keeps rows keyed by project code in first-seen order.
type rowSet struct {
	order []string
	rows  map[string]*ProjectSummaryRow
}

func newRowSet() *rowSet {
	return &rowSet{rows: make(map[string]*ProjectSummaryRow)}
}

func (s *rowSet) get(code string, create func() *ProjectSummaryRow) *ProjectSummaryRow {
	if row, ok := s.rows[code]; ok {
		return row
	}
	row := create()
	s.rows[code] = row
	s.order = append(s.order, code)
	return row
}

func (s *rowSet) list() []ProjectSummaryRow {
	out := make([]ProjectSummaryRow, 0, len(s.order))
	for _, code := range s.order {
		out = append(out, *s.rows[code])
	}
	return out
}
