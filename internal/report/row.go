package report

import (
	"bytes"
	"encoding/json"
)

const (
	FieldParentCode  = "親コード"
	FieldClientName  = "顧客名"
	FieldProjectName = "案件名"
	FieldRank        = "案件ランク"
	FieldProjectCode = "案件コード"
	FieldNetSales    = "純売上額"
)

// Columns returns the serialized field order of a summary row.
func Columns() []string {
	cols := []string{FieldParentCode, FieldClientName, FieldProjectName, FieldRank, FieldProjectCode}
	cols = append(cols, MonthLabels[:]...)
	return append(cols, FieldNetSales)
}

// ProjectSummaryRow is one project line of a performance report. Months and
// NetSales must only change through Add so NetSales stays equal to the sum of
// Months.
type ProjectSummaryRow struct {
	ParentCode  string
	ClientName  string
	ProjectName string
	Rank        Rank
	ProjectCode string
	Months      [12]float64
	NetSales    float64
}

func (r *ProjectSummaryRow) Add(fiscalMonth int, amount float64) {
	r.Months[fiscalMonth] += amount
	r.NetSales += amount
}

func (r ProjectSummaryRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	fields := []struct {
		key   string
		value any
	}{
		{FieldParentCode, r.ParentCode},
		{FieldClientName, r.ClientName},
		{FieldProjectName, r.ProjectName},
		{FieldRank, r.Rank},
		{FieldProjectCode, r.ProjectCode},
	}
	for _, f := range fields {
		if err := write(f.key, f.value); err != nil {
			return nil, err
		}
	}
	for i, label := range MonthLabels {
		if err := write(label, r.Months[i]); err != nil {
			return nil, err
		}
	}
	if err := write(FieldNetSales, r.NetSales); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
