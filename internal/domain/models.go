package domain

import (
	"encoding/json"
	"time"
)

type UploadType string

const (
	UploadTypeCRM        UploadType = "CRM"
	UploadTypeERPSales   UploadType = "ERP_Sales"
	UploadTypeDataCode   UploadType = "DataCode"
	UploadTypeChatReport UploadType = "CHAT_REPORT"
)

type Upload struct {
	UploadID    int64      `json:"upload_id"`
	UploadType  UploadType `json:"upload_type"`
	FileName    string     `json:"file_name"`
	Name        string     `json:"name"`
	Month       string     `json:"month"`
	Year        string     `json:"year"`
	Description *string    `json:"description,omitempty"`
	UploadedAt  time.Time  `json:"timestamp"`
}

// UploadInput is the batch metadata that accompanies every upload.
type UploadInput struct {
	FileName    string  `json:"file_name"`
	Name        string  `json:"name"`
	Month       string  `json:"month"`
	Year        string  `json:"year"`
	Description *string `json:"description,omitempty"`
}

type CRMRecord struct {
	ID                int64      `json:"id,omitempty"`
	UploadID          int64      `json:"upload_id,omitempty"`
	ProjectID         int64      `json:"project_id"`
	Status            string     `json:"status"`
	Phase             string     `json:"phase"`
	CompanyName       string     `json:"company_name"`
	Department        string     `json:"department"`
	ProjectName       string     `json:"project_name"`
	ProjectManager    string     `json:"project_manager"`
	PM                string     `json:"pm"`
	OrderAmountGross  *float64   `json:"order_amount_gross,omitempty"`
	OrderAmountNet    *float64   `json:"order_amount_net,omitempty"`
	Unit              string     `json:"unit"`
	ContractStartDate *time.Time `json:"contract_start_date,omitempty"`
	ContractEndDate   *time.Time `json:"contract_end_date,omitempty"`
	BillingCount      *int       `json:"billing_method,omitempty"`
	HighPotential     bool       `json:"high_potential_mark"`
}

type ERPRecord struct {
	ID              int64      `json:"id,omitempty"`
	UploadID        int64      `json:"upload_id,omitempty"`
	JobNo           string     `json:"job_no"`
	ClientCode      string     `json:"client_code"`
	ClientName      string     `json:"client_name"`
	ProjectName     string     `json:"project_name"`
	SalesAmount     *float64   `json:"sales_amount,omitempty"`
	OperatingProfit *float64   `json:"operating_profit,omitempty"`
	SalesDate       *time.Time `json:"sales_date,omitempty"`
	ProgressStatus  string     `json:"progress_status"`
}

type MappingRecord struct {
	ID             int64  `json:"id,omitempty"`
	UploadID       int64  `json:"upload_id,omitempty"`
	CustomerName   string `json:"customer_name"`
	DepartmentName string `json:"department_name"`
	ParentCode     string `json:"parent_code"`
	ProjectName    string `json:"project_name"`
}

// Report is a stored report snapshot. Snapshot holds the serialized rows as
// they were produced (engine output or a validated chat report).
type Report struct {
	ReportID    int64           `json:"report_id"`
	Name        string          `json:"name"`
	Month       string          `json:"month"`
	Year        string          `json:"year"`
	UploadID    int64           `json:"upload_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Snapshot    json.RawMessage `json:"report_snapshot,omitempty"`
}

type ComparisonStatus string

const (
	ComparisonPending ComparisonStatus = "pending"
	ComparisonSuccess ComparisonStatus = "success"
	ComparisonError   ComparisonStatus = "error"
)

type Comparison struct {
	ComparisonID  string           `json:"comparison_id"`
	SessionID     string           `json:"session_id"`
	QueryText     string           `json:"query_text"`
	OldReportSize int              `json:"old_report_size"`
	NewReportSize int              `json:"new_report_size"`
	Status        ComparisonStatus `json:"status"`
	Result        *string          `json:"result,omitempty"`
	Error         *string          `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

type LatestUploads struct {
	CRM      *Upload `json:"crm"`
	ERP      *Upload `json:"erp"`
	DataCode *Upload `json:"datacode"`
}
