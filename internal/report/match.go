package report

import (
	"errors"
	"fmt"
	"strings"

	"perfreport/internal/domain"

	"golang.org/x/text/width"
)

// DefaultParentCode is used when neither the mapping table nor the record
// itself names a parent.
const DefaultParentCode = "-"

const projectCodeWidth = 7

var errMissingJobNo = errors.New("missing job number")

// ParentCodes indexes the mapping table by exact project name. When several
// rows share a name the first one wins.
type ParentCodes struct {
	byProject map[string]string
}

func NewParentCodes(mappings []domain.MappingRecord) *ParentCodes {
	index := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if m.ProjectName == "" {
			continue
		}
		if _, exists := index[m.ProjectName]; exists {
			continue
		}
		index[m.ProjectName] = m.ParentCode
	}
	return &ParentCodes{byProject: index}
}

// Resolve returns the mapped parent code for projectName, then fallback
// (the record's own client or company name), then DefaultParentCode.
func (p *ParentCodes) Resolve(projectName, fallback string) string {
	if p != nil {
		if code := p.byProject[projectName]; code != "" {
			return code
		}
	}
	if name := strings.TrimSpace(fallback); name != "" {
		return name
	}
	return DefaultParentCode
}

// ERPProjectCode zero-pads purely numeric job numbers to seven digits and
// keeps any other job number verbatim.
func ERPProjectCode(jobNo string) (string, error) {
	value := strings.TrimSpace(jobNo)
	if value == "" {
		return "", errMissingJobNo
	}
	folded := width.Fold.String(value)
	if !isDigits(folded) {
		return jobNo, nil
	}
	digits := strings.TrimLeft(folded, "0")
	if digits == "" {
		digits = "0"
	}
	if len(digits) < projectCodeWidth {
		digits = strings.Repeat("0", projectCodeWidth-len(digits)) + digits
	}
	return digits, nil
}

func CRMProjectCode(projectID int64) string {
	return fmt.Sprintf("%0*d", projectCodeWidth, projectID)
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
