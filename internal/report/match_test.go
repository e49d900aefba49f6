package report

import (
	"testing"

	"perfreport/internal/domain"
)

func TestERPProjectCode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"123", "0000123"},
		{"45", "0000045"},
		{"0000045", "0000045"},
		{" 98765 ", "0098765"},
		{"12345678", "12345678"},
		{"１２３", "0000123"},
		{"JOB-99", "JOB-99"},
		{" JOB-7 ", " JOB-7 "},
		{"0", "0000000"},
	}
	for _, tt := range tests {
		got, err := ERPProjectCode(tt.in)
		if err != nil {
			t.Fatalf("ERPProjectCode(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ERPProjectCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ERPProjectCode("  "); err == nil {
		t.Fatal("expected error for blank job number")
	}
}

func TestCRMProjectCode(t *testing.T) {
	if got := CRMProjectCode(45); got != "0000045" {
		t.Fatalf("CRMProjectCode(45) = %q", got)
	}
	if got := CRMProjectCode(12345678); got != "12345678" {
		t.Fatalf("CRMProjectCode(12345678) = %q", got)
	}
}

func TestParentCodesResolve(t *testing.T) {
	parents := NewParentCodes([]domain.MappingRecord{
		{ProjectName: "Alpha", ParentCode: "P001"},
		{ProjectName: "Alpha", ParentCode: "P999"},
		{ProjectName: "Beta", ParentCode: ""},
		{ProjectName: "Delta", ParentCode: "  "},
		{ProjectName: "", ParentCode: "P404"},
	})

	tests := []struct {
		name, project, fallback, want string
	}{
		{"first mapping wins", "Alpha", "Acme", "P001"},
		{"empty code falls back", "Beta", "Acme", "Acme"},
		{"unmapped falls back", "Gamma", "Acme", "Acme"},
		{"blank code is kept as mapped", "Delta", "Acme", "  "},
		{"nothing to fall back on", "Gamma", "", DefaultParentCode},
		{"empty project never matches", "", "", DefaultParentCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parents.Resolve(tt.project, tt.fallback); got != tt.want {
				t.Fatalf("Resolve(%q, %q) = %q, want %q", tt.project, tt.fallback, got, tt.want)
			}
		})
	}

	var none *ParentCodes
	if got := none.Resolve("Alpha", ""); got != DefaultParentCode {
		t.Fatalf("nil index Resolve = %q", got)
	}
}
