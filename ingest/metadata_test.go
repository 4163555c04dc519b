package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferMetadata_FromFilename(t *testing.T) {
	tests := []struct {
		filename   string
		department string
		country    string
		policyName string
	}{
		{"HR_Leave_Policy_India.txt", "hr", "india", "HR_Leave_Policy_India"},
		{"payroll-foreign.md", "finance", "foreign", "payroll-foreign"},
		{"Information Technology security.txt", "it", "", "Information Technology security"},
		{"company_code_of_conduct.txt", "common", "", "company_code_of_conduct"},
		{"eng_onboarding_international.txt", "engineering", "foreign", "eng_onboarding_international"},
		{"travel_non_common.txt", "common", "foreign", "travel_non_common"},
		{"indian_foreign_travel.txt", "", "india", "indian_foreign_travel"},
		{"docs/nested/product_roadmap.txt", "product", "", "product_roadmap"},
		{"handbook.txt", "", "", "handbook"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := InferMetadata(tt.filename, nil)
			assert.Equal(t, tt.department, got.Department)
			assert.Equal(t, tt.country, got.Country)
			assert.Equal(t, tt.policyName, got.PolicyName)
		})
	}
}

func TestInferMetadata_ManifestOverrides(t *testing.T) {
	manifest := Manifest{
		"handbook": {PolicyName: "Employee Handbook", Department: "common"},
		"hr_india_salaries.txt": {Country: "foreign", Visibility: "hr_only"},
	}

	got := InferMetadata("Handbook.txt", manifest)
	assert.Equal(t, "Employee Handbook", got.PolicyName)
	assert.Equal(t, "common", got.Department)

	got = InferMetadata("hr_india_salaries.txt", manifest)
	assert.Equal(t, "hr", got.Department, "empty manifest field keeps the inferred value")
	assert.Equal(t, "foreign", got.Country)
	assert.Equal(t, "hr_only", got.Visibility)
	assert.Equal(t, "hr_india_salaries", got.PolicyName)
}

func TestLoadManifest(t *testing.T) {
	csv := "File,Dept,Country,Visibility\n" +
		"Handbook.txt,Common,,\n" +
		" ,hr,india,\n" +
		"salaries.txt,HR,India,HR_ONLY\n"

	m, err := LoadManifest(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, m, 2)

	e, ok := m.Lookup("handbook.TXT")
	require.True(t, ok)
	assert.Equal(t, "common", e.Department)
	assert.Equal(t, "Handbook.txt", e.PolicyName)

	e, ok = m.Lookup("salaries.txt")
	require.True(t, ok)
	assert.Equal(t, "india", e.Country)
	assert.Equal(t, "hr_only", e.Visibility)
}

func TestLoadManifest_NoKeyColumn(t *testing.T) {
	_, err := LoadManifest(strings.NewReader("department,country\nhr,india\n"))
	assert.Error(t, err)

	m, err := LoadManifest(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestMetadataMap_DefaultsVisibility(t *testing.T) {
	meta := Metadata{PolicyName: "Leave", Department: "hr"}.Map("hr_leave.txt")
	assert.Equal(t, "all", meta["visibility"])
	assert.Equal(t, "hr_leave.txt", meta["source"])
}
