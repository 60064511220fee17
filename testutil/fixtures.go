package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// KCCSchemesJSON is a single backend-shape scheme list
const KCCSchemesJSON = `[{
	"id": "s1",
	"name": "KCC",
	"category": "agriculture",
	"shortDescription": "desc",
	"eligibility": ["a", "b"],
	"benefits": ["c"],
	"requiredDocuments": [],
	"eligibleRoles": [],
	"tags": [],
	"is_new": true,
	"created_at": "2024-01-01"
}]`

// SampleSchemesJSON is a backend-shape scheme list with optional fields mixed in
const SampleSchemesJSON = `[
	{
		"id": "s1",
		"name": "Kisan Credit Card",
		"category": "agriculture",
		"shortDescription": "Short-term credit for farmers",
		"eligibility": ["Farmers", "Tenant farmers"],
		"benefits": ["Credit up to 3 lakh", "Interest subvention"],
		"requiredDocuments": ["Aadhaar", "Land records"],
		"eligibleRoles": ["farmer"],
		"tags": ["credit"],
		"applicationProcess": "Apply at any commercial bank branch.",
		"source_url": "https://example.gov/kcc",
		"is_new": false,
		"created_at": "2024-01-01T00:00:00"
	},
	{
		"id": "s2",
		"name": "National Scholarship",
		"category": "education",
		"shortDescription": "Scholarships for students",
		"eligibility": ["Students"],
		"benefits": ["Tuition support"],
		"requiredDocuments": [],
		"eligibleRoles": ["student"],
		"tags": [],
		"officialWebsite": "https://scholarships.example.gov",
		"source_url": "",
		"is_new": true,
		"created_at": "2024-02-01T00:00:00"
	}
]`

// CreateFileFixture writes data to path, creating parent directories
func CreateFileFixture(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", path, err)
	}
}
