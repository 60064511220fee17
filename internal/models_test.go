package internal

import (
	"errors"
	"testing"
)

func TestBackendScheme_ToScheme(t *testing.T) {
	tests := []struct {
		name    string
		backend BackendScheme
		want    Scheme
	}{
		{
			name: "full record",
			backend: BackendScheme{
				ID:                 "s1",
				Name:               "KCC",
				Category:           "agriculture",
				ShortDescription:   "desc",
				Eligibility:        []string{"a", "b"},
				Benefits:           []string{"c"},
				ApplicationProcess: "Apply at the bank",
				SourceURL:          "https://example.gov/kcc",
				IsNew:              true,
				CreatedAt:          "2024-01-01",
			},
			want: Scheme{
				ID:                 "s1",
				Title:              "KCC",
				Category:           "agriculture",
				Description:        "desc",
				Eligibility:        "a\n• b",
				Benefits:           "c",
				ApplicationProcess: "Apply at the bank",
				SourceURL:          "https://example.gov/kcc",
				IsNew:              true,
				CreatedAt:          "2024-01-01",
			},
		},
		{
			name: "fallbacks",
			backend: BackendScheme{
				ID:              "s2",
				Name:            "PM-KISAN",
				OfficialWebsite: "https://pmkisan.gov.in",
			},
			want: Scheme{
				ID:                 "s2",
				Title:              "PM-KISAN",
				ApplicationProcess: DefaultApplicationProcess,
				SourceURL:          "https://pmkisan.gov.in",
			},
		},
		{
			name:    "no source at all",
			backend: BackendScheme{ID: "s3", Name: "X"},
			want: Scheme{
				ID:                 "s3",
				Title:              "X",
				ApplicationProcess: DefaultApplicationProcess,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.backend.ToScheme(); got != tt.want {
				t.Errorf("ToScheme() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in      string
		want    Language
		wantErr bool
	}{
		{in: "en", want: LanguageEnglish},
		{in: " HI ", want: LanguageHindi},
		{in: "mr", want: LanguageMarathi},
		{in: "fr", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLanguage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnknownLanguage) {
				t.Errorf("ParseLanguage(%q) error should wrap ErrUnknownLanguage", tt.in)
			}
			if got != tt.want {
				t.Errorf("ParseLanguage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeRole(t *testing.T) {
	if got := NormalizeRole(RoleFarmer); got != RoleFarmer {
		t.Errorf("NormalizeRole(farmer) = %q", got)
	}
	if got := NormalizeRole("user"); got != RoleOther {
		t.Errorf("NormalizeRole(user) = %q, want other", got)
	}
	if got := NormalizeRole(""); got != RoleOther {
		t.Errorf("NormalizeRole(\"\") = %q, want other", got)
	}
}
