package numbering

import (
	"strings"
	"testing"
	"time"

	"docnum/internal/core/apperror"
)

func TestValidateTemplate(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		wantErr   bool
		wantToken string
	}{
		{name: "Seq only", template: "INV-{SEQ}"},
		{name: "All tokens", template: "{PROJECT}-{YYYY}{MM}{DD}-{SEQ}"},
		{name: "Lower case tokens", template: "inv-{yyyy}-{seq}"},
		{name: "Empty", template: "", wantErr: true},
		{name: "Whitespace", template: "   ", wantErr: true},
		{name: "Unknown token", template: "INV-{FOO}-{SEQ}", wantErr: true, wantToken: "FOO"},
		{name: "Empty braces", template: "INV-{}-{SEQ}", wantErr: true, wantToken: ""},
		{name: "Missing seq", template: "INV-{YYYY}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemplate(tt.template)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for %q", tt.template)
			}
			if !apperror.HasCode(err, apperror.CodeInvalidTemplate) {
				t.Fatalf("expected %s, got %v", apperror.CodeInvalidTemplate, err)
			}
			if tt.wantToken != "" {
				appErr, _ := apperror.AsAppError(err)
				if appErr.Details["token"] != tt.wantToken {
					t.Errorf("token detail: want %q, got %v", tt.wantToken, appErr.Details["token"])
				}
				if !strings.Contains(appErr.Message, "{SEQ}") {
					t.Errorf("message should list supported tokens: %s", appErr.Message)
				}
			}
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	at := time.Date(2025, 5, 17, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		template string
		project  string
		at       time.Time
		seq      int64
		padding  int
		want     string
	}{
		{
			name:     "Full template",
			template: "{PROJECT}-{YYYY}{MM}{DD}-{SEQ}",
			project:  "Acme Co.",
			at:       at,
			seq:      7,
			padding:  4,
			want:     "ACMECO-20250517-0007",
		},
		{
			name:     "Padding overflow is not truncated",
			template: "INV-{SEQ}",
			at:       at,
			seq:      12345,
			padding:  3,
			want:     "INV-12345",
		},
		{
			name:     "Default padding",
			template: "INV-{SEQ}",
			at:       at,
			seq:      5,
			padding:  0,
			want:     "INV-005",
		},
		{
			name:     "Case insensitive and repeated tokens",
			template: "{yyyy}/{Seq}/{YYYY}",
			at:       at,
			seq:      1,
			padding:  2,
			want:     "2025/01/2025",
		},
		{
			name:     "Empty project falls back",
			template: "{PROJECT}-{SEQ}",
			project:  " -_. ",
			at:       at,
			seq:      1,
			padding:  1,
			want:     "NA-1",
		},
		{
			name:     "Date parts use UTC",
			template: "{YYYY}{MM}{DD}-{SEQ}",
			at:       time.Date(2025, 1, 1, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			seq:      1,
			padding:  1,
			want:     "20241231-1",
		},
		{
			name:     "Unknown text is literal",
			template: "A{B}-{SEQ}",
			at:       at,
			seq:      9,
			padding:  1,
			want:     "A{B}-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderTemplate(tt.template, tt.project, tt.at, tt.seq, tt.padding)
			if got != tt.want {
				t.Errorf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRenderTemplate_Deterministic(t *testing.T) {
	at := time.Date(2025, 5, 17, 0, 0, 0, 0, time.UTC)
	first := RenderTemplate("{PROJECT}-{SEQ}", "ops", at, 42, 5)
	for range 10 {
		if got := RenderTemplate("{PROJECT}-{SEQ}", "ops", at, 42, 5); got != first {
			t.Fatalf("render changed: %q vs %q", first, got)
		}
	}
}

func TestSanitizeProjectCode(t *testing.T) {
	tests := map[string]string{
		"acme":       "ACME",
		"Acme Co.":   "ACMECO",
		"ops-2":      "OPS2",
		"":           "NA",
		"***":        "NA",
		"проект 1":   "ПРОЕКТ1",
		"  x  y  z ": "XYZ",
	}
	for in, want := range tests {
		if got := SanitizeProjectCode(in); got != want {
			t.Errorf("SanitizeProjectCode(%q): want %q, got %q", in, want, got)
		}
	}
}

func TestCheckLength(t *testing.T) {
	if err := CheckLength(strings.Repeat("A", MaxNumberLength)); err != nil {
		t.Fatalf("number of max length rejected: %v", err)
	}
	err := CheckLength(strings.Repeat("A", MaxNumberLength+1))
	if !apperror.HasCode(err, apperror.CodeNumberTooLong) {
		t.Fatalf("expected %s, got %v", apperror.CodeNumberTooLong, err)
	}
	// Runes, not bytes.
	if err := CheckLength(strings.Repeat("Ж", MaxNumberLength)); err != nil {
		t.Fatalf("multibyte number rejected: %v", err)
	}
}

func TestIsDraftNumber(t *testing.T) {
	tests := map[string]bool{
		"":             true,
		"   ":          true,
		"DRAFT-123":    true,
		"draft-abc":    true,
		"  Draft-x":    true,
		"DRAFT":        false,
		"INV-001":      false,
		"XDRAFT-1":     false,
		"ACME-2025-01": false,
	}
	for in, want := range tests {
		if got := IsDraftNumber(in); got != want {
			t.Errorf("IsDraftNumber(%q): want %v, got %v", in, want, got)
		}
	}
}
