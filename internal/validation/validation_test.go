package validation_test

import (
	"testing"

	"jewelpo/internal/validation"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1000.00", "1000", false},
		{" 12.5 ", "12.5", false},
		{"", "0", true},
		{"abc", "0", true},
		{"0", "0", true},
		{"-5", "-5", true},
		{"1.005", "1.005", true},
		{"2000000000", "2000000000", true},
	}
	for _, tt := range tests {
		ve := &validation.ValidationErrors{}
		got := validation.ParseAmount(ve, "total_amount", tt.in)
		if ve.HasErrors() != tt.wantErr {
			t.Errorf("ParseAmount(%q) errors = %v, wantErr %v", tt.in, ve.Errors, tt.wantErr)
		}
		if got.String() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got.String(), tt.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	ve := &validation.ValidationErrors{}
	validation.ValidateEmail(ve, "email", "sales@goldsmith.example")
	validation.ValidateEmail(ve, "email", "")
	if ve.HasErrors() {
		t.Fatalf("unexpected errors: %v", ve.Errors)
	}

	validation.ValidateEmail(ve, "email", "Vendor <v@example.com>")
	validation.ValidateEmail(ve, "email", "not-an-email")
	if len(ve.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", ve.Errors)
	}
}

func TestValidateCodeAndEnum(t *testing.T) {
	ve := &validation.ValidationErrors{}
	validation.ValidateCode(ve, "jewel_code", "J-0001/A")
	validation.ValidateEnum(ve, "qc_status", "Pass", validation.ValidQCDecisions)
	if ve.HasErrors() {
		t.Fatalf("unexpected errors: %v", ve.Errors)
	}

	validation.ValidateCode(ve, "jewel_code", "J 1; DROP")
	validation.ValidateEnum(ve, "qc_status", "Pending", validation.ValidQCDecisions)
	if len(ve.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %v", ve.Errors)
	}
	if ve.Errors[0].Field != "jewel_code" || ve.Errors[1].Field != "qc_status" {
		t.Errorf("unexpected fields: %v", ve.Errors)
	}
}
