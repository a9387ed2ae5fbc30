package errors

import (
	"testing"
)

func TestValidateDatabaseURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid postgres", "postgres://jan@localhost/test2", false},
		{"valid postgresql with port", "postgresql://jan:secret@db:5432/app", false},

		{"empty", "", true},
		{"wrong scheme", "mysql://jan@localhost/test2", true},
		{"psql shorthand", "psql://jan@localhost/test2", true},
		{"no host", "postgres:///test2", true},
		{"no database", "postgres://jan@localhost", true},
		{"no database slash", "postgres://jan@localhost/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDatabaseURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDatabaseURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidResolver) {
				t.Errorf("ValidateDatabaseURL(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidResolver)
			}
		})
	}
}

func TestValidateFilePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "trace.json", false},
		{"absolute", "/tmp/trace.json", false},
		{"nested", "out/lock-graph.html", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 5000)), true},
		{"null byte", "trace\x00.json", true},
		{"newline", "trace\n.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
