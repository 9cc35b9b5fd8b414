package database

import (
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://user:pw@localhost:5432/bondweb?sslmode=disable", "bondweb"},
		{"postgres://localhost", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		if got := Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"institutions", "overlay_state"} {
		if !strings.Contains(Schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema missing table %s", table)
		}
	}
}
