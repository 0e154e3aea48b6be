package postgresql

import (
	"strings"
	"testing"
	"time"
)

func TestDialect_GetPlaceholder(t *testing.T) {
	dialect := NewDialect()
	tests := []struct {
		index int
		want  string
	}{
		{1, "$1"},
		{2, "$2"},
		{12, "$12"},
	}
	for _, tt := range tests {
		if got := dialect.GetPlaceholder(tt.index); got != tt.want {
			t.Errorf("GetPlaceholder(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestDialect_ConvertTime(t *testing.T) {
	dialect := NewDialect()
	in := time.Date(2023, 12, 25, 10, 30, 45, 0, time.FixedZone("CET", 3600))

	stored, ok := dialect.ConvertTimeToStorage(in).(time.Time)
	if !ok || stored.Location() != time.UTC || !stored.Equal(in) {
		t.Fatalf("unexpected storage value %v", stored)
	}

	out, err := dialect.ConvertTimeFromStorage(&in)
	if err != nil || !out.Equal(in) {
		t.Fatalf("pointer conversion => %v, %v", out, err)
	}
	var nilTime *time.Time
	if out, err := dialect.ConvertTimeFromStorage(nilTime); err != nil || !out.IsZero() {
		t.Fatalf("nil pointer conversion => %v, %v", out, err)
	}
	if _, err := dialect.ConvertTimeFromStorage("2023-12-25"); err == nil {
		t.Fatal("expected error for string value")
	}
}

func TestDialect_GetEnsureStatements(t *testing.T) {
	statements := NewDialect().GetEnsureStatements("deployment_runs")
	if len(statements) != 2 {
		t.Fatalf("GetEnsureStatements() returned %d statements, want 2", len(statements))
	}
	for _, want := range []string{"chain_id BIGINT", "started_at TIMESTAMPTZ"} {
		if !strings.Contains(statements[0], want) {
			t.Errorf("expected %q in %q", want, statements[0])
		}
	}
}

func TestConfig_ConnString(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{
			name: "explicit dsn wins",
			cfg:  Config{DSN: " postgres://a@b/c ", Host: "ignored"},
			want: "postgres://a@b/c",
		},
		{
			name: "components with defaults",
			cfg:  Config{Host: "db", User: "deployer", Password: "p@ss", DBName: "runs"},
			want: "postgres://deployer:p%40ss@db:5432/runs?sslmode=disable",
		},
		{
			name: "no user",
			cfg:  Config{Host: "db", Port: 6543, DBName: "runs", SSLMode: "require"},
			want: "postgres://db:6543/runs?sslmode=require",
		},
		{
			name:    "nothing",
			cfg:     Config{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ConnString()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ConnString() = %q, want %q", got, tt.want)
			}
		})
	}
}
