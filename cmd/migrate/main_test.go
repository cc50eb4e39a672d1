package main

import (
	"testing"

	"github.com/fblacp/scales/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	cfg := &config.Config{PostgresURL: "postgres://env", GCPProject: "proj", BQDataset: "scales"}

	tests := []struct {
		name    string
		args    []string
		cfg     *config.Config
		want    options
		wantErr string
	}{
		{
			name: "up uses env url",
			args: []string{"up"},
			cfg:  cfg,
			want: options{Command: "up", DatabaseURL: "postgres://env", Project: "proj", Dataset: "scales"},
		},
		{
			name: "up flag overrides env",
			args: []string{"up", "-database-url", "postgres://flag"},
			cfg:  cfg,
			want: options{Command: "up", DatabaseURL: "postgres://flag", Project: "proj", Dataset: "scales"},
		},
		{
			name: "down with steps",
			args: []string{"down", "-steps", "2"},
			cfg:  cfg,
			want: options{Command: "down", Steps: 2, DatabaseURL: "postgres://env", Project: "proj", Dataset: "scales"},
		},
		{
			name:    "down without steps",
			args:    []string{"down"},
			cfg:     cfg,
			wantErr: "-steps",
		},
		{
			name:    "up without url",
			args:    []string{"up"},
			cfg:     &config.Config{},
			wantErr: "POSTGRES_URL",
		},
		{
			name: "bigquery dataset flag",
			args: []string{"bigquery", "-dataset", "finance"},
			cfg:  cfg,
			want: options{Command: "bigquery", DatabaseURL: "postgres://env", Project: "proj", Dataset: "finance"},
		},
		{
			name:    "bigquery without project",
			args:    []string{"bigquery"},
			cfg:     &config.Config{},
			wantErr: "GCP_PROJECT",
		},
		{
			name:    "steps is not an up flag",
			args:    []string{"up", "-steps", "1"},
			cfg:     cfg,
			wantErr: "flag provided but not defined",
		},
		{
			name:    "unknown command",
			args:    []string{"sideways"},
			cfg:     cfg,
			wantErr: "unknown command",
		},
		{
			name:    "no command",
			cfg:     cfg,
			wantErr: "missing command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args, tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
