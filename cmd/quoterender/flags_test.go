package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantErr    bool
		wantFormat string
		check      func(t *testing.T, f *cliFlags)
	}{
		{
			name:       "defaults read stdin as JSON",
			args:       []string{"quoterender"},
			wantFormat: "json",
			check: func(t *testing.T, f *cliFlags) {
				assert.Equal(t, "-", f.in)
				assert.Empty(t, f.out)
				assert.False(t, f.htmlOnly)
			},
		},
		{
			name:       "yaml inferred from extension",
			args:       []string{"quoterender", "--in", "q.YML"},
			wantFormat: "yaml",
		},
		{
			name:       "explicit format wins",
			args:       []string{"quoterender", "-i", "q.txt", "-f", "YAML"},
			wantFormat: "yaml",
		},
		{
			name:       "all flags",
			args:       []string{"quoterender", "-i", "q.json", "-o", "out.pdf", "--strategy", "raster", "--html-only", "-v"},
			wantFormat: "json",
			check: func(t *testing.T, f *cliFlags) {
				assert.Equal(t, "out.pdf", f.out)
				assert.Equal(t, "raster", f.strategy)
				assert.True(t, f.htmlOnly)
				assert.True(t, f.verbose)
			},
		},
		{name: "unknown format", args: []string{"quoterender", "--format", "xml"}, wantErr: true},
		{name: "unknown flag", args: []string{"quoterender", "--nope"}, wantErr: true},
		{name: "stray argument", args: []string{"quoterender", "q.json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFlags(tt.args, &bytes.Buffer{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ExitUsage, exitCodeFor(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, f.format)
			if tt.check != nil {
				tt.check(t, f)
			}
		})
	}
}
