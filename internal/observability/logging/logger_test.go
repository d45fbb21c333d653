package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextHelpers(t *testing.T) {
	tests := []struct {
		name   string
		build  func(base zerolog.Logger) zerolog.Logger
		fields []string
	}{
		{
			name:   "with interview",
			build:  func(base zerolog.Logger) zerolog.Logger { return WithInterview(base, "int-1") },
			fields: []string{`"interviewId":"int-1"`},
		},
		{
			name:   "with session",
			build:  func(base zerolog.Logger) zerolog.Logger { return WithSession(base, "int-1", "sess-1") },
			fields: []string{`"interviewId":"int-1"`, `"sessionId":"sess-1"`},
		},
		{
			name:   "with turn",
			build:  func(base zerolog.Logger) zerolog.Logger { return WithTurn(base, "int-1", "sess-1", 7) },
			fields: []string{`"interviewId":"int-1"`, `"sessionId":"sess-1"`, `"questionIndex":7`},
		},
		{
			name:   "with component",
			build:  func(base zerolog.Logger) zerolog.Logger { return WithComponent(base, "boundary") },
			fields: []string{`"component":"boundary"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := tt.build(zerolog.New(&buf))
			logger.Info().Msg("hello")

			out := buf.String()
			for _, field := range tt.fields {
				if !strings.Contains(out, field) {
					t.Errorf("expected log line to contain %s, got %s", field, out)
				}
			}
		})
	}
}
