package rttmfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/lifescribe/diarization"
	"github.com/kbukum/lifescribe/errors"
)

func TestDiarize(t *testing.T) {
	dir := t.TempDir()
	rttm := "SPEAKER meeting 1 0.000 2.000 <NA> <NA> SPEAKER_00 <NA> <NA>\n"
	if err := os.WriteFile(filepath.Join(dir, "meeting.rttm"), []byte(rttm), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		p    *Provider
	}{
		{"sibling", NewProvider("")},
		{"fixed", NewProvider(filepath.Join(dir, "meeting.rttm"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.p.Diarize(context.Background(), diarization.Request{AudioPath: filepath.Join(dir, "meeting.wav")})
			if err != nil {
				t.Fatal(err)
			}
			if resp.RTTM != rttm {
				t.Errorf("expected verbatim RTTM, got %q", resp.RTTM)
			}
		})
	}
}

func TestDiarize_Missing(t *testing.T) {
	_, err := NewProvider("").Diarize(context.Background(), diarization.Request{AudioPath: filepath.Join(t.TempDir(), "x.wav")})
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
