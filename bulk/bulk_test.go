package bulk

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/media"
	"github.com/kbukum/lifescribe/transcripts"
)

func setup(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

type lookup struct {
	known map[string]uuid.UUID
}

func (l *lookup) FindRecording(_ context.Context, hash string) (*transcripts.Recording, error) {
	if id, ok := l.known[hash]; ok {
		return &transcripts.Recording{Hash: hash, SessionID: id}, nil
	}
	return nil, errors.NotFound("recording", hash)
}

func TestRun(t *testing.T) {
	dir := setup(t, map[string]string{
		"a.wav": "a", "b.mp3": "b", "c.m4a": "c", "d.txt": "d",
	})
	stored, err := media.HashFile(filepath.Join(dir, "b.mp3"))
	if err != nil {
		t.Fatal(err)
	}
	storedSession := uuid.New()

	var mu sync.Mutex
	var seen []string
	process := func(_ context.Context, item Item) (string, error) {
		mu.Lock()
		seen = append(seen, filepath.Base(item.Path))
		mu.Unlock()
		if item.Hash == "" {
			t.Errorf("missing hash for %s", item.Path)
		}
		if filepath.Base(item.Path) == "c.m4a" {
			return "", errors.ExternalServiceError("whisper", nil)
		}
		return "session-" + filepath.Base(item.Path), nil
	}

	r := NewRunner(Config{Dir: dir, Workers: 2}, process,
		WithLookup(&lookup{known: map[string]uuid.UUID{stored: storedSession}}))
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(report.Outcomes))
	}
	want := []struct {
		name    string
		status  Status
		session string
	}{
		{"a.wav", StatusDone, "session-a.wav"},
		{"b.mp3", StatusSkipped, storedSession.String()},
		{"c.m4a", StatusFailed, ""},
	}
	for i, w := range want {
		o := report.Outcomes[i]
		if filepath.Base(o.Path) != w.name || o.Status != w.status || o.SessionID != w.session {
			t.Errorf("outcome %d = %+v, want %+v", i, o, w)
		}
	}
	if report.Outcomes[2].Err == nil {
		t.Error("failed outcome should carry its error")
	}
	if len(seen) != 2 {
		t.Errorf("expected 2 processed files, got %v", seen)
	}
}

func TestRun_DryRun(t *testing.T) {
	dir := setup(t, map[string]string{"b.WAV": "b", "a.mkv": "a"})
	var out bytes.Buffer
	called := false
	r := NewRunner(Config{Dir: dir, DryRun: true}, func(context.Context, Item) (string, error) {
		called = true
		return "", nil
	}, WithOutput(&out))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("dry run must not process files")
	}
	want := "lifescribe transcribe " + filepath.Join(dir, "a.mkv") + "\n" +
		"lifescribe transcribe " + filepath.Join(dir, "b.WAV") + "\n"
	if out.String() != want {
		t.Errorf("got %q, want %q", out.String(), want)
	}
	if report.Count(StatusPlanned) != 2 {
		t.Errorf("expected 2 planned, got %d", report.Count(StatusPlanned))
	}
}

func TestRun_CancelStopsScheduling(t *testing.T) {
	dir := setup(t, map[string]string{"1.wav": "1", "2.wav": "2", "3.wav": "3", "4.wav": "4"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	r := NewRunner(Config{Dir: dir, Workers: 1}, func(context.Context, Item) (string, error) {
		calls.Add(1)
		cancel()
		return "s", nil
	})

	report, err := r.Run(ctx)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("scheduling continued after cancel: %d calls", calls.Load())
	}
	if report.Count(StatusCanceled) != 3 {
		t.Errorf("expected unscheduled files to be canceled, got %+v", report.Outcomes)
	}
	if report.Outcomes[0].Status != StatusDone {
		t.Errorf("first file status = %s", report.Outcomes[0].Status)
	}
}

func TestRun_DuplicateFromProcessIsSkipped(t *testing.T) {
	dir := setup(t, map[string]string{"a.wav": "a"})
	r := NewRunner(Config{Dir: dir}, func(context.Context, Item) (string, error) {
		return "", errors.DuplicateRecording("h", "s")
	})
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Outcomes[0].Status != StatusSkipped {
		t.Errorf("status = %s, want skipped", report.Outcomes[0].Status)
	}
}

func TestRun_MissingDir(t *testing.T) {
	r := NewRunner(Config{Dir: filepath.Join(t.TempDir(), "nope")}, nil)
	if _, err := r.Run(context.Background()); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
