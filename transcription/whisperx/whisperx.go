// Package whisperx transcribes by running the whisperx command line tool
// and reading the JSON file it writes next to its output directory.
package whisperx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/shopspring/decimal"

	"github.com/kbukum/lifescribe/alignment"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/provider"
	"github.com/kbukum/lifescribe/transcription"
	"github.com/kbukum/lifescribe/util"
)

// ProviderName is the registered name for the whisperx provider.
const ProviderName = "whisperx"

// Config holds configuration for the whisperx provider.
type Config struct {
	// Binary is the whisperx executable, looked up on PATH.
	Binary string `mapstructure:"binary"`
	Model  string `mapstructure:"model"`
	// Language skips language detection when set.
	Language    string                    `mapstructure:"language"`
	Device      string                    `mapstructure:"device"`
	Granularity transcription.Granularity `mapstructure:"granularity"`
	// ExtraArgs is appended to the command line, split like a shell would.
	ExtraArgs string `mapstructure:"extra_args"`
}

// Provider implements transcription.Provider with the whisperx CLI.
type Provider struct {
	cfg Config
	log *logger.Logger
}

// NewProvider creates a whisperx provider.
func NewProvider(cfg Config) *Provider {
	if cfg.Binary == "" {
		cfg.Binary = "whisperx"
	}
	if cfg.Granularity == "" {
		cfg.Granularity = transcription.GranularitySegment
	}
	return &Provider{cfg: cfg, log: logger.Get("whisperx")}
}

// Factory returns a provider.Factory for whisperx.
func Factory() provider.Factory[transcription.Provider] {
	return func(s provider.Settings) (transcription.Provider, error) {
		cfg := Config{
			Binary:      s.String("binary"),
			Model:       s.String("model"),
			Language:    s.String("language"),
			Device:      s.String("device"),
			Granularity: transcription.Granularity(s.String("granularity")),
			ExtraArgs:   s.String("extra_args"),
		}
		if _, err := shlex.Split(cfg.ExtraArgs); err != nil {
			return nil, errors.InvalidInput("extra_args", err.Error())
		}
		return NewProvider(cfg), nil
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether the binary is on PATH.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	_, err := exec.LookPath(p.cfg.Binary)
	return err == nil
}

// Transcribe runs whisperx on the audio file.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, errors.InvalidInput("audio_path", err.Error()).WithCause(err)
	}

	outDir, err := os.MkdirTemp("", "lifescribe-whisperx-")
	if err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	args, err := p.buildArgs(req, outDir)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, p.cfg.Binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	p.log.Info("running whisperx", logger.Fields(logger.FieldRecording, req.AudioPath, "args", strings.Join(args, " ")))
	if err := cmd.Start(); err != nil {
		return nil, errors.ServiceUnavailable(ProviderName).WithCause(err)
	}

	done := make(chan struct{}, 2)
	go p.pipeLog(stderr, done)
	go p.pipeLog(stdout, done)
	<-done
	<-done

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("transcribing with whisperx: %w", err))
	}

	base := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	f, err := os.Open(filepath.Join(outDir, base+".json"))
	if err != nil {
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("opening whisperx result: %w", err))
	}
	defer f.Close()

	granularity := p.cfg.Granularity
	if req.Granularity != "" {
		granularity = req.Granularity
	}
	return decodeResult(f, granularity)
}

func (p *Provider) buildArgs(req transcription.Request, outDir string) ([]string, error) {
	args := []string{req.AudioPath, "--output_format", "json", "--output_dir", outDir}

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	lang := p.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}
	if lang != "" {
		args = append(args, "--language", lang)
	}
	if p.cfg.Device != "" {
		args = append(args, "--device", p.cfg.Device)
	}

	extra, err := shlex.Split(p.cfg.ExtraArgs)
	if err != nil {
		return nil, errors.InvalidInput("extra_args", err.Error())
	}
	return append(args, extra...), nil
}

// maxLogLine bounds one logged line of whisperx output.
const maxLogLine = 1 << 20

// pipeLog logs r line by line until EOF. Progress bars redraw with '\r', so
// that ends a line too. Whatever the scanner gives up on is discarded, never
// left in the pipe where it would block the child.
func (p *Provider) pipeLog(r io.Reader, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	scanner.Split(scanLogLines)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			p.log.Debug(line)
		}
	}
	if err := scanner.Err(); err != nil {
		p.log.Debug("whisperx output not logged", logger.Fields(logger.FieldError, err.Error()))
	}
	_, _ = io.Copy(io.Discard, r)
}

// scanLogLines is bufio.ScanLines splitting on '\r' as well as '\n'.
func scanLogLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// --- whisperx JSON output ---

type result struct {
	Segments []segment `json:"segments"`
	Language string    `json:"language"`
}

type segment struct {
	Text  string          `json:"text"`
	Start decimal.Decimal `json:"start"`
	End   decimal.Decimal `json:"end"`
	Words []word          `json:"words"`
}

type word struct {
	Text  string           `json:"word"`
	Start *decimal.Decimal `json:"start"`
	End   *decimal.Decimal `json:"end"`
}

// decodeResult converts whisperx output to chunks. Times are rounded to the
// millisecond in decimal so 0.1 + 0.2 style float noise never reaches the
// overlap comparisons.
func decodeResult(r io.Reader, granularity transcription.Granularity) (*transcription.Response, error) {
	var res result
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, errors.ExternalServiceError(ProviderName, fmt.Errorf("decoding whisperx json result: %w", err))
	}

	var chunks []alignment.Chunk
	var text strings.Builder
	for _, s := range res.Segments {
		text.WriteString(s.Text)
		if granularity == transcription.GranularityWord && len(s.Words) > 0 {
			for _, w := range s.Words {
				chunks = append(chunks, alignment.Chunk{
					Timestamp: alignment.Timestamp{seconds(w.Start), seconds(w.End)},
					Text:      " " + strings.TrimSpace(w.Text),
				})
			}
			continue
		}
		chunks = append(chunks, alignment.Chunk{
			Timestamp: alignment.Timestamp{seconds(&s.Start), seconds(&s.End)},
			Text:      s.Text,
		})
	}
	if chunks == nil {
		chunks = []alignment.Chunk{}
	}

	return &transcription.Response{
		Text:     text.String(),
		Chunks:   chunks,
		Language: res.Language,
		Duration: transcription.LastEnd(chunks),
	}, nil
}

func seconds(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	return util.Ptr(d.Round(3).InexactFloat64())
}
