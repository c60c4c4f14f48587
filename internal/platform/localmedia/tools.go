package localmedia

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/autodoc-backend/internal/domain"
	"github.com/yungbote/autodoc-backend/internal/platform/ctxutil"
	"github.com/yungbote/autodoc-backend/internal/platform/envutil"
	"github.com/yungbote/autodoc-backend/internal/platform/logger"
)

// Tools is the glue around ffmpeg/ffprobe.
//
// REQUIRED BINARIES at runtime:
// - ffmpeg for video -> audio and frames
// - ffprobe for container duration
//
// Every call writes into its own scratch directory under WorkRoot. Nothing here
// deletes what it produced; callers release it with Cleanup.
type Tools interface {
	AssertReady(ctx context.Context) error

	ExtractAudio(ctx context.Context, videoPath string) (*AudioHandle, error)
	ExtractFrames(ctx context.Context, videoPath string, interval time.Duration) (*FrameSet, error)
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

type Options struct {
	FFmpegPath  string
	FFprobePath string
	WorkRoot    string
	Timeout     time.Duration

	SampleRateHz int
	Channels     int
	JPEGQuality  int
	MaxFrames    int
}

// AudioHandle is a mono PCM WAV file owned by the caller.
type AudioHandle struct {
	Path string
	Dir  string
}

// Cleanup removes the handle's scratch directory. Safe to call more than once.
func (a *AudioHandle) Cleanup() error {
	if a == nil || a.Dir == "" {
		return nil
	}
	return os.RemoveAll(a.Dir)
}

// FrameSet is a chronological sequence of still frames owned by the caller.
type FrameSet struct {
	Dir    string
	Frames []string
}

// Images lists the frames. It fails only when the backing directory is gone.
func (f *FrameSet) Images() ([]string, error) {
	if f == nil {
		return nil, nil
	}
	if f.Dir != "" {
		if _, err := os.Stat(f.Dir); err != nil {
			return nil, fmt.Errorf("frame dir: %w", err)
		}
	}
	out := make([]string, len(f.Frames))
	copy(out, f.Frames)
	return out, nil
}

func (f *FrameSet) Cleanup() error {
	if f == nil || f.Dir == "" {
		return nil
	}
	return os.RemoveAll(f.Dir)
}

type tools struct {
	log  *logger.Logger
	opts Options
}

func New(log *logger.Logger, opts Options) Tools {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.WorkRoot == "" {
		opts.WorkRoot = filepath.Join(os.TempDir(), "autodoc-media")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.SampleRateHz <= 0 {
		opts.SampleRateHz = 16000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = 3
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 2000
	}
	return &tools{log: log.With("service", "MediaTools"), opts: opts}
}

func (m *tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.opts.FFmpegPath, m.opts.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	if err := os.MkdirAll(m.opts.WorkRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

// scratch creates a directory no other call can share.
func (m *tools) scratch(prefix string) (string, error) {
	if err := os.MkdirAll(m.opts.WorkRoot, 0o755); err != nil {
		return "", fmt.Errorf("mkdir workRoot: %w", err)
	}
	return os.MkdirTemp(m.opts.WorkRoot, prefix+"-*")
}

func (m *tools) ExtractAudio(ctx context.Context, videoPath string) (*AudioHandle, error) {
	ctx = ctxutil.Default(ctx)
	if strings.TrimSpace(videoPath) == "" {
		return nil, &domain.TranscodeError{Op: "audio", Path: videoPath, Err: fmt.Errorf("videoPath required")}
	}
	dir, err := m.scratch("audio")
	if err != nil {
		return nil, &domain.TranscodeError{Op: "audio", Path: videoPath, Err: err}
	}
	h := &AudioHandle{Path: filepath.Join(dir, "audio.wav"), Dir: dir}

	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", strconv.Itoa(m.opts.Channels),
		"-ar", strconv.Itoa(m.opts.SampleRateHz),
		"-f", "wav", h.Path,
	}
	out, err := exec.CommandContext(ctx, m.opts.FFmpegPath, args...).CombinedOutput()
	if err != nil {
		return h, &domain.TranscodeError{Op: "audio", Path: videoPath, Err: fmt.Errorf("ffmpeg: %w; out=%s", err, tail(out))}
	}
	if _, err := os.Stat(h.Path); err != nil {
		return h, &domain.TranscodeError{Op: "audio", Path: videoPath, Err: fmt.Errorf("audio output missing at %s", h.Path)}
	}
	m.log.Debug("audio extracted", "video", videoPath, "audio", h.Path)
	return h, nil
}

func (m *tools) ExtractFrames(ctx context.Context, videoPath string, interval time.Duration) (*FrameSet, error) {
	ctx = ctxutil.Default(ctx)
	if strings.TrimSpace(videoPath) == "" {
		return nil, &domain.TranscodeError{Op: "frames", Path: videoPath, Err: fmt.Errorf("videoPath required")}
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	duration, err := m.ProbeDuration(ctx, videoPath)
	if err != nil {
		return nil, &domain.TranscodeError{Op: "frames", Path: videoPath, Err: err}
	}
	want := ExpectedFrameCount(duration, interval)
	if want > m.opts.MaxFrames {
		want = m.opts.MaxFrames
	}

	dir, err := m.scratch("frames")
	if err != nil {
		return nil, &domain.TranscodeError{Op: "frames", Path: videoPath, Err: err}
	}
	fs := &FrameSet{Dir: dir, Frames: []string{}}
	if want == 0 {
		m.log.Debug("video shorter than frame interval", "video", videoPath, "duration", duration, "interval", interval)
		return fs, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	args := []string{
		"-y",
		"-i", videoPath,
		"-vf", fpsFilter(interval),
		"-frames:v", strconv.Itoa(want),
		"-q:v", strconv.Itoa(m.opts.JPEGQuality),
		filepath.Join(dir, "frame_%06d.jpg"),
	}
	out, err := exec.CommandContext(ctx, m.opts.FFmpegPath, args...).CombinedOutput()
	if err != nil {
		return fs, &domain.TranscodeError{Op: "frames", Path: videoPath, Err: fmt.Errorf("ffmpeg: %w; out=%s", err, tail(out))}
	}
	frames, err := globSorted(dir, `^frame_\d+\.jpe?g$`)
	if err != nil {
		return fs, &domain.TranscodeError{Op: "frames", Path: videoPath, Err: err}
	}
	if len(frames) > want {
		frames = frames[:want]
	}
	fs.Frames = frames
	m.log.Debug("frames extracted", "video", videoPath, "frames", len(frames), "expected", want)
	return fs, nil
}

func (m *tools) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, envutil.Duration("FFPROBE_TIMEOUT", 30*time.Second))
	defer cancel()

	cmd := exec.CommandContext(ctx, m.opts.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return ParseDuration(string(out))
}

// ParseDuration reads ffprobe's seconds output ("12.048000").
func ParseDuration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("ffprobe duration %q: invalid", s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// ExpectedFrameCount is the number of frames sampled at t = k*interval with
// t < duration. A video shorter than one interval yields none.
func ExpectedFrameCount(duration, interval time.Duration) int {
	if interval <= 0 || duration < interval {
		return 0
	}
	return int(math.Ceil(float64(duration) / float64(interval)))
}

func fpsFilter(interval time.Duration) string {
	return fmt.Sprintf("fps=1/%s", strconv.FormatFloat(interval.Seconds(), 'f', -1, 64))
}

func tail(out []byte) string {
	const max = 2000
	if len(out) <= max {
		return string(out)
	}
	return string(out[len(out)-max:])
}

func globSorted(dir string, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if re.MatchString(strings.ToLower(e.Name())) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}
