// Package tailer follows a PostgreSQL server log directory, handling
// rotation, truncation, and file disappearance, and streams raw lines to
// its caller. Parsing and filtering are layered on top by the parser and
// filter packages; the tailer itself knows nothing about log entry
// structure.
package tailer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Line is a single raw line read from a tailed log file, tagged with the
// file it came from so callers can detect a mid-stream rotation.
type Line struct {
	Text       string
	SourceFile string
}

// entryChanCapacity bounds the Line channel so a slow consumer applies
// backpressure to the reader rather than the tailer growing memory
// without bound.
const entryChanCapacity = 1024

// Tailer watches a PostgreSQL log directory and streams new lines from
// whichever file in it is currently active.
type Tailer struct {
	logDir     string
	logPattern string

	lines  chan Line
	errors chan error

	currentFile *os.File
	currentPath string

	watcher      *fsnotify.Watcher
	pollInterval time.Duration
	useFsnotify  bool
}

// Config holds the parameters needed to construct a Tailer.
type Config struct {
	LogDir       string
	LogPattern   string
	PollInterval time.Duration
}

// New creates a Tailer for the given configuration. It does not start
// reading until Start is called.
func New(cfg Config) (*Tailer, error) {
	if cfg.LogDir == "" {
		return nil, fmt.Errorf("log directory is required")
	}

	info, err := os.Stat(cfg.LogDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("log directory does not exist: %s", cfg.LogDir)
		}
		return nil, fmt.Errorf("cannot access log directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("log path is not a directory: %s", cfg.LogDir)
	}

	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 100 * time.Millisecond
	}

	t := &Tailer{
		logDir:       cfg.LogDir,
		logPattern:   cfg.LogPattern,
		lines:        make(chan Line, entryChanCapacity),
		errors:       make(chan error, 10),
		pollInterval: pollInterval,
		useFsnotify:  runtime.GOOS != "windows",
	}

	if t.useFsnotify {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			t.useFsnotify = false
		} else {
			t.watcher = watcher
		}
	}

	return t, nil
}

// Lines returns the channel of raw lines read from the tailed file.
// The channel is bounded; when it is full the reader blocks until the
// consumer catches up, so no line is dropped.
func (t *Tailer) Lines() <-chan Line {
	return t.lines
}

// Errors returns the channel of non-fatal errors encountered while
// tailing (e.g. a transient read failure).
func (t *Tailer) Errors() <-chan error {
	return t.errors
}

// Start opens the most recent log file and launches the read loop, which
// runs until ctx is cancelled. A zero since seeks straight to the end of
// that file; any non-zero since starts reading at the beginning of it,
// so every line already in the file is delivered. Line timestamps are
// not compared with since.
func (t *Tailer) Start(ctx context.Context, since time.Time) error {
	logFile, err := t.findMostRecentLogFile()
	if err != nil {
		return err
	}

	t.currentPath = logFile
	t.currentFile, err = os.Open(logFile)
	if err != nil {
		return fmt.Errorf("cannot open log file: %w", err)
	}

	if since.IsZero() {
		if _, err := t.currentFile.Seek(0, io.SeekEnd); err != nil {
			_ = t.currentFile.Close()
			return fmt.Errorf("cannot seek to end of file: %w", err)
		}
	}

	if t.useFsnotify {
		go t.tailWithFsnotify(ctx)
	} else {
		go t.tailWithPolling(ctx)
	}

	return nil
}

// Stop stops the tailer and releases its resources. It must be called
// exactly once, after the goroutine started by Start has observed ctx
// cancellation, to avoid closing channels the read loop still writes to.
func (t *Tailer) Stop() {
	if t.currentFile != nil {
		_ = t.currentFile.Close()
		t.currentFile = nil
	}
	if t.watcher != nil {
		_ = t.watcher.Close()
		t.watcher = nil
	}
	close(t.lines)
	close(t.errors)
}

// CurrentFile returns the path of the file currently being tailed.
func (t *Tailer) CurrentFile() string {
	return t.currentPath
}

func (t *Tailer) findMostRecentLogFile() (string, error) {
	pattern := t.logPattern
	if pattern == "" {
		pattern = "postgresql-*.log"
	}

	globPattern := ConvertLogPatternToGlob(pattern)
	searchPath := filepath.Join(t.logDir, globPattern)

	matches, err := filepath.Glob(searchPath)
	if err != nil {
		return "", fmt.Errorf("invalid log pattern: %w", err)
	}

	if len(matches) == 0 {
		alternatives := []string{
			filepath.Join(t.logDir, "postgresql-*.log"),
			filepath.Join(t.logDir, "postgres-*.log"),
			filepath.Join(t.logDir, "*.log"),
		}
		for _, alt := range alternatives {
			matches, err = filepath.Glob(alt)
			if err == nil && len(matches) > 0 {
				break
			}
		}
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("no log files found in %s", t.logDir)
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, fileInfo{path: path, modTime: info.ModTime()})
	}

	if len(files) == 0 {
		return "", fmt.Errorf("no readable log files found in %s", t.logDir)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	return files[0].path, nil
}

// ConvertLogPatternToGlob converts a PostgreSQL log_filename strftime
// pattern (e.g. "postgresql-%Y-%m-%d_%H%M%S.log") to a shell glob.
func ConvertLogPatternToGlob(pattern string) string {
	replacements := map[string]string{
		"%Y": "????",
		"%m": "??",
		"%d": "??",
		"%H": "??",
		"%M": "??",
		"%S": "??",
		"%j": "???",
		"%W": "??",
		"%w": "?",
		"%a": "???",
		"%A": "*",
		"%b": "???",
		"%B": "*",
	}

	result := pattern
	for from, to := range replacements {
		result = strings.ReplaceAll(result, from, to)
	}
	for strings.Contains(result, "%") {
		idx := strings.Index(result, "%")
		if idx >= 0 && idx+1 < len(result) {
			result = result[:idx] + "*" + result[idx+2:]
		} else {
			break
		}
	}

	return result
}

func (t *Tailer) tailWithFsnotify(ctx context.Context) {
	defer t.cleanup()

	if err := t.watcher.Add(t.logDir); err != nil {
		t.tailWithPolling(ctx)
		return
	}

	reader := bufio.NewReader(t.currentFile)
	t.readNewLines(ctx, reader)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) && pathsEqual(event.Name, t.currentPath) {
				t.readNewLines(ctx, reader)
			} else if event.Has(fsnotify.Create) && isLogFile(event.Name) {
				t.switchToNewFile(ctx, event.Name, reader)
			} else if event.Has(fsnotify.Remove) && pathsEqual(event.Name, t.currentPath) {
				t.handleDisappearance(ctx, reader)
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			select {
			case t.errors <- err:
			default:
			}
		}
	}
}

func (t *Tailer) tailWithPolling(ctx context.Context) {
	defer t.cleanup()

	reader := bufio.NewReader(t.currentFile)
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	lastSize := int64(0)
	if stat, err := t.currentFile.Stat(); err == nil {
		lastSize = stat.Size()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			newStat, err := os.Stat(t.currentPath)
			switch {
			case err != nil:
				t.handleDisappearance(ctx, reader)
			case newStat.Size() < lastSize:
				// Truncated in place (e.g. log_truncate_on_rotation):
				// reopen from the start.
				t.reopenCurrentFile(reader)
			default:
				if newFile, ferr := t.findMostRecentLogFile(); ferr == nil && newFile != t.currentPath {
					t.switchToNewFile(ctx, newFile, reader)
				}
			}

			if newStat != nil {
				lastSize = newStat.Size()
			}

			t.readNewLines(ctx, reader)
		}
	}
}

// handleDisappearance copes with the current file being removed out
// from under the tailer (e.g. aggressive log rotation tooling), by
// waiting for the next poll/fsnotify tick to find whatever file
// replaces it.
func (t *Tailer) handleDisappearance(ctx context.Context, reader *bufio.Reader) {
	newFile, err := t.findMostRecentLogFile()
	if err != nil || newFile == t.currentPath {
		return
	}
	t.switchToNewFile(ctx, newFile, reader)
}

// reopenCurrentFile reopens the current path at offset 0, used when the
// file was truncated rather than rotated to a new name.
func (t *Tailer) reopenCurrentFile(reader *bufio.Reader) {
	f, err := os.Open(t.currentPath)
	if err != nil {
		select {
		case t.errors <- fmt.Errorf("cannot reopen truncated log file: %w", err):
		default:
		}
		return
	}
	if t.currentFile != nil {
		_ = t.currentFile.Close()
	}
	t.currentFile = f
	reader.Reset(f)
}

func (t *Tailer) readNewLines(ctx context.Context, reader *bufio.Reader) {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				select {
				case t.errors <- err:
				default:
				}
			}
			return
		}

		line = strings.TrimRight(line, "\n\r")
		if line == "" {
			continue
		}

		entry := Line{Text: line, SourceFile: t.currentPath}

		// No lines are dropped: a full channel blocks the reader until
		// the consumer catches up, cancellation aside.
		select {
		case t.lines <- entry:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tailer) switchToNewFile(ctx context.Context, newPath string, reader *bufio.Reader) {
	t.readNewLines(ctx, reader)

	if t.currentFile != nil {
		_ = t.currentFile.Close()
	}

	newFile, err := os.Open(newPath)
	if err != nil {
		select {
		case t.errors <- fmt.Errorf("cannot open new log file: %w", err):
		default:
		}
		return
	}

	t.currentFile = newFile
	t.currentPath = newPath
	reader.Reset(newFile)
}

func (t *Tailer) cleanup() {
	if t.currentFile != nil {
		_ = t.currentFile.Close()
		t.currentFile = nil
	}
}

func isLogFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".log") &&
		(strings.HasPrefix(base, "postgresql") || strings.HasPrefix(base, "postgres"))
}

// pathsEqual compares two file paths for equality, case-insensitively so
// Windows' case-preserving-but-insensitive filesystem doesn't spuriously
// report a rename as a different file.
func pathsEqual(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

// ResolveLogFile resolves the most recent log file matching logPattern
// inside logDir without starting a Tailer goroutine, for callers that
// need the path but not a live stream.
func ResolveLogFile(logDir, logPattern string) (string, error) {
	t, err := New(Config{LogDir: logDir, LogPattern: logPattern})
	if err != nil {
		return "", err
	}
	return t.findMostRecentLogFile()
}
