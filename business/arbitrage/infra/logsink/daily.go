// Package logsink writes operator diagnostics to one text file per UTC day.
package logsink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/fd1az/dex-arb-monitor/business/arbitrage/app"
	"github.com/fd1az/dex-arb-monitor/internal/apperror"
	"github.com/fd1az/dex-arb-monitor/internal/logger"
)

const (
	filePrefix = "arbitrage_log_"
	dayLayout  = "2006-01-02"
)

var _ app.LogSink = (*DailyFile)(nil)

// DailyFile appends "[<RFC3339Nano UTC>] message" records to
// arbitrage_log_YYYY-MM-DD.txt, switching files when the UTC day changes.
type DailyFile struct {
	fs     afero.Fs
	dir    string
	logger logger.LoggerInterface
	now    func() time.Time

	mu   sync.Mutex
	day  string
	file afero.File
}

// Option configures a DailyFile.
type Option func(*DailyFile)

// WithFs swaps the filesystem, mainly for tests.
func WithFs(fs afero.Fs) Option {
	return func(d *DailyFile) { d.fs = fs }
}

// WithClock overrides the time source used for stamps and rotation.
func WithClock(now func() time.Time) Option {
	return func(d *DailyFile) { d.now = now }
}

func NewDailyFile(dir string, log logger.LoggerInterface, opts ...Option) (*DailyFile, error) {
	d := &DailyFile{
		fs:     afero.NewOsFs(),
		dir:    dir,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, apperror.New(apperror.CodeLogWriteFailed,
			apperror.WithCause(err),
			apperror.WithContext("create log dir "+dir))
	}
	return d, nil
}

// FileName returns the sink file name for the UTC day of t.
func FileName(t time.Time) string {
	return filePrefix + t.UTC().Format(dayLayout) + ".txt"
}

// Append writes one record. Callers are expected to log and continue on error.
func (d *DailyFile) Append(ctx context.Context, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now().UTC()
	if err := d.rotate(ctx, now); err != nil {
		return err
	}

	record := fmt.Sprintf("[%s] %s\n", now.Format(time.RFC3339Nano), message)
	if _, err := d.file.WriteString(record); err != nil {
		return apperror.New(apperror.CodeLogWriteFailed,
			apperror.WithCause(err),
			apperror.WithContext(d.file.Name()))
	}
	return nil
}

func (d *DailyFile) rotate(ctx context.Context, now time.Time) error {
	day := now.Format(dayLayout)
	if d.file != nil && day == d.day {
		return nil
	}

	path := filepath.Join(d.dir, FileName(now))
	f, err := d.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return apperror.New(apperror.CodeLogWriteFailed,
			apperror.WithCause(err),
			apperror.WithContext("open "+path))
	}

	if d.file != nil {
		if err := d.file.Close(); err != nil {
			d.logger.Warn(ctx, "closing previous log sink file", "file", d.file.Name(), "error", err)
		}
		d.logger.Info(ctx, "log sink rotated", "file", path)
	}

	d.file = f
	d.day = day
	return nil
}

// Path is the file currently being written, empty before the first record.
func (d *DailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return ""
	}
	return d.file.Name()
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	d.day = ""
	return err
}
