// Package session records per-tick pipeline state to CSV for offline
// analysis and replay. The core only writes; nothing reads the log back
// during a session.
package session

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-facedrive/pkg/control"
	"github.com/teslashibe/go-facedrive/pkg/filter"
	"github.com/teslashibe/go-facedrive/pkg/pose"
)

// Header is the CSV column layout, one row per tick.
var Header = []string{
	"t_unix_ms",
	"yaw", "pitch", "roll", "mouth_open",
	"blink_left", "blink_right", "face_found",
	"d_yaw", "d_pitch", "d_roll", "mouth_norm",
	"steer", "throttle", "brake", "reverse", "flags",
	"state", "key_events",
}

// Record is one tick's log row.
type Record struct {
	Sample pose.Sample
	Signal filter.Signal
	Intent control.Intent
	State  string
	// KeyEvents encodes this tick's transitions, e.g. "+d -a".
	KeyEvents string
}

// Writer is a buffered, concurrency-safe CSV session log.
// The hot path only encodes into the buffer; flushing to the OS happens on
// the drive loop's flush interval, never per row.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows uint64

	id   string
	path string
}

// NewWriter creates a session log file under dir, named with the session
// start time and a short session id.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create dir %s: %w", dir, err)
	}

	id := uuid.NewString()[:8]
	name := fmt.Sprintf("facedrive_%s_%s.csv", time.Now().Format("20060102_150405"), id)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("session: create %s: %w", path, err)
	}

	bw := bufio.NewWriterSize(f, 64*1024)
	cw := csv.NewWriter(bw)

	w := &Writer{file: f, buf: bw, csv: cw, id: id, path: path}
	if err := cw.Write(Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("session: write header: %w", err)
	}
	return w, nil
}

// ID returns the short session id.
func (w *Writer) ID() string {
	return w.id
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Write appends one tick record. Thread-safe; errors are buffered and
// surface on Flush.
func (w *Writer) Write(rec Record) {
	row := []string{
		strconv.FormatInt(rec.Sample.T.UnixMilli(), 10),
		formatFloat(rec.Sample.Yaw),
		formatFloat(rec.Sample.Pitch),
		formatFloat(rec.Sample.Roll),
		formatFloat(rec.Sample.MouthOpen),
		strconv.FormatBool(rec.Sample.BlinkLeft),
		strconv.FormatBool(rec.Sample.BlinkRight),
		strconv.FormatBool(rec.Sample.FaceFound),
		formatFloat(rec.Signal.DYaw),
		formatFloat(rec.Signal.DPitch),
		formatFloat(rec.Signal.DRoll),
		formatFloat(rec.Signal.MouthNorm),
		formatFloat(rec.Intent.Steer),
		formatFloat(rec.Intent.Throttle),
		strconv.FormatBool(rec.Intent.Brake),
		strconv.FormatBool(rec.Intent.Reverse),
		rec.Intent.Flags.String(),
		rec.State,
		rec.KeyEvents,
	}

	w.mu.Lock()
	_ = w.csv.Write(row)
	w.rows++
	w.mu.Unlock()
}

// Flush pushes buffered rows to the OS and reports any buffered error.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("session: flush: %w", err)
	}
	return w.buf.Flush()
}

// Close flushes remaining rows and closes the file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Rows returns the number of data rows written.
func (w *Writer) Rows() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
