package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/teslashibe/go-facedrive/pkg/pose"
)

// ReadSamples loads the raw pose samples from a recorded session log, so a
// session can be replayed through the pipeline offline.
func ReadSamples(path string) ([]pose.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("session: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"t_unix_ms", "yaw", "pitch", "roll", "mouth_open", "face_found"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("session: %s: missing column %q", path, required)
		}
	}

	var samples []pose.Sample
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("session: read row: %w", err)
		}

		s, err := parseSample(row, col)
		if err != nil {
			return nil, fmt.Errorf("session: row %d: %w", len(samples)+2, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseSample(row []string, col map[string]int) (pose.Sample, error) {
	var s pose.Sample

	ms, err := strconv.ParseInt(row[col["t_unix_ms"]], 10, 64)
	if err != nil {
		return s, fmt.Errorf("bad timestamp: %w", err)
	}
	s.T = time.UnixMilli(ms)

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"yaw", &s.Yaw},
		{"pitch", &s.Pitch},
		{"roll", &s.Roll},
		{"mouth_open", &s.MouthOpen},
	} {
		v, err := strconv.ParseFloat(row[col[f.name]], 64)
		if err != nil {
			return s, fmt.Errorf("bad %s: %w", f.name, err)
		}
		*f.dst = v
	}

	for _, b := range []struct {
		name string
		dst  *bool
	}{
		{"blink_left", &s.BlinkLeft},
		{"blink_right", &s.BlinkRight},
		{"face_found", &s.FaceFound},
	} {
		idx, ok := col[b.name]
		if !ok {
			continue
		}
		v, err := strconv.ParseBool(row[idx])
		if err != nil {
			return s, fmt.Errorf("bad %s: %w", b.name, err)
		}
		*b.dst = v
	}

	return s, nil
}
