package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-facedrive/pkg/control"
	"github.com/teslashibe/go-facedrive/pkg/filter"
	"github.com/teslashibe/go-facedrive/pkg/pose"
)

func TestWriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	t0 := time.UnixMilli(1700000000000)
	records := []Record{
		{
			Sample: pose.Sample{Yaw: 12.5, Pitch: -3.25, MouthOpen: 0.1, FaceFound: true, T: t0},
			Signal: filter.Signal{DYaw: 9.5},
			Intent: control.Intent{Steer: 0.63},
			State:  "active",
		},
		{
			Sample: pose.Sample{BlinkLeft: true, FaceFound: false, T: t0.Add(20 * time.Millisecond)},
			Intent: control.Intent{Brake: true},
			State:  "signal-lost",
			KeyEvents: "-d -w",
		},
	}
	for _, rec := range records {
		w.Write(rec)
	}
	require.NoError(t, w.Close())
	assert.Equal(t, uint64(2), w.Rows())

	samples, err := ReadSamples(w.Path())
	require.NoError(t, err)
	require.Len(t, samples, 2)

	assert.InDelta(t, 12.5, samples[0].Yaw, 1e-9)
	assert.InDelta(t, -3.25, samples[0].Pitch, 1e-9)
	assert.True(t, samples[0].FaceFound)
	assert.Equal(t, t0, samples[0].T)

	assert.True(t, samples[1].BlinkLeft)
	assert.False(t, samples[1].FaceFound)
}

func TestSessionFileNaming(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	defer w.Close()

	assert.Len(t, w.ID(), 8)
	assert.Equal(t, dir, filepath.Dir(w.Path()))
	assert.Contains(t, filepath.Base(w.Path()), w.ID())
}

func TestReadSamplesMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("yaw,pitch\n1.0,2.0\n"), 0o644))

	_, err := ReadSamples(path)
	assert.Error(t, err)
}
