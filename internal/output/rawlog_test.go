package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logFile(t *testing.T, dir string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*_telemetry.bin"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}

func TestRecordRoundTrip(t *testing.T) {
	dir := t.TempDir()
	log, err := NewTelemetryLog(dir, "telemetry")
	require.NoError(t, err)

	require.NoError(t, log.Record("sid-a", []byte(`{"speed":"1.0"}`)))
	require.NoError(t, log.Record("sid-b", []byte(`null`)))
	require.NoError(t, log.Record("sid-a", []byte(`{"speed":"2.0"}`)))
	require.NoError(t, log.Close())

	f, err := os.Open(logFile(t, dir))
	require.NoError(t, err)
	defer f.Close()

	records, err := ReadRecords(f, 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "sid-a", records[0].SID)
	assert.Equal(t, []byte(`{"speed":"1.0"}`), records[0].Data)
	assert.Equal(t, "sid-b", records[1].SID)
	assert.Equal(t, []byte(`null`), records[1].Data)
	assert.Equal(t, "sid-a", records[2].SID)
	assert.False(t, records[0].Timestamp.IsZero())
	assert.False(t, records[0].Timestamp.After(records[2].Timestamp))
}

func TestReadRecordsLimit(t *testing.T) {
	dir := t.TempDir()
	log, err := NewTelemetryLog(dir, "telemetry")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, log.Record("sid", []byte("{}")))
	}
	require.NoError(t, log.Close())

	f, err := os.Open(logFile(t, dir))
	require.NoError(t, err)
	defer f.Close()

	records, err := ReadRecords(f, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadRecordsBadMagic(t *testing.T) {
	_, err := ReadRecords(bytes.NewReader([]byte("NOTALOG1")), 0)
	require.Error(t, err)
}

func TestRecordAfterClose(t *testing.T) {
	log, err := NewTelemetryLog(t.TempDir(), "telemetry")
	require.NoError(t, err)
	require.NoError(t, log.Close())
	require.Error(t, log.Record("sid", []byte("{}")))
}
