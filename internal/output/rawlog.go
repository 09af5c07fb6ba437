package output

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const rawLogMagic = "BRDGRAW1"

// record is one logged telemetry event: which session sent it and the raw
// payload bytes, exactly as they arrived.
type record struct {
	SID  string `cbor:"sid"`
	Data []byte `cbor:"data"`
}

// Record is a decoded raw-log entry.
type Record struct {
	Timestamp time.Time
	SID       string
	Data      []byte
}

// TelemetryLog appends raw telemetry payloads to a session log file:
// an 8-byte magic, then per record a little-endian nanosecond timestamp,
// a payload size, and a CBOR-encoded {sid, data} map.
type TelemetryLog struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func NewTelemetryLog(dir string, prefix string) (*TelemetryLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(dir, fmt.Sprintf("%s_%s.bin", timestamp, prefix))
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(rawLogMagic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &TelemetryLog{
		f: f,
		w: w,
	}, nil
}

func (l *TelemetryLog) Record(sid string, payload []byte) error {
	encoded, err := cbor.Marshal(record{SID: sid, Data: payload})
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return fmt.Errorf("telemetry log is closed")
	}
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(encoded)))
	if _, err := l.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := l.w.Write(encoded); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *TelemetryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	if err := l.w.Flush(); err != nil {
		_ = l.f.Close()
		l.w = nil
		return err
	}
	err := l.f.Close()
	l.w = nil
	return err
}

// ReadRecords decodes a raw log stream. limit <= 0 reads everything.
func ReadRecords(r io.Reader, limit int) ([]Record, error) {
	header := make([]byte, len(rawLogMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(header) != rawLogMagic {
		return nil, fmt.Errorf("unexpected raw log magic %q", string(header))
	}

	var records []Record
	for limit <= 0 || len(records) < limit {
		var meta [12]byte
		if _, err := io.ReadFull(r, meta[:]); err != nil {
			if err == io.EOF {
				return records, nil
			}
			return records, fmt.Errorf("read record header: %w", err)
		}
		ts := int64(binary.LittleEndian.Uint64(meta[:8]))
		size := binary.LittleEndian.Uint32(meta[8:12])
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return records, fmt.Errorf("read payload: %w", err)
		}

		var entry record
		if err := cbor.Unmarshal(payload, &entry); err != nil {
			return records, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, Record{
			Timestamp: time.Unix(0, ts),
			SID:       entry.SID,
			Data:      entry.Data,
		})
	}
	return records, nil
}
