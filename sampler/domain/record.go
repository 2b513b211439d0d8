package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxRecordLen bounds a persisted record including its line terminator.
const MaxRecordLen = 128

// LogRecord is one formatted, timestamped line headed for the durable log.
// Records are passed by value and never modified after creation.
type LogRecord struct {
	Kind      SensorKind
	Timestamp time.Duration
	Values    []Field
	Line      string
}

// FormatUptime renders d as "<seconds>.<milliseconds>" with three millisecond digits.
func FormatUptime(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

// NewLogRecord builds the record for a successful reading. text is the adapter output
// the reading was parsed from; it is kept verbatim apart from the trailing newline.
func NewLogRecord(reading SensorReading, text string) LogRecord {
	line := "[" + FormatUptime(reading.Timestamp) + "]:" + strings.TrimRight(text, "\r\n")
	if len(line) > MaxRecordLen-1 {
		cut := MaxRecordLen - 1
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut]
	}
	return LogRecord{
		Kind:      reading.Kind,
		Timestamp: reading.Timestamp,
		Values:    cloneFields(reading.Values),
		Line:      line,
	}
}
