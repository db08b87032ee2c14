package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"go.viam.com/test"
)

type recordPosition struct {
	Offset int64
	Tag    string
	size   int
}

// readLine splits the next console line into its tab delimited parts.
func readLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

// checkCaller verifies a "dir/file.go:line" caller part without pinning the line number.
func checkCaller(t *testing.T, caller, wantFile string) {
	t.Helper()
	file, line, found := strings.Cut(caller, ":")
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, file, test.ShouldEqual, wantFile)
	_, err := strconv.Atoi(line)
	test.That(t, err, test.ShouldBeNil)
}

func TestConsoleLines(t *testing.T) {
	out := &bytes.Buffer{}
	logger := newImpl("ulogcat", DEBUG, true, NewWriterAppender(out))

	logger.Debugw("Read header", "version", 1, "timestamp", uint64(112500176))
	parts := readLine(t, out)
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2024-05-01T12:02:11.103Z"))
	test.That(t, strings.HasSuffix(parts[0], "Z"), test.ShouldBeTrue)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[2], test.ShouldEqual, "ulogcat")
	checkCaller(t, parts[3], "logging/impl_test.go")
	test.That(t, parts[4], test.ShouldEqual, "Read header")
	test.That(t, parts[5], test.ShouldEqual, `{"version":1,"timestamp":112500176}`)

	// Fields keep their order; exported struct fields are encoded as JSON.
	logger.Warnw("Unknown message type", "pos", recordPosition{Offset: 1204, Tag: "X", size: 3}, "state", "data")
	parts = readLine(t, out)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[5], test.ShouldEqual, `{"pos":{"Offset":1204,"Tag":"X"},"state":"data"}`)

	// No fields, no trailing JSON.
	logger.Infow("Log has appended data")
	parts = readLine(t, out)
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, parts[4], test.ShouldEqual, "Log has appended data")

	// An unpaired key is kept with an error value.
	logger.Errorw("Padding larger than remaining record", "format")
	parts = readLine(t, out)
	var fields map[string]interface{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields["format"], test.ShouldEqual, "unpaired log key")
}

func TestWithContext(t *testing.T) {
	out := &bytes.Buffer{}
	logger := newImpl("", DEBUG, false, NewWriterAppender(out))

	record := logger.With("offset", int64(84), "type", "D")
	record.Warnw("Leftover bytes after logged data", "leftover", 2)
	parts := readLine(t, out)
	// Without a logger name the caller follows the level.
	test.That(t, parts, test.ShouldHaveLength, 5)
	checkCaller(t, parts[2], "logging/impl_test.go")
	test.That(t, parts[4], test.ShouldEqual, `{"offset":84,"type":"D","leftover":2}`)

	// Context stacks and does not leak back into the parent.
	record.With("field", "lat").Errorw("Bad field")
	test.That(t, readLine(t, out)[4], test.ShouldEqual, `{"offset":84,"type":"D","field":"lat"}`)
	logger.Warnw("Plain")
	test.That(t, readLine(t, out), test.ShouldHaveLength, 4)

	// Derived loggers share the level and the appenders.
	other := &bytes.Buffer{}
	record.AddAppender(NewWriterAppender(other))
	logger.SetLevel(ERROR)
	test.That(t, record.GetLevel(), test.ShouldEqual, ERROR)
	record.Warnw("dropped")
	test.That(t, out.Len(), test.ShouldEqual, 0)
	logger.Errorw("kept")
	test.That(t, readLine(t, out)[3], test.ShouldEqual, "kept")
	test.That(t, readLine(t, other)[3], test.ShouldEqual, "kept")
}

func TestLevelFiltering(t *testing.T) {
	out := &bytes.Buffer{}
	logger := newImpl("", WARN, false, NewWriterAppender(out))

	logger.Debugw("dropped")
	logger.Infow("dropped")
	test.That(t, out.Len(), test.ShouldEqual, 0)

	logger.Warnw("kept", "msg_id", 7)
	parts := readLine(t, out)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[4], test.ShouldEqual, `{"msg_id":7}`)

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debugw("now visible")
	test.That(t, readLine(t, out)[1], test.ShouldEqual, "DEBUG")
}

func TestSubloggerNames(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	sub := logger.With("offset", int64(16)).Sublogger("parser").Sublogger("data")

	sub.Infow("decoded", "name", "vehicle_gps_position")
	test.That(t, observed.Len(), test.ShouldEqual, 1)
	entry := observed.All()[0]
	test.That(t, entry.LoggerName, test.ShouldEqual, "parser.data")
	test.That(t, entry.Message, test.ShouldEqual, "decoded")
	test.That(t, entry.Caller.Defined, test.ShouldBeTrue)
	test.That(t, entry.ContextMap(), test.ShouldResemble, map[string]interface{}{
		"offset": int64(16),
		"name":   "vehicle_gps_position",
	})

	// A sublogger's level is its own.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevelStrings(t *testing.T) {
	for _, level := range []Level{DEBUG, INFO, WARN, ERROR} {
		parsed, err := LevelFromString(strings.ToUpper(level.String()))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, level)

		asJSON, err := json.Marshal(level)
		test.That(t, err, test.ShouldBeNil)
		var fromJSON Level
		test.That(t, json.Unmarshal(asJSON, &fromJSON), test.ShouldBeNil)
		test.That(t, fromJSON, test.ShouldEqual, level)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, WARN.AsZap().String(), test.ShouldEqual, "warn")
}

func TestFileAppender(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ulogcat.log")
	appender := NewFileAppender(logPath, 1)
	logger := NewBlankLogger("ulogcat")
	logger.AddAppender(appender)

	logger.With("offset", 128).Errorw("Bad record")
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, appender.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "ERROR\tulogcat\t")
	test.That(t, string(contents), test.ShouldContainSubstring, "Bad record\t{\"offset\":128}")
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("ulogcat")
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
	test.That(t, NewBlankLogger("ulogcat").GetLevel(), test.ShouldEqual, DEBUG)
}
