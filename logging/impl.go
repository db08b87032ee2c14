package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger handed to the parser and the tools built on it. Every entry is
// a message plus alternating keys and values.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// With returns a logger that adds `keysAndValues` in front of the fields of every entry, e.g.
	// the offset of the record being decoded. The returned logger shares level and appenders.
	With(keysAndValues ...interface{}) Logger
	// Sublogger returns a new logger with the same appenders whose name is joined to this one
	// with a dot.
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	SetLevel(level Level)
	GetLevel() Level
	Sync() error
}

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	// context is prepended to the keys and values of every entry.
	context []interface{}
	// appenders is shared by loggers derived through With.
	appenders *[]Appender
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     inUTC,
		appenders: &appenders,
	}
}

func (imp *impl) AddAppender(appender Appender) {
	*imp.appenders = append(*imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) With(keysAndValues ...interface{}) Logger {
	context := make([]interface{}, 0, len(imp.context)+len(keysAndValues))
	context = append(context, imp.context...)
	context = append(context, keysAndValues...)

	ret := *imp
	ret.context = context
	return &ret
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}

	appenders := append([]Appender(nil), *imp.appenders...)
	return &impl{
		name:      newName,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		context:   imp.context,
		appenders: &appenders,
	}
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range *imp.appenders {
		err = multierr.Combine(err, appender.Sync())
	}
	return err
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.logw(DEBUG, msg, keysAndValues)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.logw(INFO, msg, keysAndValues)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.logw(WARN, msg, keysAndValues)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.logw(ERROR, msg, keysAndValues)
}

// logw must be called directly by the exported level methods so the caller lookup finds the
// line that logged.
func (imp *impl) logw(level Level, msg string, keysAndValues []interface{}) {
	if level < imp.level.Get() {
		return
	}

	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     callerOf(3),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}

	fields := make([]zapcore.Field, 0, (len(imp.context)+len(keysAndValues))/2)
	fields = appendFields(fields, imp.context)
	fields = appendFields(fields, keysAndValues)

	for _, appender := range *imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err) //nolint:errcheck
		}
	}
}

var errUnpairedKey = errors.New("unpaired log key")

// appendFields turns alternating keys and values into zap fields. A trailing key without a
// value is logged with an error value instead of being dropped.
func appendFields(fields []zapcore.Field, keysAndValues []interface{}) []zapcore.Field {
	for idx := 0; idx < len(keysAndValues); idx += 2 {
		var key string
		switch typed := keysAndValues[idx].(type) {
		case string:
			key = typed
		case fmt.Stringer:
			key = typed.String()
		default:
			key = fmt.Sprint(typed)
		}

		if idx+1 < len(keysAndValues) {
			fields = append(fields, zap.Any(key, keysAndValues[idx+1]))
		} else {
			fields = append(fields, zap.Any(key, errUnpairedKey))
		}
	}
	return fields
}

// callerOf returns the caller `skip` frames above callerOf itself. Frames are walked with
// runtime.CallersFrames so inlined level methods are still counted.
func callerOf(skip int) zapcore.EntryCaller {
	var pcs [1]uintptr
	if runtime.Callers(skip+1, pcs[:]) == 0 {
		return zapcore.EntryCaller{}
	}
	frame, _ := runtime.CallersFrames(pcs[:]).Next()
	if frame.PC == 0 {
		return zapcore.EntryCaller{}
	}
	return zapcore.EntryCaller{
		Defined:  true,
		PC:       frame.PC,
		File:     frame.File,
		Line:     frame.Line,
		Function: frame.Function,
	}
}
