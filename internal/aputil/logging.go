// Package aputil holds small pieces of ambient daemon plumbing -- logging
// setup, mostly -- that every steerd binary needs and that don't belong to
// any one steering component.
package aputil

import (
	"fmt"
	"log"
	"log/syslog"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	atomicLevel = zap.NewAtomicLevel()
	daemonName  string
)

// verbosity levels, selected by repeating -v on the command line.
var levelByVerbosity = []zapcore.Level{
	zapcore.ErrorLevel, // -v not given
	zapcore.WarnLevel,
	zapcore.InfoLevel,
	zapcore.DebugLevel,
}

// LevelForVerbosity maps a -v repeat count to a zap level, clamping above the
// most verbose level this daemon knows about.
func LevelForVerbosity(count int) zapcore.Level {
	if count < 0 {
		count = 0
	}
	if count >= len(levelByVerbosity) {
		count = len(levelByVerbosity) - 1
	}
	return levelByVerbosity[count]
}

func zapTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006/01/02 15:04:05.000"))
}

// zapCallerEncoder annotates each log message with the daemon and file that
// generated it, e.g. "steerd:gossip/gossip.go:142".
func zapCallerEncoder(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	dir, fileName := filepath.Split(caller.File)
	dir = filepath.Base(dir)
	if dir != daemonName {
		fileName = filepath.Join(dir, fileName)
	}
	enc.AppendString(fmt.Sprintf("%s:%s:%d", daemonName, fileName, caller.Line))
}

type syslogWriter struct {
	w *syslog.Writer
}

func (s syslogWriter) Write(p []byte) (int, error) {
	if err := s.w.Info(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s syslogWriter) Sync() error {
	return nil
}

// NewLogger returns a "sugared" zap logger configured for a named daemon.
// When useSyslog is true, output goes to the local syslog facility instead
// of stderr; level is the initial verbosity, adjustable afterward with
// SetLevel.
func NewLogger(name string, level zapcore.Level, useSyslog bool) *zap.SugaredLogger {
	daemonName = name
	atomicLevel.SetLevel(level)

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapTimeEncoder
	encoderCfg.EncodeCaller = zapCallerEncoder

	var core zapcore.Core
	if useSyslog {
		w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, name)
		if err != nil {
			log.Panicf("can't open syslog: %s", err)
		}
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg),
			syslogWriter{w}, atomicLevel)
	} else {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(zapcore.AddSync(log.Writer())), atomicLevel)
	}

	logger := zap.New(core, zap.AddCaller())
	_ = zap.RedirectStdLog(logger)

	return logger.Sugar()
}

// NewChildLogger returns a sugared zap logger intended for reporting output
// captured from a child process; it omits caller annotation since the
// caller is, by construction, always the reader loop rather than the
// interesting source location.
func NewChildLogger(level zapcore.Level) *zap.SugaredLogger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapTimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(zapcore.AddSync(log.Writer())), level)
	return zap.New(core).Sugar()
}

// SetLevel adjusts the log level dynamically, e.g. in response to a
// management-surface config update of debug_level.
func SetLevel(level zapcore.Level) {
	atomicLevel.SetLevel(level)
}
