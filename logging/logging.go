// Package logging builds the console logger shared by the CLI and the
// operation TUI.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to w. Debug lowers the level from info.
func New(w io.Writer, debug bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.ConsoleSeparator = " "

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}

// Redirect returns a new logger writing to w, named name. The TUI uses it to
// route messages into its log pane.
func Redirect(w io.Writer, debug bool, name string) *zap.SugaredLogger {
	log := New(w, debug)
	if name != "" {
		log = log.Named(name)
	}
	return log
}
