// Package wtlog centralizes the per-subsystem btclog.Logger instances used
// across the watchtower, following a tagged-subsystem-logger convention
// generalized to this daemon's own subsystems. Every accepted state
// transition emits one structured line through one of these loggers.
package wtlog

import (
	"fmt"
	"log"
	"os"

	"github.com/btcsuite/btclog"
)

// subLogger is a minimal btclog.Logger implementation tagging every line
// with its subsystem, mirroring the tagged stdout logger lnd wires up in
// its own log.go before a richer rotating-file backend is configured.
type subLogger struct {
	tag   string
	level btclog.Level
	std   *log.Logger
}

func newSubLogger(tag string) *subLogger {
	return &subLogger{
		tag:   tag,
		level: btclog.InfoLvl,
		std:   log.New(os.Stdout, "", log.LstdFlags),
	}
}

func (l *subLogger) logf(lvl btclog.Level, tag string, format string, args ...interface{}) {
	if lvl < l.level {
		return
	}
	l.std.Printf("[%s] %s: %s", tag, l.tag, fmt.Sprintf(format, args...))
}

func (l *subLogger) log(lvl btclog.Level, tag string, args ...interface{}) {
	if lvl < l.level {
		return
	}
	l.std.Printf("[%s] %s: %s", tag, l.tag, fmt.Sprint(args...))
}

func (l *subLogger) Tracef(format string, args ...interface{})    { l.logf(btclog.TraceLvl, "TRC", format, args...) }
func (l *subLogger) Debugf(format string, args ...interface{})    { l.logf(btclog.DebugLvl, "DBG", format, args...) }
func (l *subLogger) Infof(format string, args ...interface{})     { l.logf(btclog.InfoLvl, "INF", format, args...) }
func (l *subLogger) Warnf(format string, args ...interface{})     { l.logf(btclog.WarnLvl, "WRN", format, args...) }
func (l *subLogger) Errorf(format string, args ...interface{})    { l.logf(btclog.ErrorLvl, "ERR", format, args...) }
func (l *subLogger) Criticalf(format string, args ...interface{}) { l.logf(btclog.CriticalLvl, "CRT", format, args...) }

func (l *subLogger) Trace(args ...interface{})    { l.log(btclog.TraceLvl, "TRC", args...) }
func (l *subLogger) Debug(args ...interface{})    { l.log(btclog.DebugLvl, "DBG", args...) }
func (l *subLogger) Info(args ...interface{})     { l.log(btclog.InfoLvl, "INF", args...) }
func (l *subLogger) Warn(args ...interface{})     { l.log(btclog.WarnLvl, "WRN", args...) }
func (l *subLogger) Error(args ...interface{})    { l.log(btclog.ErrorLvl, "ERR", args...) }
func (l *subLogger) Critical(args ...interface{}) { l.log(btclog.CriticalLvl, "CRT", args...) }

func (l *subLogger) SetLevel(level btclog.Level) { l.level = level }
func (l *subLogger) Level() btclog.Level         { return l.level }

// Subsystem loggers. Each package that needs to log obtains its logger
// from here rather than constructing its own, so a single level can be
// applied to every subsystem at once from config.
var (
	WTLog  btclog.Logger = newSubLogger("WTCH") // watchtower core (ingest + dispute evaluator)
	SGNLog btclog.Logger = newSubLogger("SGNR") // signer service
	HTPLog btclog.Logger = newSubLogger("HTTP") // HTTP surface
	STRLog btclog.Logger = newSubLogger("STOR") // state store
	EVTLog btclog.Logger = newSubLogger("EVNT") // event parser
	VFYLog btclog.Logger = newSubLogger("VRFY") // signature verifier
	DSPLog btclog.Logger = newSubLogger("DISP") // dispute executor
	CFGLog btclog.Logger = newSubLogger("CONF") // config + bootstrap
)

// SetLevel applies lvl to every subsystem logger. Called once at startup
// from the resolved configuration.
func SetLevel(lvl btclog.Level) {
	for _, l := range []btclog.Logger{
		WTLog, SGNLog, HTPLog, STRLog, EVTLog, VFYLog, DSPLog, CFGLog,
	} {
		l.SetLevel(lvl)
	}
}
