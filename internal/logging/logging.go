// Package logging carries the small logging seam the decoder uses to report
// tolerated, non-fatal conditions: a skipped top-level object, an unknown
// object type, a resolved interface, a timestamp with an unrecognized
// resolution flag. Nothing here is fatal on its own; a caller that wants
// these surfaced (or silenced) supplies an L, and the zero value is a
// working no-op logger.
package logging

// L accepts the two severities the decoder actually emits: Warnf for
// conditions worth a capture-run's attention (an unexpected top-level
// object, a timestamp resolution the decoder doesn't recognize), Debugf for
// routine bookkeeping (a newly resolved interface, a skipped unknown object
// type). It is deliberately narrow rather than mirroring a full logger
// interface, so any adapter (zap's SugaredLogger, logrus, a plain
// log.Logger wrapper) needs only these two methods to plug in.
type L interface {
	// Warnf emits a warning-level log.
	Warnf(fmt string, args ...interface{})
	// Debugf emits a debug-level log.
	Debugf(fmt string, args ...interface{})
}

// Nop is an L instance that discards everything.
var Nop L = nopLogger{}

// Must returns l if it is non-nil, or Nop otherwise, so callers throughout
// this module can hold a logging.L field and call it unconditionally.
func Must(l L) L {
	if l != nil {
		return l
	}
	return Nop
}

type nopLogger struct{}

func (nopLogger) Warnf(fmt string, args ...interface{})  {}
func (nopLogger) Debugf(fmt string, args ...interface{}) {}
