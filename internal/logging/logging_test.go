package logging

import "testing"

func TestMustReturnsNopForNil(t *testing.T) {
	if Must(nil) != Nop {
		t.Error("Must(nil) should return Nop")
	}
}

type recordingLogger struct {
	warnf, debugf int
}

func (r *recordingLogger) Warnf(fmt string, args ...interface{})  { r.warnf++ }
func (r *recordingLogger) Debugf(fmt string, args ...interface{}) { r.debugf++ }

func TestMustPassesThroughNonNil(t *testing.T) {
	r := &recordingLogger{}
	l := Must(r)
	l.Warnf("x")
	l.Debugf("y")
	if r.warnf != 1 || r.debugf != 1 {
		t.Errorf("Must(r) did not return r itself: warnf=%d debugf=%d", r.warnf, r.debugf)
	}
}

func TestNopDiscards(t *testing.T) {
	// Just confirm these don't panic; Nop has nothing to assert against.
	Nop.Warnf("%d", 1)
	Nop.Debugf("%d", 1)
}
