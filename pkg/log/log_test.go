package log

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, name string) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	return ForService(name), buf
}

func TestPrefixAndLevel(t *testing.T) {
	SetGlobalDebug(false)

	const name = "prefix_service_test"
	l, buf := newTestLogger(t, name)

	l.Infof("found %d properties", 3)
	out := buf.String()

	if !strings.Contains(out, "INFO ["+name+">] found 3 properties") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestDebugPerService(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_specific"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Fatalf("debug message appeared while debug disabled")
	}

	EnableDebugFor(name)
	defer DisableDebugFor(name)
	l.Debugf("visible now")
	if !strings.Contains(buf.String(), "visible now") {
		t.Fatalf("expected debug message after enabling per-service debug; got: %q", buf.String())
	}
}

func TestDebugGlobal(t *testing.T) {
	SetGlobalDebug(false)

	const name = "debug_service_global"
	DisableDebugFor(name)
	l, buf := newTestLogger(t, name)

	l.Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug message appeared while global debug disabled")
	}

	SetGlobalDebug(true)
	defer SetGlobalDebug(false)

	l.Debugf("global visible")
	if !strings.Contains(buf.String(), "global visible") {
		t.Fatalf("expected debug message after enabling global debug; got: %q", buf.String())
	}
}

func TestNamedInheritsDebug(t *testing.T) {
	SetGlobalDebug(false)

	const parent = "named_parent_test"
	_, buf := newTestLogger(t, parent)
	child := ForService(parent).Named("abc123")

	if child.Name() != parent+"/abc123" {
		t.Fatalf("unexpected child name %q", child.Name())
	}

	child.Debugf("quiet")
	if strings.Contains(buf.String(), "quiet") {
		t.Fatalf("child debug leaked with parent debug disabled")
	}

	EnableDebugFor(parent)
	defer DisableDebugFor(parent)
	child.Debugf("loud")
	if !strings.Contains(buf.String(), "["+parent+"/abc123>] loud") {
		t.Fatalf("expected child debug line, got: %q", buf.String())
	}
}
