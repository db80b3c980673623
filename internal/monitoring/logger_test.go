package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	defer SetLogger(nil)

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	Logf("hello %s", "world")
	if len(got) != 1 || got[0] != "hello world" {
		t.Errorf("Logf captured %v, want [hello world]", got)
	}

	// nil installs a no-op logger rather than panicking.
	SetLogger(nil)
	Logf("dropped")
	if len(got) != 1 {
		t.Errorf("no-op logger still captured output: %v", got)
	}
}

func TestEnableDebug(t *testing.T) {
	defer SetLogger(nil)
	defer EnableDebug(false)

	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})

	Debugf("muted by default")
	if len(got) != 0 {
		t.Errorf("muted Debugf produced output: %v", got)
	}

	EnableDebug(true)
	Debugf("window slot %d", 3)
	if len(got) != 1 || got[0] != "window slot 3" {
		t.Errorf("Debugf captured %v, want [window slot 3]", got)
	}

	EnableDebug(false)
	Debugf("muted again")
	if len(got) != 1 {
		t.Errorf("re-muted Debugf produced output: %v", got)
	}
}
