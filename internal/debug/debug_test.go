package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(LevelLive)
	defer Init(LevelOff)

	Info("visible %d", 1)
	Suppressed("ABC")
	Verbose("hidden")
	Trace("hidden too")

	got := buf.String()
	if !strings.Contains(got, "[INFO] visible 1") {
		t.Errorf("missing info line in %q", got)
	}
	if !strings.Contains(got, `Duplicate code suppressed: "ABC"`) {
		t.Errorf("missing live line in %q", got)
	}
	if strings.Contains(got, "hidden") {
		t.Errorf("verbose/trace lines should be filtered at level 2: %q", got)
	}
}

func TestLevelOffWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(LevelOff)

	Info("nothing")
	Error(bytes.ErrTooLarge)
	Code("X", "code_128_reader")

	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
	if Fmt("x=%d", 1) != "" {
		t.Error("Fmt should return empty string when debug is off")
	}
}

func TestSetOutputAfterInit(t *testing.T) {
	var first, second bytes.Buffer
	SetOutput(&first)
	Init(LevelInfo)
	defer Init(LevelOff)

	SetOutput(&second)
	Value("Barcode type", "Code_128")

	if first.Len() != 0 {
		t.Errorf("first writer should be unused after SetOutput, got %q", first.String())
	}
	if !strings.Contains(second.String(), "Barcode type = Code_128") {
		t.Errorf("second writer missing value line: %q", second.String())
	}
}

func TestIsEnabled(t *testing.T) {
	Init(LevelVerbose)
	defer Init(LevelOff)
	if !IsEnabled(LevelInfo) || !IsEnabled(LevelVerbose) {
		t.Error("levels up to verbose should be enabled")
	}
	if IsEnabled(LevelTrace) {
		t.Error("trace should not be enabled at verbose level")
	}
}
