package web

import "testing"

func TestCodeState_Tracks(t *testing.T) {
	c := NewCodeState(false, nil)
	if code, _ := c.Code(); code != "" {
		t.Errorf("initial code = %q, want empty", code)
	}

	c.OnDetected("123", "ean_8_reader")
	if code, format := c.Code(); code != "123" || format != "ean_8_reader" {
		t.Errorf("got %q/%q", code, format)
	}

	c.OnNotDetected()
	if code, format := c.Code(); code != NotFound || format != "" {
		t.Errorf("got %q/%q, want %q", code, format, NotFound)
	}
}

func TestCodeState_StopOnDetect(t *testing.T) {
	stops := 0
	c := NewCodeState(true, func() { stops++ })

	c.OnNotDetected()
	if stops != 0 {
		t.Error("not detected must not stop")
	}
	c.OnDetected("A", "code_128_reader")
	if stops != 1 {
		t.Errorf("stops = %d, want 1", stops)
	}

	keep := NewCodeState(false, func() { t.Error("stop called without stopOnDetect") })
	keep.OnDetected("A", "code_128_reader")
}
