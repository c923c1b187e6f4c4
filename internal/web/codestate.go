package web

import (
	"sync"

	"github.com/cjeanneret/ScanGo/internal/logic/listener"
)

// NotFound is the code value published after an image decode that found
// nothing.
const NotFound = "NOT_FOUND"

// CodeState keeps the last published code. With stopOnDetect it stops the
// live detection after the first code.
type CodeState struct {
	stopOnDetect bool
	stop         func()

	mu     sync.Mutex
	code   string
	format string
}

var _ listener.Observer = (*CodeState)(nil)

// NewCodeState creates the code holder. stop is called after a detection
// when stopOnDetect is set; it may be nil.
func NewCodeState(stopOnDetect bool, stop func()) *CodeState {
	return &CodeState{stopOnDetect: stopOnDetect, stop: stop}
}

func (c *CodeState) OnDetected(code, symbology string) {
	c.mu.Lock()
	c.code, c.format = code, symbology
	c.mu.Unlock()
	if c.stopOnDetect && c.stop != nil {
		c.stop()
	}
}

func (c *CodeState) OnNotDetected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code, c.format = NotFound, ""
}

// Code returns the last code and its symbology.
func (c *CodeState) Code() (code, symbology string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.format
}
