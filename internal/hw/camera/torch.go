package camera

import (
	"sync"

	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/hw/gpio"
)

// Torch is a LED driven by one GPIO output, active HIGH.
type Torch struct {
	mu  sync.Mutex
	drv gpio.Driver
	pin int
	on  bool
}

// NewTorch configures pin as output and switches the LED off.
func NewTorch(d gpio.Driver, pin int) (*Torch, error) {
	if err := d.SetupPin(pin, gpio.Output); err != nil {
		return nil, err
	}
	if err := d.WritePin(pin, gpio.Low); err != nil {
		return nil, err
	}
	return &Torch{drv: d, pin: pin}, nil
}

// Set switches the LED.
func (t *Torch) Set(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	level := gpio.Low
	if on {
		level = gpio.High
	}
	debug.Verbose("Torch: pin %d -> %v", t.pin, level)
	if err := t.drv.WritePin(t.pin, level); err != nil {
		return err
	}
	t.on = on
	return nil
}

// On reports the last level set.
func (t *Torch) On() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on
}
