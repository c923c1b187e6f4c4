package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/ScanGo/internal/logic/reader"
)

// MaxConfigFileBytes caps the size of a configuration file.
const MaxConfigFileBytes = 1 << 20

// Scanner modes.
const (
	ModeLive  = "Live"
	ModeImage = "Image"
)

// Camera types.
const (
	CameraDir  = "dir"
	CameraMock = "mock"
)

// ScannerConfig holds the scan options, with the host property names of
// the reader widget.
type ScannerConfig struct {
	Mode                   string `yaml:"mode"`                     // "Live" or "Image"
	BarcodeType            string `yaml:"barcode_type"`             // e.g., "Code_128"
	Resolution             string `yaml:"resolution"`               // e.g., "Re640x480"
	CameraFacingMode       string `yaml:"camera_facing_mode"`       // "Environment" or "User"
	PatchSize              string `yaml:"patch_size"`               // "X_small" .. "X_large"
	HalfSample             *bool  `yaml:"half_sample"`              // default true
	DrawDetectionIndicator *bool  `yaml:"draw_detection_indicator"` // default true
	Frequency              int    `yaml:"frequency"`                // scans per second
	StopOnDetect           bool   `yaml:"stop_on_detect"`           // stop live detection after the first code
}

// CameraConfig describes where frames come from.
// Type selects a concrete implementation ("dir" or "mock").
type CameraConfig struct {
	Type           string `yaml:"type"`
	EnvironmentDir string `yaml:"environment_dir"` // frames for the back camera (dir)
	UserDir        string `yaml:"user_dir"`        // frames for the front camera (dir), optional
	Image          string `yaml:"image"`           // frame served by the mock camera, optional
	TorchPin       int    `yaml:"torch_pin"`       // GPIO pin (BCM) of the torch LED. 0 = no torch.
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	WebPort    int  `yaml:"web_port"`    // port of the web interface
}

// Config aggregates all application configuration.
type Config struct {
	Scanner  ScannerConfig  `yaml:"scanner"`
	Camera   CameraConfig   `yaml:"camera"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// ValidateConfigPath checks that path names a .yaml file directly inside a
// configs/ directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Ext(abs) != ".yaml" {
		return fmt.Errorf("config file must have a .yaml extension: %s", path)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must be inside a configs/ directory: %s", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", MaxConfigFileBytes)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	switch cfg.Camera.Type {
	case "":
		return nil, fmt.Errorf("camera.type is required")
	case CameraDir:
		if cfg.Camera.EnvironmentDir == "" {
			return nil, fmt.Errorf("camera.environment_dir is required for camera type %q", CameraDir)
		}
	case CameraMock:
	default:
		return nil, fmt.Errorf("unknown camera.type %q (want %q or %q)", cfg.Camera.Type, CameraDir, CameraMock)
	}
	if cfg.Camera.TorchPin < 0 {
		return nil, fmt.Errorf("camera.torch_pin must be >= 0, got %d", cfg.Camera.TorchPin)
	}

	cfg.applyDefaults()

	if cfg.Scanner.Mode != ModeLive && cfg.Scanner.Mode != ModeImage {
		return nil, fmt.Errorf("scanner.mode must be %q or %q, got %q", ModeLive, ModeImage, cfg.Scanner.Mode)
	}
	if cfg.Scanner.Frequency < 0 {
		return nil, fmt.Errorf("scanner.frequency must be > 0, got %d", cfg.Scanner.Frequency)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	if cfg.Defaults.WebPort < 1 || cfg.Defaults.WebPort > 65535 {
		return nil, fmt.Errorf("defaults.web_port must be between 1 and 65535, got %d", cfg.Defaults.WebPort)
	}
	if _, err := cfg.Reader(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	s := &c.Scanner
	if s.Mode == "" {
		s.Mode = ModeLive
	}
	if s.BarcodeType == "" {
		s.BarcodeType = "Code_128"
	}
	if s.Resolution == "" {
		s.Resolution = "Re640x480"
	}
	if s.CameraFacingMode == "" {
		s.CameraFacingMode = "Environment"
	}
	if s.PatchSize == "" {
		s.PatchSize = "Medium"
	}
	if s.HalfSample == nil {
		s.HalfSample = boolPtr(true)
	}
	if s.DrawDetectionIndicator == nil {
		s.DrawDetectionIndicator = boolPtr(true)
	}
	if s.Frequency == 0 {
		s.Frequency = 60
	}
	if c.Defaults.WebPort == 0 {
		c.Defaults.WebPort = 8080
	}
}

// Reader builds the reader configuration of the scanner section.
func (c *Config) Reader() (reader.ReaderConfiguration, error) {
	s := c.Scanner
	var rc reader.ReaderConfiguration
	var err error

	rc.InputStream = reader.LiveStream
	if s.Mode == ModeImage {
		rc.InputStream = reader.ImageStream
	}
	if rc.Decoder, err = reader.ParseSymbology(s.BarcodeType); err != nil {
		return rc, fmt.Errorf("scanner.barcode_type: %w", err)
	}
	if rc.Resolution, err = reader.ParseResolution(s.Resolution); err != nil {
		return rc, fmt.Errorf("scanner.resolution: %w", err)
	}
	if rc.CameraFacingMode, err = reader.ParseFacingMode(s.CameraFacingMode); err != nil {
		return rc, fmt.Errorf("scanner.camera_facing_mode: %w", err)
	}
	if rc.PatchSize, err = reader.ParsePatchSize(s.PatchSize); err != nil {
		return rc, fmt.Errorf("scanner.patch_size: %w", err)
	}
	rc.HalfSample = s.HalfSample == nil || *s.HalfSample
	rc.DrawDetectionIndicator = s.DrawDetectionIndicator == nil || *s.DrawDetectionIndicator
	rc.Frequency = s.Frequency
	if err := rc.Validate(); err != nil {
		return rc, err
	}
	return rc, nil
}

// WebAddr returns the listen address of the web interface.
func (c *Config) WebAddr() string {
	return fmt.Sprintf(":%d", c.Defaults.WebPort)
}

func boolPtr(b bool) *bool { return &b }
