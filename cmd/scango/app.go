package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/urfave/cli/v2"

	"github.com/cjeanneret/ScanGo/internal/config"
	"github.com/cjeanneret/ScanGo/internal/debug"
	"github.com/cjeanneret/ScanGo/internal/engine/zxing"
	"github.com/cjeanneret/ScanGo/internal/hw/camera"
	"github.com/cjeanneret/ScanGo/internal/hw/gpio"
	"github.com/cjeanneret/ScanGo/internal/logic/listener"
	"github.com/cjeanneret/ScanGo/internal/logic/reader"
	"github.com/cjeanneret/ScanGo/internal/logic/session"
	"github.com/cjeanneret/ScanGo/internal/web"
)

// renderTarget is the overlay surface reference handed to the engine.
const renderTarget = "#scanner"

// overrides holds CLI values that take precedence over the config file.
// Zero values mean "use config default".
type overrides struct {
	DebugLevel  int // -1 = config
	BarcodeType string
	Port        int
}

func buildApp() *cli.App {
	return &cli.App{
		Name:  "scango",
		Usage: "barcode scanner",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: filepath.Join("configs", "default.yaml"),
				Usage: "path to config file",
			},
			&cli.IntFlag{
				Name:  "debug-level",
				Value: -1,
				Usage: "override debug level (0-4)",
			},
			&cli.StringFlag{
				Name:  "barcode-type",
				Usage: "override barcode type (e.g. Code_39 or code_39_reader)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "live",
				Usage: "print codes detected on the camera stream",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "once", Usage: "stop after the first code"},
					&cli.DurationFlag{Name: "timeout", Usage: "stop after this duration (0 = until interrupted)"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return runLive(c.Context, cfg, c.App.Writer, c.Bool("once") || cfg.Scanner.StopOnDetect, c.Duration("timeout"))
				},
			},
			{
				Name:      "decode",
				Usage:     "decode a single image",
				ArgsUsage: "<image>",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "give up after this duration"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("decode needs exactly one image path")
					}
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					return runDecode(c.Context, cfg, c.App.Writer, c.Args().First(), c.Duration("timeout"))
				},
			},
			{
				Name:  "serve",
				Usage: "start the web interface",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "port", Usage: "web server port (0 = config web_port)"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c, withPort(c.Int("port")))
					if err != nil {
						return err
					}
					return runServe(c.Context, cfg)
				},
			},
		},
	}
}

func withPort(port int) func(*overrides) {
	return func(o *overrides) { o.Port = port }
}

// loadConfig reads the config file, applies the global flag overrides and
// initializes the debug system.
func loadConfig(c *cli.Context, opts ...func(*overrides)) (*config.Config, error) {
	path := c.String("config")
	if err := config.ValidateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	o := overrides{DebugLevel: c.Int("debug-level"), BarcodeType: c.String("barcode-type")}
	for _, opt := range opts {
		opt(&o)
	}
	if err := validateCLIOverrides(o); err != nil {
		return nil, fmt.Errorf("invalid CLI override: %w", err)
	}
	applyOverrides(cfg, o)

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", path)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	return cfg, nil
}

// validateCLIOverrides checks that set CLI overrides are within valid ranges.
func validateCLIOverrides(o overrides) error {
	if o.DebugLevel < -1 || o.DebugLevel > 4 {
		return fmt.Errorf("debug-level must be between 0 and 4, got %d", o.DebugLevel)
	}
	if o.BarcodeType != "" {
		if _, err := reader.ParseSymbology(o.BarcodeType); err != nil {
			return err
		}
	}
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", o.Port)
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only set override values are applied.
func applyOverrides(cfg *config.Config, o overrides) {
	if o.DebugLevel >= 0 {
		cfg.Defaults.DebugLevel = o.DebugLevel
	}
	if o.BarcodeType != "" {
		cfg.Scanner.BarcodeType = o.BarcodeType
	}
	if o.Port > 0 {
		cfg.Defaults.WebPort = o.Port
	}
}

// scanner is the wired hardware, engine and session.
type scanner struct {
	gpio    gpio.Driver
	engine  *zxing.Engine
	session *session.Session
}

func newScanner(cfg *config.Config, opts ...session.Option) (*scanner, error) {
	rc, err := cfg.Reader()
	if err != nil {
		return nil, err
	}

	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	drv, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		return nil, fmt.Errorf("init GPIO failed: %w", err)
	}

	debug.Step(2, "Initializing camera")
	cam, err := newCameraFromConfig(drv, cfg)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("init camera failed: %w", err)
	}
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Torch pin", cfg.Camera.TorchPin)

	debug.Step(3, "Creating detection session")
	eng := zxing.New(cam)
	sess := session.New(eng, renderTarget, rc, opts...)
	debug.PrintStruct("Reader configuration", rc)

	return &scanner{gpio: drv, engine: eng, session: sess}, nil
}

func (s *scanner) Close() {
	s.session.StopLive()
	if err := s.gpio.Close(); err != nil {
		debug.Error(fmt.Errorf("closing GPIO driver failed: %w", err))
	}
}

// newCameraFromConfig selects a camera implementation based on configuration.
func newCameraFromConfig(g gpio.Driver, cfg *config.Config) (camera.Camera, error) {
	var torch *camera.Torch
	if cfg.Camera.TorchPin > 0 {
		t, err := camera.NewTorch(g, cfg.Camera.TorchPin)
		if err != nil {
			return nil, fmt.Errorf("init torch: %w", err)
		}
		torch = t
	}

	switch cfg.Camera.Type {
	case config.CameraDir:
		return camera.NewDirCamera(cfg.Camera.EnvironmentDir, cfg.Camera.UserDir, torch), nil
	case config.CameraMock:
		var img image.Image
		if cfg.Camera.Image != "" {
			loaded, err := imaging.Open(cfg.Camera.Image)
			if err != nil {
				return nil, fmt.Errorf("load mock camera image: %w", err)
			}
			img = loaded
		}
		return camera.NewStaticCamera(img, torch), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

// runLive prints every detected code until ctx is done, timeout elapsed or,
// with once, the first code. It fails when the engine cannot initialize.
func runLive(ctx context.Context, cfg *config.Config, out io.Writer, once bool, timeout time.Duration) error {
	initErr := make(chan error, 1)
	s, err := newScanner(cfg, session.WithInitError(func(err error) {
		select {
		case initErr <- err:
		default:
		}
	}))
	if err != nil {
		return err
	}
	defer s.Close()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	first := make(chan struct{}, 1)
	s.session.Register(&listener.FuncObserver{
		Detected: func(code, symbology string) {
			fmt.Fprintln(out, code)
			if once {
				s.session.StopLive()
				select {
				case first <- struct{}{}:
				default:
				}
			}
		},
	})

	debug.Section("Live detection")
	s.session.StartLive()

	select {
	case <-first:
	case err := <-initErr:
		return fmt.Errorf("start live detection: %w", err)
	case <-ctx.Done():
	}
	return nil
}

// runDecode decodes path and prints the code, or NOT_FOUND.
func runDecode(ctx context.Context, cfg *config.Config, out io.Writer, path string, timeout time.Duration) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	s, err := newScanner(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	result := make(chan string, 1)
	s.session.Decode(path, func(code, _ string) {
		if code == "" {
			code = web.NotFound
		}
		result <- code
	})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case code := <-result:
		fmt.Fprintln(out, code)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("decode %s: %w", path, ctx.Err())
	}
}

// runServe starts the web interface. In Live mode detection starts right away.
func runServe(ctx context.Context, cfg *config.Config) error {
	s, err := newScanner(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	broadcaster := web.NewEventBroadcaster()
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	defer debug.SetOutput(os.Stdout)

	codes := web.NewCodeState(cfg.Scanner.StopOnDetect, s.session.StopLive)
	s.session.Register(broadcaster)
	s.session.Register(codes)

	if cfg.Scanner.Mode == config.ModeLive {
		s.session.StartLive()
	}

	srv := web.NewServer(cfg.WebAddr(), s.session, broadcaster, codes, s.engine.Canvas())
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}
