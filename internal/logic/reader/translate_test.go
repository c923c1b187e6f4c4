package reader

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func baseConfig() ReaderConfiguration {
	return ReaderConfiguration{
		InputStream:            LiveStream,
		Resolution:             Res640x480,
		CameraFacingMode:       Environment,
		PatchSize:              PatchMedium,
		HalfSample:             true,
		DrawDetectionIndicator: true,
		Frequency:              60,
		Decoder:                Code128,
	}
}

// ---------- Translate ----------

func TestTranslate_ResolutionTable(t *testing.T) {
	cases := []struct {
		res  Resolution
		w, h int
	}{
		{Res320x240, 320, 240},
		{Res640x480, 640, 480},
		{Res800x600, 800, 600},
		{Res1280x720, 1280, 720},
		{Res1600x960, 1600, 960},
		{Res1920x1080, 1920, 1080},
	}
	if len(cases) != len(Resolutions()) {
		t.Fatalf("table covers %d resolutions, enumeration has %d", len(cases), len(Resolutions()))
	}
	for _, tc := range cases {
		t.Run(string(tc.res), func(t *testing.T) {
			cfg := baseConfig()
			cfg.Resolution = tc.res
			got := Translate(cfg, "#overlay")
			c := got.InputStream.Constraints
			if c == nil {
				t.Fatal("constraints should be set for live mode")
			}
			if c.Width != tc.w || c.Height != tc.h {
				t.Errorf("constraints = %dx%d, want %dx%d", c.Width, c.Height, tc.w, tc.h)
			}
		})
	}
}

func TestTranslate_Fields(t *testing.T) {
	cfg := baseConfig()
	cfg.CameraFacingMode = User
	cfg.PatchSize = PatchXLarge
	cfg.HalfSample = false
	cfg.Frequency = 10
	cfg.Decoder = EAN8

	got := Translate(cfg, ".quagga_overlay__content")

	want := EngineConfiguration{
		InputStream: InputStreamConfig{
			Type:        LiveStream,
			Target:      ".quagga_overlay__content",
			Constraints: &StreamConstraints{FacingMode: User, Width: 640, Height: 480},
		},
		Frequency: 10,
		Decoder:   DecoderConfig{Readers: []Symbology{EAN8}},
		Locator:   LocatorConfig{HalfSample: false, PatchSize: PatchXLarge},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Translate =\n%+v\nwant\n%+v", got, want)
	}
}

func TestTranslate_Pure(t *testing.T) {
	cfg := baseConfig()
	a := Translate(cfg, "t")
	b := Translate(cfg, "t")
	if !reflect.DeepEqual(a, b) {
		t.Error("Translate should return equal configurations for equal input")
	}
	a.InputStream.Constraints.Width = 1
	if b.InputStream.Constraints.Width != 640 {
		t.Error("configurations must not share constraint storage")
	}
}

func TestTranslate_ExactlyOneReader(t *testing.T) {
	for _, name := range SymbologyNames() {
		s, err := ParseSymbology(name)
		if err != nil {
			t.Fatalf("ParseSymbology(%q): %v", name, err)
		}
		got := Translate(baseConfig().WithDecoder(s), "")
		if len(got.Decoder.Readers) != 1 || got.Reader() != s {
			t.Errorf("%s: readers = %v, want [%s]", name, got.Decoder.Readers, s)
		}
	}
}

// ---------- TranslateImage ----------

func TestTranslateImage(t *testing.T) {
	live := Translate(baseConfig(), "#target")
	img := TranslateImage(live, "/tmp/photo.jpg")

	if img.InputStream.Constraints != nil {
		t.Error("image mode must not carry stream constraints")
	}
	if img.InputStream.Type != "" {
		t.Errorf("image mode stream type = %q, want empty", img.InputStream.Type)
	}
	if !img.Locate {
		t.Error("image mode should enable locate")
	}
	if img.Src != "/tmp/photo.jpg" {
		t.Errorf("src = %q", img.Src)
	}
	if img.Reader() != Code128 || img.Frequency != 60 || img.Locator != live.Locator {
		t.Errorf("image mode should keep decoder and locator settings, got %+v", img)
	}
}

func TestTranslateImage_DoesNotMutateLive(t *testing.T) {
	live := Translate(baseConfig(), "#target")
	img := TranslateImage(live, "a.png")
	img.Decoder.Readers[0] = Code93

	if live.InputStream.Type != LiveStream {
		t.Errorf("live stream type changed to %q", live.InputStream.Type)
	}
	if live.InputStream.Constraints == nil {
		t.Error("live constraints were dropped")
	}
	if live.Locate || live.Src != "" {
		t.Error("live configuration picked up image-mode fields")
	}
	if live.Reader() != Code128 {
		t.Errorf("live readers share storage with image config: %v", live.Decoder.Readers)
	}
}

// ---------- Parsing ----------

func TestParseSymbology_Valid(t *testing.T) {
	cases := map[string]Symbology{
		"Code_39":        Code39,
		"code_39_reader": Code39,
		"S2of5":          S2of5,
		"2of5_reader":    S2of5,
		"Codabar":        Codabar,
		"codabar":        Codabar,
	}
	for in, want := range cases {
		got, err := ParseSymbology(in)
		if err != nil {
			t.Errorf("ParseSymbology(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseSymbology(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSymbologyKey_RoundTrip(t *testing.T) {
	for _, name := range SymbologyNames() {
		s, err := ParseSymbology(name)
		if err != nil {
			t.Fatal(err)
		}
		if got := s.Key(); got != name {
			t.Errorf("%s.Key() = %q, want %q", s, got, name)
		}
	}
	if got := Symbology("qr_reader").Key(); got != "" {
		t.Errorf("unknown symbology key = %q, want empty", got)
	}
}

func TestParseSymbology_Invalid(t *testing.T) {
	_, err := ParseSymbology("not_a_reader")
	var inv *InvalidSymbologyError
	if !errors.As(err, &inv) {
		t.Fatalf("expected *InvalidSymbologyError, got %v", err)
	}
	if inv.Name != "not_a_reader" {
		t.Errorf("Name = %q", inv.Name)
	}
	if len(inv.Valid) != 12 {
		t.Errorf("expected 12 valid names, got %d: %v", len(inv.Valid), inv.Valid)
	}
	if !strings.Contains(err.Error(), "Code_128") {
		t.Errorf("error message should list valid names: %v", err)
	}
}

func TestParseOthers(t *testing.T) {
	if r, err := ParseResolution("Re1280x720"); err != nil || r != Res1280x720 {
		t.Errorf("ParseResolution(Re1280x720) = %q, %v", r, err)
	}
	if r, err := ParseResolution("800x600"); err != nil || r != Res800x600 {
		t.Errorf("ParseResolution(800x600) = %q, %v", r, err)
	}
	if _, err := ParseResolution("1024x768"); err == nil {
		t.Error("expected error for unsupported resolution")
	}
	if f, err := ParseFacingMode("User"); err != nil || f != User {
		t.Errorf("ParseFacingMode(User) = %q, %v", f, err)
	}
	if _, err := ParseFacingMode("left"); err == nil {
		t.Error("expected error for unknown facing mode")
	}
	if p, err := ParsePatchSize("X_small"); err != nil || p != PatchXSmall {
		t.Errorf("ParsePatchSize(X_small) = %q, %v", p, err)
	}
	if s, err := ParseInputStream("LiveStream"); err != nil || s != LiveStream {
		t.Errorf("ParseInputStream(LiveStream) = %q, %v", s, err)
	}
}

func TestResolutionDimensions_Malformed(t *testing.T) {
	for _, r := range []Resolution{"", "640", "x480", "640x", "-1x10", "axb"} {
		if w, h := r.Dimensions(); w != 0 || h != 0 {
			t.Errorf("%q.Dimensions() = %d, %d, want 0, 0", r, w, h)
		}
	}
}

// ---------- Validate ----------

func TestValidate(t *testing.T) {
	if err := baseConfig().Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	bad := baseConfig()
	bad.Frequency = 0
	bad.Decoder = "qr_reader"
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var inv *InvalidSymbologyError
	if !errors.As(err, &inv) {
		t.Errorf("joined error should expose InvalidSymbologyError: %v", err)
	}
	if !strings.Contains(err.Error(), "frequency") {
		t.Errorf("error should mention frequency: %v", err)
	}
}
