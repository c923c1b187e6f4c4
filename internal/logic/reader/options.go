package reader

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// InputStream tells the engine where frames come from.
type InputStream string

const (
	ImageStream InputStream = "ImageStream"
	VideoStream InputStream = "VideoStream"
	LiveStream  InputStream = "LiveStream"
)

// FacingMode selects the camera used for live video.
type FacingMode string

const (
	Environment FacingMode = "environment"
	User        FacingMode = "user"
)

// PatchSize is the density of the locator search grid.
type PatchSize string

const (
	PatchXSmall PatchSize = "x-small"
	PatchSmall  PatchSize = "small"
	PatchMedium PatchSize = "medium"
	PatchLarge  PatchSize = "large"
	PatchXLarge PatchSize = "x-large"
)

// Resolution is a "WxH" video size.
type Resolution string

const (
	Res320x240   Resolution = "320x240"
	Res640x480   Resolution = "640x480"
	Res800x600   Resolution = "800x600"
	Res1280x720  Resolution = "1280x720"
	Res1600x960  Resolution = "1600x960"
	Res1920x1080 Resolution = "1920x1080"
)

// Symbology is the engine's name of a decoder reader.
type Symbology string

const (
	Code128     Symbology = "code_128_reader"
	Code39      Symbology = "code_39_reader"
	Code39VIN   Symbology = "code_39_vin_reader"
	EAN         Symbology = "ean_reader"
	EANExtended Symbology = "ean_extended_reader"
	EAN8        Symbology = "ean_8_reader"
	UPC         Symbology = "upc_reader"
	UPCE        Symbology = "upc_e_reader"
	Codabar     Symbology = "codabar"
	I2of5       Symbology = "i2of5_reader"
	S2of5       Symbology = "2of5_reader"
	Code93      Symbology = "code_93_reader"
)

// Host-side property keys, as exposed in the widget's select options.
var (
	facingModes = map[string]FacingMode{
		"Environment": Environment,
		"User":        User,
	}
	patchSizes = map[string]PatchSize{
		"X_small": PatchXSmall,
		"Small":   PatchSmall,
		"Medium":  PatchMedium,
		"Large":   PatchLarge,
		"X_large": PatchXLarge,
	}
	resolutions = map[string]Resolution{
		"Re320x240":   Res320x240,
		"Re640x480":   Res640x480,
		"Re800x600":   Res800x600,
		"Re1280x720":  Res1280x720,
		"Re1600x960":  Res1600x960,
		"Re1920x1080": Res1920x1080,
	}
	symbologies = map[string]Symbology{
		"Code_128":     Code128,
		"Code_39":      Code39,
		"Code_39_vin":  Code39VIN,
		"Ean":          EAN,
		"Ean_extended": EANExtended,
		"Ean_8":        EAN8,
		"Upc":          UPC,
		"Upc_e":        UPCE,
		"Codabar":      Codabar,
		"I2of5":        I2of5,
		"S2of5":        S2of5,
		"Code_93":      Code93,
	}
	inputStreams = map[string]InputStream{
		"ImageStream": ImageStream,
		"VideoStream": VideoStream,
		"LiveStream":  LiveStream,
	}
)

// InvalidSymbologyError is returned when a decoder type is not one of the
// known symbologies.
type InvalidSymbologyError struct {
	Name  string
	Valid []string
}

func (e *InvalidSymbologyError) Error() string {
	return fmt.Sprintf("invalid barcode type %q, valid types are: %s", e.Name, strings.Join(e.Valid, ", "))
}

// SymbologyNames returns the sorted host keys of every known symbology.
func SymbologyNames() []string {
	return sortedKeys(symbologies)
}

// Key returns the host key of s ("Code_128"), or "" if s is unknown.
func (s Symbology) Key() string {
	for k, v := range symbologies {
		if v == s {
			return k
		}
	}
	return ""
}

// ParseSymbology accepts either a host key ("Code_39") or an engine
// reader name ("code_39_reader").
func ParseSymbology(name string) (Symbology, error) {
	if s, ok := lookup(symbologies, name); ok {
		return s, nil
	}
	return "", &InvalidSymbologyError{Name: name, Valid: SymbologyNames()}
}

// ParseFacingMode accepts "Environment"/"User" or "environment"/"user".
func ParseFacingMode(name string) (FacingMode, error) {
	if f, ok := lookup(facingModes, name); ok {
		return f, nil
	}
	return "", fmt.Errorf("invalid camera facing mode %q, valid modes are: %s", name, strings.Join(sortedKeys(facingModes), ", "))
}

// ParsePatchSize accepts "Medium" or "medium" style names.
func ParsePatchSize(name string) (PatchSize, error) {
	if p, ok := lookup(patchSizes, name); ok {
		return p, nil
	}
	return "", fmt.Errorf("invalid patch size %q, valid sizes are: %s", name, strings.Join(sortedKeys(patchSizes), ", "))
}

// ParseResolution accepts "Re640x480" or "640x480" style names.
func ParseResolution(name string) (Resolution, error) {
	if r, ok := lookup(resolutions, name); ok {
		return r, nil
	}
	return "", fmt.Errorf("invalid resolution %q, valid resolutions are: %s", name, strings.Join(sortedKeys(resolutions), ", "))
}

// ParseInputStream accepts one of the three input stream names.
func ParseInputStream(name string) (InputStream, error) {
	if s, ok := lookup(inputStreams, name); ok {
		return s, nil
	}
	return "", fmt.Errorf("invalid input stream %q, valid streams are: %s", name, strings.Join(sortedKeys(inputStreams), ", "))
}

// Dimensions splits the "WxH" token into width and height.
// Values outside the enumeration yield 0, 0.
func (r Resolution) Dimensions() (width, height int) {
	w, h, ok := strings.Cut(string(r), "x")
	if !ok {
		return 0, 0
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 0, 0
	}
	return width, height
}

// Resolutions returns every supported resolution, smallest first.
func Resolutions() []Resolution {
	return []Resolution{Res320x240, Res640x480, Res800x600, Res1280x720, Res1600x960, Res1920x1080}
}

func lookup[T ~string](m map[string]T, name string) (T, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for _, v := range m {
		if string(v) == name {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func contains[T ~string](m map[string]T, v T) bool {
	for _, known := range m {
		if known == v {
			return true
		}
	}
	return false
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
