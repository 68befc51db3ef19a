// Package compose builds a collection image from layered PNG assets.
//
// Assets follow a fixed layout under an assets directory:
//
//	<assets>/background/<variant>.png
//	<assets>/<layer>/<layer>-<variant>.png
//
// The background is the canvas; every other layer is alpha-composited over it
// at the origin, in the order given by the Plan. Later layers occlude earlier
// ones.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"
)

// BackgroundTrait is the trait category that selects the base canvas.
const BackgroundTrait = "background"

var (
	ErrMissingAsset       = errors.New("compose: missing asset")
	ErrMissingTrait       = errors.New("compose: no variant selected for layer")
	ErrDimensionMismatch  = errors.New("compose: layer dimensions differ from canvas")
	ErrInvalidLayerName   = errors.New("compose: invalid layer name")
	ErrBackgroundAsLayer  = errors.New("compose: background cannot be an overlay layer")
	ErrDuplicateLayerName = errors.New("compose: layer listed twice")
)

// Params maps a trait category (background, skin, face, ...) to the variant
// chosen for this piece.
type Params map[string]string

// Traits returns the trait names in sorted order.
func (p Params) Traits() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy that does not share storage with p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Equal reports whether p and o select the same variants.
func (p Params) Equal(o Params) bool {
	if len(p) != len(o) {
		return false
	}
	for k, v := range p {
		if ov, ok := o[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Plan describes where assets live and in which order overlays are drawn.
type Plan struct {
	AssetsDir string
	// Layers lists overlay trait categories bottom to top. The background is
	// implicit and must not appear here.
	Layers []string
}

// Validate checks the plan against a parameter set.
func (pl Plan) Validate(params Params) error {
	if _, ok := params[BackgroundTrait]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingTrait, BackgroundTrait)
	}
	seen := make(map[string]struct{}, len(pl.Layers))
	for _, layer := range pl.Layers {
		if err := checkName(layer); err != nil {
			return err
		}
		if layer == BackgroundTrait {
			return ErrBackgroundAsLayer
		}
		if _, dup := seen[layer]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateLayerName, layer)
		}
		seen[layer] = struct{}{}
		variant, ok := params[layer]
		if !ok || variant == "" {
			return fmt.Errorf("%w: %s", ErrMissingTrait, layer)
		}
		if err := checkName(variant); err != nil {
			return err
		}
	}
	return checkName(params[BackgroundTrait])
}

// BackgroundPath returns the asset path of a background variant.
func (pl Plan) BackgroundPath(variant string) string {
	return filepath.Join(pl.AssetsDir, BackgroundTrait, variant+".png")
}

// LayerPath returns the asset path of an overlay variant.
func (pl Plan) LayerPath(layer, variant string) string {
	return filepath.Join(pl.AssetsDir, layer, layer+"-"+variant+".png")
}

// Composite builds the image selected by params.
func Composite(pl Plan, params Params) (*image.RGBA, error) {
	if err := pl.Validate(params); err != nil {
		return nil, err
	}
	base, err := loadPNG(pl.BackgroundPath(params[BackgroundTrait]))
	if err != nil {
		return nil, err
	}

	layers := make([]image.Image, 0, len(pl.Layers))
	for _, layer := range pl.Layers {
		img, err := loadPNG(pl.LayerPath(layer, params[layer]))
		if err != nil {
			return nil, err
		}
		layers = append(layers, img)
	}
	return Stack(base, layers...)
}

// Stack alpha-composites layers over base in order. Every layer must have
// the same size as base.
func Stack(base image.Image, layers ...image.Image) (*image.RGBA, error) {
	bounds := base.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), base, bounds.Min, draw.Src)

	for i, layer := range layers {
		lb := layer.Bounds()
		if lb.Dx() != bounds.Dx() || lb.Dy() != bounds.Dy() {
			return nil, fmt.Errorf("%w: layer %d is %dx%d, canvas is %dx%d",
				ErrDimensionMismatch, i, lb.Dx(), lb.Dy(), bounds.Dx(), bounds.Dy())
		}
		// The layer's own alpha channel is the paste mask.
		draw.Draw(canvas, canvas.Bounds(), layer, lb.Min, draw.Over)
	}
	return canvas, nil
}

// EncodePNG encodes img. Output is deterministic for identical pixels.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("compose: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to dir/name, creating dir as needed.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingAsset, path)
		}
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("compose: decode %s: %w", path, err)
	}
	return img, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidLayerName, name)
	}
	for _, r := range name {
		if r == '/' || r == '\\' || r == 0 {
			return fmt.Errorf("%w: %q", ErrInvalidLayerName, name)
		}
	}
	return nil
}
