package compose

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	blue        = color.NRGBA{R: 0, G: 0, B: 255, A: 255}
	red         = color.NRGBA{R: 255, G: 0, B: 0, A: 255}
	green       = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	transparent = color.NRGBA{}
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func dallyParams() Params {
	return Params{
		"background": "blue",
		"bow":        "green",
		"fill":       "green",
		"skin":       "white",
		"face":       "orange",
	}
}

// stubAssets writes 1x1 stubs: an opaque blue background and fully
// transparent overlays.
func stubAssets(t *testing.T) Plan {
	t.Helper()
	pl := Plan{AssetsDir: t.TempDir(), Layers: []string{"skin", "face", "bow", "fill"}}
	params := dallyParams()
	writePNG(t, pl.BackgroundPath(params["background"]), solid(1, 1, blue))
	for _, layer := range pl.Layers {
		writePNG(t, pl.LayerPath(layer, params[layer]), solid(1, 1, transparent))
	}
	return pl
}

func TestTransparentOverlaysLeaveBackground(t *testing.T) {
	pl := stubAssets(t)

	img, err := Composite(pl, dallyParams())
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 1, 1), img.Bounds())
	assert.Equal(t, color.RGBA{R: 0, G: 0, B: 255, A: 255}, img.RGBAAt(0, 0))
}

func TestAssetPaths(t *testing.T) {
	pl := Plan{AssetsDir: "assets"}
	assert.Equal(t, filepath.Join("assets", "background", "blue.png"), pl.BackgroundPath("blue"))
	assert.Equal(t, filepath.Join("assets", "bow", "bow-green.png"), pl.LayerPath("bow", "green"))
}

func TestCompositeDeterministic(t *testing.T) {
	pl := stubAssets(t)
	params := dallyParams()
	// Give one overlay visible content so the output is not trivially the background.
	half := solid(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 128})
	writePNG(t, pl.LayerPath("face", params["face"]), half)

	a, err := Composite(pl, params)
	require.NoError(t, err)
	b, err := Composite(pl, params)
	require.NoError(t, err)

	pa, err := EncodePNG(a)
	require.NoError(t, err)
	pb, err := EncodePNG(b)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(pa, pb), "identical inputs must encode to identical bytes")
}

func TestLayerOrderMatters(t *testing.T) {
	base := solid(2, 2, blue)
	top := solid(2, 2, red)
	other := solid(2, 2, green)

	ab, err := Stack(base, top, other)
	require.NoError(t, err)
	ba, err := Stack(base, other, top)
	require.NoError(t, err)

	assert.Equal(t, color.RGBA{G: 255, A: 255}, ab.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, ba.RGBAAt(1, 1))
}

func TestPartialAlphaBlends(t *testing.T) {
	base := solid(1, 1, red)
	overlay := solid(1, 1, color.NRGBA{B: 255, A: 128})

	out, err := Stack(base, overlay)
	require.NoError(t, err)

	px := out.RGBAAt(0, 0)
	assert.Equal(t, uint8(255), px.A)
	assert.Greater(t, px.R, uint8(0))
	assert.Greater(t, px.B, uint8(0))
	assert.Less(t, px.R, uint8(255))
}

func TestStackDoesNotMutateBase(t *testing.T) {
	base := solid(1, 1, blue)
	_, err := Stack(base, solid(1, 1, red))
	require.NoError(t, err)
	assert.Equal(t, blue, base.NRGBAAt(0, 0))
}

func TestMissingAsset(t *testing.T) {
	pl := stubAssets(t)
	params := dallyParams()
	params["bow"] = "purple"

	_, err := Composite(pl, params)
	assert.ErrorIs(t, err, ErrMissingAsset)
	assert.Contains(t, err.Error(), "bow-purple.png")
}

func TestDimensionMismatch(t *testing.T) {
	_, err := Stack(solid(2, 2, blue), solid(1, 1, red))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestValidate(t *testing.T) {
	pl := Plan{AssetsDir: "assets", Layers: []string{"skin", "face"}}

	p := dallyParams()
	delete(p, "background")
	assert.ErrorIs(t, pl.Validate(p), ErrMissingTrait)

	p = dallyParams()
	delete(p, "face")
	assert.ErrorIs(t, pl.Validate(p), ErrMissingTrait)

	assert.ErrorIs(t, Plan{Layers: []string{"background"}}.Validate(dallyParams()), ErrBackgroundAsLayer)
	assert.ErrorIs(t, Plan{Layers: []string{"skin", "skin"}}.Validate(dallyParams()), ErrDuplicateLayerName)

	p = dallyParams()
	p["skin"] = "../../etc/passwd"
	assert.ErrorIs(t, pl.Validate(p), ErrInvalidLayerName)

	assert.NoError(t, pl.Validate(dallyParams()))
}

func TestParamsHelpers(t *testing.T) {
	p := dallyParams()
	assert.Equal(t, []string{"background", "bow", "face", "fill", "skin"}, p.Traits())

	c := p.Clone()
	assert.True(t, p.Equal(c))
	c["bow"] = "red"
	assert.False(t, p.Equal(c))
	assert.Equal(t, "green", p["bow"])
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	path, err := WriteFile(dir, "dally18.png", []byte("png"))
	require.NoError(t, err)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)
}
