package render

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	// Size is the key face resolution in pixels (fixed by the panel).
	Size = 72

	// iconMax is the icon bounding box; leaves room for a label below.
	iconMax = 44

	labelBaselineInset = 8
)

// Spec is the fully resolved visual description of one key face. The
// coordinator builds it from the button config, the style defaults and the
// entity's visible state; rendering is a pure function of it.
type Spec struct {
	Label      string
	Icon       string // absolute icon path, empty for none
	Background string // hex color
	TextColor  string // hex color
	Font       string // "regular" or "bold"
	FontSize   float64
}

// Renderer composes key faces. It caches decoded icons and font faces, both
// keyed by immutable inputs, so rendering stays deterministic.
type Renderer struct {
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	icons map[string]image.Image
	faces map[faceKey]font.Face
}

type faceKey struct {
	font string
	size float64
}

// New creates a renderer with the embedded Go fonts parsed.
func New() (*Renderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	return &Renderer{
		regular: regular,
		bold:    bold,
		icons:   make(map[string]image.Image),
		faces:   make(map[faceKey]font.Face),
	}, nil
}

// Render composes background, icon and label into a 72x72 face.
func (r *Renderer) Render(spec Spec) (*image.NRGBA, error) {
	bg, err := ParseHexColor(spec.Background)
	if err != nil {
		return nil, fmt.Errorf("bad background color: %w", err)
	}
	canvas := imaging.New(Size, Size, bg)

	hasLabel := spec.Label != ""

	if spec.Icon != "" {
		icon, err := r.icon(spec.Icon)
		if err != nil {
			return nil, err
		}
		fitted := imaging.Fit(icon, iconMax, iconMax, imaging.Lanczos)
		x := (Size - fitted.Bounds().Dx()) / 2
		y := (Size - fitted.Bounds().Dy()) / 2
		if hasLabel {
			// Shift the icon up to clear the label strip.
			y = (Size - int(spec.FontSize) - fitted.Bounds().Dy()) / 2
			if y < 0 {
				y = 0
			}
		}
		canvas = imaging.Overlay(canvas, fitted, image.Pt(x, y), 1.0)
	}

	if hasLabel {
		fg, err := ParseHexColor(spec.TextColor)
		if err != nil {
			return nil, fmt.Errorf("bad text color: %w", err)
		}
		face, err := r.face(spec.Font, spec.FontSize)
		if err != nil {
			return nil, err
		}
		drawLabel(canvas, face, fg, spec.Label, spec.Icon != "")
	}

	return canvas, nil
}

func drawLabel(canvas *image.NRGBA, face font.Face, fg color.NRGBA, label string, withIcon bool) {
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(fg),
		Face: face,
	}

	width := d.MeasureString(label)
	x := (fixed.I(Size) - width) / 2
	if x < 0 {
		x = 0
	}

	metrics := face.Metrics()
	var y fixed.Int26_6
	if withIcon {
		y = fixed.I(Size - labelBaselineInset)
	} else {
		// Vertically centered when the label is the only content.
		y = (fixed.I(Size) + metrics.Ascent - metrics.Descent) / 2
	}

	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(label)
}

func (r *Renderer) icon(path string) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.icons[path]; ok {
		return img, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load icon %s: %w", path, err)
	}
	r.icons[path] = img
	return img, nil
}

func (r *Renderer) face(name string, size float64) (font.Face, error) {
	if size <= 0 {
		size = 14
	}
	key := faceKey{font: name, size: size}

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f, nil
	}

	src := r.regular
	if name == "bold" {
		src = r.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	r.faces[key] = f
	return f, nil
}

// ParseHexColor parses "#rrggbb" or "#rgb".
func ParseHexColor(s string) (color.NRGBA, error) {
	c := color.NRGBA{A: 0xff}
	if len(s) == 0 || s[0] != '#' {
		return c, fmt.Errorf("invalid hex color %q", s)
	}

	hexVal := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		}
		return 0, false
	}

	switch len(s) {
	case 7:
		for i, dst := range []*uint8{&c.R, &c.G, &c.B} {
			hi, ok1 := hexVal(s[1+i*2])
			lo, ok2 := hexVal(s[2+i*2])
			if !ok1 || !ok2 {
				return c, fmt.Errorf("invalid hex color %q", s)
			}
			*dst = hi<<4 | lo
		}
	case 4:
		for i, dst := range []*uint8{&c.R, &c.G, &c.B} {
			v, ok := hexVal(s[1+i])
			if !ok {
				return c, fmt.Errorf("invalid hex color %q", s)
			}
			*dst = v<<4 | v
		}
	default:
		return c, fmt.Errorf("invalid hex color %q", s)
	}
	return c, nil
}
