package render

import (
	"bytes"
	"image/color"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#1a1a2e", color.NRGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}, false},
		{"#FFFFFF", color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, false},
		{"#c0392b", color.NRGBA{R: 0xc0, G: 0x39, B: 0x2b, A: 0xff}, false},
		{"#fff", color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, false},
		{"1a1a2e", color.NRGBA{}, true},
		{"#12345", color.NRGBA{}, true},
		{"#gggggg", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHexColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	spec := Spec{
		Label:      "Deploy",
		Background: "#1a1a2e",
		TextColor:  "#e0e0e0",
		Font:       "regular",
		FontSize:   14,
	}

	a, err := r.Render(spec)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	b, err := r.Render(spec)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("two renders of the same spec produced different pixels")
	}
	if a.Bounds().Dx() != Size || a.Bounds().Dy() != Size {
		t.Errorf("face size = %dx%d, want %dx%d", a.Bounds().Dx(), a.Bounds().Dy(), Size, Size)
	}
}

func TestRenderOnOffStylesDiffer(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	off := Spec{Label: "Printer", Background: "#1a1a2e", TextColor: "#e0e0e0", FontSize: 14}
	on := off
	on.Background = "#27ae60"

	a, err := r.Render(off)
	if err != nil {
		t.Fatalf("Render(off) error = %v", err)
	}
	b, err := r.Render(on)
	if err != nil {
		t.Fatalf("Render(on) error = %v", err)
	}
	if bytes.Equal(a.Pix, b.Pix) {
		t.Error("on and off specs rendered identically")
	}
}

func TestRenderBlankFace(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	img, err := r.Render(Spec{Background: "#1a1a2e"})
	if err != nil {
		t.Fatalf("Render(blank) error = %v", err)
	}
	// Every pixel is the background.
	want := color.NRGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
	if got := img.NRGBAAt(0, 0); got != want {
		t.Errorf("corner pixel = %v, want %v", got, want)
	}
	if got := img.NRGBAAt(Size/2, Size/2); got != want {
		t.Errorf("center pixel = %v, want %v", got, want)
	}
}

func TestRenderBadColor(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := r.Render(Spec{Background: "not-a-color"}); err == nil {
		t.Error("Render() with bad background = nil error, want error")
	}
}

func TestRenderMissingIcon(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = r.Render(Spec{Background: "#000000", Icon: "/nonexistent/icon.png"})
	if err == nil {
		t.Error("Render() with missing icon = nil error, want error")
	}
}
