package window

import (
	"image"
	"image/color"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestScreen_PaletteAndBlit(t *testing.T) {
	s := NewScreen(4, 2)
	pal := make([]byte, 256*3)
	pal[3], pal[4], pal[5] = 10, 20, 30 // colour 1
	s.SetPalette(pal)
	s.TakeDirty()

	s.Blit([]byte{1, 1, 1, 1}, image.Rect(1, 0, 3, 2))
	if d := s.TakeDirty(); d != image.Rect(1, 0, 3, 2) {
		t.Errorf("dirty = %v", d)
	}
	if d := s.TakeDirty(); !d.Empty() {
		t.Errorf("dirty not cleared: %v", d)
	}

	dst := image.NewRGBA(s.Bounds())
	s.RGBA(dst)
	if got := dst.RGBAAt(1, 1); got != (color.RGBA{10, 20, 30, 0xFF}) {
		t.Errorf("pixel (1,1) = %v", got)
	}
	if got := dst.RGBAAt(0, 0); got != (color.RGBA{0, 0, 0, 0xFF}) {
		t.Errorf("pixel (0,0) = %v", got)
	}
}

func TestScreen_Cursor(t *testing.T) {
	s := NewScreen(320, 200)
	if cur, _ := s.Cursor(1); cur != nil {
		t.Fatal("cursor before SetCursor")
	}
	pal := make([]byte, 256*3)
	pal[6] = 0xFF // colour 2 is red
	s.SetPalette(pal)
	s.SetCursor([]byte{2, CursorTransparent, CursorTransparent, 2}, 2, 2, 1, 0)

	cur, hot := s.Cursor(1)
	if hot != image.Pt(1, 0) {
		t.Errorf("hotspot = %v", hot)
	}
	if cur.RGBAAt(0, 0) != (color.RGBA{0xFF, 0, 0, 0xFF}) || cur.RGBAAt(1, 0).A != 0 {
		t.Errorf("cursor pixels = %v %v", cur.RGBAAt(0, 0), cur.RGBAAt(1, 0))
	}

	big, hot := s.Cursor(3)
	if big.Rect.Dx() != 6 || hot != image.Pt(3, 0) {
		t.Errorf("scaled cursor %v hot %v", big.Rect, hot)
	}
	if big.RGBAAt(2, 2).A != 0xFF || big.RGBAAt(3, 2).A != 0 {
		t.Error("nearest-neighbour scaling lost the pattern")
	}

	// a palette change recolours the cursor
	pal[6], pal[7] = 0, 0xFF
	s.SetPalette(pal)
	cur, _ = s.Cursor(1)
	if cur.RGBAAt(1, 1) != (color.RGBA{0, 0xFF, 0, 0xFF}) {
		t.Errorf("recoloured cursor = %v", cur.RGBAAt(1, 1))
	}

	s.SetCursor(nil, 0, 0, 0, 0)
	if cur, _ := s.Cursor(1); cur != nil {
		t.Error("empty cursor kept the old image")
	}
}

// TestProperty1_BlitStaysInBounds は画面外にはみ出す転送でも範囲内だけが書き換わることを確認する
func TestProperty1_BlitStaysInBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("only the clipped rectangle changes", prop.ForAll(
		func(x, y, w, h int) bool {
			s := NewScreen(16, 8)
			r := image.Rect(x, y, x+w, y+h)
			buf := make([]byte, w*h)
			for i := range buf {
				buf[i] = 7
			}
			s.Blit(buf, r)
			clip := r.Intersect(s.Bounds())
			for py := range 8 {
				for px := range 16 {
					want := uint8(0)
					if image.Pt(px, py).In(clip) {
						want = 7
					}
					if s.frame.ColorIndexAt(px, py) != want {
						return false
					}
				}
			}
			return s.TakeDirty() == clip || clip.Empty()
		},
		gen.IntRange(-20, 20),
		gen.IntRange(-10, 10),
		gen.IntRange(1, 24),
		gen.IntRange(1, 12),
	))

	properties.Property("dirty regions accumulate inside the frame", prop.ForAll(
		func(x0, y0, x1, y1 int) bool {
			s := NewScreen(16, 8)
			s.MarkDirty(image.Rect(x0, y0, x0+4, y0+4))
			s.MarkDirty(image.Rect(x1, y1, x1+4, y1+4))
			d := s.TakeDirty()
			return d.Empty() || d.In(s.Bounds())
		},
		gen.IntRange(-10, 20),
		gen.IntRange(-10, 10),
		gen.IntRange(-10, 20),
		gen.IntRange(-10, 10),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
