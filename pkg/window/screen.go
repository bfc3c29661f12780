package window

import (
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

// CursorTransparent is the cursor colour index drawn as see-through.
const CursorTransparent = 255

// Screen はインタプリタからの表示要求を受け取るパレット形式のフレームバッファ。
// vm.Display を実装し、ゲームループの描画とは別のゴルーチンから呼ばれてもよい。
type Screen struct {
	mu      sync.Mutex
	frame   *image.Paletted
	dirty   image.Rectangle
	cursor  *image.RGBA
	hot     image.Point
	palette color.Palette
	// cursorIdx keeps the cursor's indices so a palette change can recolour it
	cursorIdx *image.Paletted
}

// NewScreen creates a w x h frame with a black palette.
func NewScreen(w, h int) *Screen {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.RGBA{0, 0, 0, 0xFF}
	}
	return &Screen{
		frame:   image.NewPaletted(image.Rect(0, 0, w, h), pal),
		palette: pal,
	}
}

// Bounds returns the frame rectangle.
func (s *Screen) Bounds() image.Rectangle {
	return s.frame.Rect
}

// SetPalette replaces the palette from packed RGB triples.
func (s *Screen) SetPalette(rgb []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pal := make(color.Palette, 256)
	for i := range pal {
		c := color.RGBA{A: 0xFF}
		if j := i * 3; j+2 < len(rgb) {
			c.R, c.G, c.B = rgb[j], rgb[j+1], rgb[j+2]
		}
		pal[i] = c
	}
	s.palette = pal
	s.frame.Palette = pal
	s.dirty = s.frame.Rect
	if s.cursorIdx != nil {
		s.cursor = s.colourCursor(s.cursorIdx)
	}
}

// SetCursor sets the pointer image from palette indices.
func (s *Screen) SetCursor(pixels []byte, w, h, hotX, hotY int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w <= 0 || h <= 0 || len(pixels) < w*h {
		s.cursor, s.cursorIdx = nil, nil
		return
	}
	idx := image.NewPaletted(image.Rect(0, 0, w, h), nil)
	copy(idx.Pix, pixels[:w*h])
	s.cursorIdx = idx
	s.cursor = s.colourCursor(idx)
	s.hot = image.Pt(hotX, hotY)
}

func (s *Screen) colourCursor(idx *image.Paletted) *image.RGBA {
	img := image.NewRGBA(idx.Rect)
	for i, p := range idx.Pix {
		if p == CursorTransparent {
			continue
		}
		r, g, b, _ := s.palette[p].RGBA()
		img.Pix[i*4+0] = uint8(r >> 8)
		img.Pix[i*4+1] = uint8(g >> 8)
		img.Pix[i*4+2] = uint8(b >> 8)
		img.Pix[i*4+3] = 0xFF
	}
	return img
}

// MarkDirty adds r to the region to redraw.
func (s *Screen) MarkDirty(r image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = s.dirty.Union(r.Intersect(s.frame.Rect))
}

// Blit copies a rectangle of palette indices into the frame. buf holds
// r.Dx() x r.Dy() pixels row by row; parts outside the frame are dropped.
func (s *Screen) Blit(buf []byte, r image.Rectangle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := r.Dx()
	clip := r.Intersect(s.frame.Rect)
	if clip.Empty() || len(buf) < w*r.Dy() {
		return
	}
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		src := buf[(y-r.Min.Y)*w+(clip.Min.X-r.Min.X):]
		dst := s.frame.Pix[s.frame.PixOffset(clip.Min.X, y):]
		copy(dst[:clip.Dx()], src[:clip.Dx()])
	}
	s.dirty = s.dirty.Union(clip)
}

// TakeDirty returns the region changed since the last call and clears it.
func (s *Screen) TakeDirty() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dirty
	s.dirty = image.Rectangle{}
	return d
}

// RGBA renders the frame through the current palette into dst, which
// must have the frame's bounds.
func (s *Screen) RGBA(dst *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(dst, dst.Rect, s.frame, image.Point{}, draw.Src)
}

// Cursor returns the pointer image scaled by factor and its hotspot, or
// nil when no cursor is set.
func (s *Screen) Cursor(factor int) (*image.RGBA, image.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return nil, image.Point{}
	}
	if factor <= 1 {
		return s.cursor, s.hot
	}
	b := s.cursor.Rect
	out := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(out, out.Rect, s.cursor, b, draw.Src, nil)
	return out, s.hot.Mul(factor)
}
