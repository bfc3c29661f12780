// Package walkbox implements walk boxes, the neighbour test between them and
// the compressed box matrix used for actor pathfinding.
package walkbox

// Box flags.
const (
	FlagXFlip      = 0x08
	FlagYFlip      = 0x10
	FlagPlayerOnly = 0x20
	FlagLocked     = 0x40
	FlagInvisible  = 0x80
)

// InvalidBox is returned when no route or box exists.
const InvalidBox = -1

// Point is a room coordinate.
type Point struct {
	X, Y int
}

// Box is a walkable quadrangle. Corners run clockwise starting upper-left.
type Box struct {
	UL, UR, LR, LL Point
	Mask           uint8
	Flags          uint8
	Scale          uint16
}

// Invisible reports whether the box takes no part in pathfinding.
func (b Box) Invisible() bool {
	return b.Flags&FlagInvisible != 0
}

// rotate shifts the corner order by one: ul<-ur<-lr<-ll<-ul.
func (b *Box) rotate() {
	tmp := b.UL
	b.UL = b.UR
	b.UR = b.LR
	b.LR = b.LL
	b.LL = tmp
}

// AreNeighbors reports whether two boxes share part of an edge. Only the
// "upper" edges are compared; each box is rotated four times so every pair of
// edges is tried once. Invisible boxes are never neighbours.
func AreNeighbors(a, b Box) bool {
	if a.Invisible() || b.Invisible() {
		return false
	}

	box2 := a
	box := b

	for j := 0; j < 4; j++ {
		for k := 0; k < 4; k++ {
			// vertical shared line
			if box2.UR.X == box2.UL.X && box.UL.X == box2.UL.X && box.UR.X == box2.UL.X {
				if overlap(box2.UL.Y, box2.UR.Y, box.UL.Y, box.UR.Y) {
					return true
				}
			}
			// horizontal shared line
			if box2.UR.Y == box2.UL.Y && box.UL.Y == box2.UL.Y && box.UR.Y == box2.UL.Y {
				if overlap(box2.UL.X, box2.UR.X, box.UL.X, box.UR.X) {
					return true
				}
			}
			box2.rotate()
		}
		box.rotate()
	}
	return false
}

// overlap tests two collinear segments [a1,a2] and [b1,b2]. Segments that
// only touch at an endpoint do not count unless one of them is degenerate.
func overlap(a1, a2, b1, b2 int) bool {
	if a2 < a1 {
		a1, a2 = a2, a1
	}
	if b2 < b1 {
		b1, b2 = b2, b1
	}
	if b2 < a1 || b1 > a2 {
		return false
	}
	if (b1 == a2 || b2 == a1) && a2 != a1 && b1 != b2 {
		return false
	}
	return true
}

// Contains reports whether p lies inside the box (edges included).
func (b Box) Contains(p Point) bool {
	if p.X < b.UL.X && p.X < b.UR.X && p.X < b.LR.X && p.X < b.LL.X {
		return false
	}
	if p.X > b.UL.X && p.X > b.UR.X && p.X > b.LR.X && p.X > b.LL.X {
		return false
	}
	if p.Y < b.UL.Y && p.Y < b.UR.Y && p.Y < b.LR.Y && p.Y < b.LL.Y {
		return false
	}
	if p.Y > b.UL.Y && p.Y > b.UR.Y && p.Y > b.LR.Y && p.Y > b.LL.Y {
		return false
	}

	// degenerate box: a line segment
	if (b.UL == b.UR && b.LR == b.LL) || (b.UL == b.LL && b.UR == b.LR) {
		q := ClosestPointOnLine(b.UL, b.LR, p)
		return sqrDist(p, q) <= 4
	}

	return compareSlope(b.UL, b.UR, p) &&
		compareSlope(b.UR, b.LR, p) &&
		compareSlope(b.LR, b.LL, p) &&
		compareSlope(b.LL, b.UL, p)
}

func compareSlope(p1, p2, p3 Point) bool {
	return (p2.Y-p1.Y)*(p3.X-p1.X) <= (p3.Y-p1.Y)*(p2.X-p1.X)
}

func sqrDist(a, b Point) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// ClosestPointOnLine projects p onto the segment start-end.
func ClosestPointOnLine(start, end, p Point) Point {
	dx := end.X - start.X
	dy := end.Y - start.Y
	if dx == 0 && dy == 0 {
		return start
	}

	num := (p.X-start.X)*dx + (p.Y-start.Y)*dy
	den := dx*dx + dy*dy
	if num <= 0 {
		return start
	}
	if num >= den {
		return end
	}
	return Point{
		X: start.X + dx*num/den,
		Y: start.Y + dy*num/den,
	}
}

// ClosestPoint returns the point on the box outline nearest to p, or p itself
// when it is inside.
func (b Box) ClosestPoint(p Point) Point {
	if b.Contains(p) {
		return p
	}
	edges := [4][2]Point{{b.UL, b.UR}, {b.UR, b.LR}, {b.LR, b.LL}, {b.LL, b.UL}}
	best := b.UL
	bestDist := -1
	for _, e := range edges {
		q := ClosestPointOnLine(e[0], e[1], p)
		if d := sqrDist(p, q); bestDist < 0 || d < bestDist {
			best = q
			bestDist = d
		}
	}
	return best
}

// ScaleSlot describes linear scaling between two y positions.
type ScaleSlot struct {
	Scale1, Y1 int
	Scale2, Y2 int
}

// At returns the scale for a given y, clamped to 1..255.
func (s ScaleSlot) At(y int) int {
	if s.Y1 == s.Y2 {
		return clampScale(s.Scale1)
	}
	return clampScale((s.Scale2-s.Scale1)*(y-s.Y1)/(s.Y2-s.Y1) + s.Scale1)
}

func clampScale(v int) int {
	if v > 255 {
		return 255
	}
	if v < 1 {
		return 1
	}
	return v
}

// BoxScale resolves a box's scale value. Values with bit 15 set index a
// scale slot (1-based); anything else is a fixed scale.
func BoxScale(b Box, slots []ScaleSlot, y int) int {
	if b.Scale&0x8000 == 0 {
		return int(b.Scale)
	}
	idx := int(b.Scale&0x7FFF) - 1
	if idx < 0 || idx >= len(slots) {
		return 255
	}
	return slots[idx].At(y)
}
