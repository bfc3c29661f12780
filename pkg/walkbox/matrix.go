package walkbox

import (
	"errors"
	"fmt"
)

const (
	rowMarker   = 0xFF
	unreachable = 255
)

// ErrMalformedMatrix is returned by the decoders for truncated input.
var ErrMalformedMatrix = errors.New("malformed box matrix")

// Route says: to reach any box in [Start, End], walk to Via next.
type Route struct {
	Start, End, Via uint8
}

// Matrix is a decoded box matrix: one route list per source box.
type Matrix struct {
	rows [][]Route
}

// NumBoxes returns the number of source rows.
func (m *Matrix) NumBoxes() int {
	return len(m.rows)
}

// NextBox returns the box to walk into next on the way from -> to, or
// InvalidBox if no route is known.
func (m *Matrix) NextBox(from, to int) int {
	if from < 0 || to < 0 {
		return InvalidBox
	}
	if from == to {
		return to
	}
	if m == nil || from >= len(m.rows) {
		return InvalidBox
	}
	dest := InvalidBox
	for _, r := range m.rows[from] {
		if int(r.Start) <= to && to <= int(r.End) {
			dest = int(r.Via)
		}
	}
	return dest
}

// Itinerary computes the next-hop table for a set of boxes. Entry [i][j] is
// the box to enter from i when heading for j, or 255 when j is unreachable.
func Itinerary(boxes []Box) [][]uint8 {
	n := len(boxes)
	dist := make([][]int, n)
	next := make([][]uint8, n)
	for i := 0; i < n; i++ {
		dist[i] = make([]int, n)
		next[i] = make([]uint8, n)
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				dist[i][j] = 0
				next[i][j] = uint8(j)
			case AreNeighbors(boxes[i], boxes[j]):
				dist[i][j] = 1
				next[i][j] = uint8(j)
			default:
				dist[i][j] = unreachable
				next[i][j] = unreachable
			}
		}
	}

	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				if d := dist[i][k] + dist[k][j]; d < dist[i][j] {
					dist[i][j] = d
					next[i][j] = next[i][k]
				}
			}
		}
	}
	return next
}

// Compress encodes an itinerary table. Every source row is framed by 0xFF
// markers and holds (start, end, via) triples that merge consecutive
// destinations sharing a next hop. The route to self and unreachable
// destinations are left out.
func Compress(itinerary [][]uint8) []byte {
	n := len(itinerary)
	out := make([]byte, 0, n*8)
	for i := 0; i < n; i++ {
		out = append(out, rowMarker)
		row := itinerary[i]
		for j := 0; j < n; j++ {
			via := row[j]
			if j == i || via == unreachable {
				continue
			}
			k := j
			for k+1 < n && k+1 != i && row[k+1] == via {
				k++
			}
			out = append(out, uint8(j), uint8(k), via)
			j = k
		}
		out = append(out, rowMarker)
	}
	return out
}

// BuildMatrix computes the compressed matrix for a set of boxes. Calling it
// twice on the same boxes yields identical bytes.
func BuildMatrix(boxes []Box) []byte {
	return Compress(Itinerary(boxes))
}

// Decode parses a matrix produced by Compress.
func Decode(data []byte) (*Matrix, error) {
	m := &Matrix{}
	pos := 0
	for pos < len(data) {
		if data[pos] != rowMarker {
			return nil, fmt.Errorf("%w: expected row marker at %d", ErrMalformedMatrix, pos)
		}
		pos++
		var row []Route
		for {
			if pos >= len(data) {
				return nil, fmt.Errorf("%w: unterminated row %d", ErrMalformedMatrix, len(m.rows))
			}
			if data[pos] == rowMarker {
				pos++
				break
			}
			if pos+3 > len(data) {
				return nil, fmt.Errorf("%w: truncated route in row %d", ErrMalformedMatrix, len(m.rows))
			}
			row = append(row, Route{Start: data[pos], End: data[pos+1], Via: data[pos+2]})
			pos += 3
		}
		m.rows = append(m.rows, row)
	}
	return m, nil
}

// DecodeRoom parses a matrix shipped inside a room: an optional leading
// 0xFF, then rows of triples each closed by a single 0xFF. A missing final
// marker is tolerated.
func DecodeRoom(data []byte) *Matrix {
	m := &Matrix{}
	pos := 0
	if len(data) > 0 && data[0] == rowMarker {
		pos++
	}
	var row []Route
	for pos < len(data) {
		if data[pos] == rowMarker {
			m.rows = append(m.rows, row)
			row = nil
			pos++
			continue
		}
		if pos+3 > len(data) {
			break
		}
		row = append(row, Route{Start: data[pos], End: data[pos+1], Via: data[pos+2]})
		pos += 3
	}
	if len(row) > 0 {
		m.rows = append(m.rows, row)
	}
	return m
}
