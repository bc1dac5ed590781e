package ocr

import (
	"math"
	"sort"
	"strings"
)

// NearbySeparator joins nearby line contents, closest first.
const NearbySeparator = " | "

// NearbyLimit is how many lines NearbyText keeps.
const NearbyLimit = 3

// Spatial is anything positioned by a polygon.
type Spatial interface {
	Shape() Polygon
}

func (l Line) Shape() Polygon          { return l.Polygon }
func (m SelectionMark) Shape() Polygon { return m.Polygon }
func (c Cell) Shape() Polygon          { return c.Polygon }
func (p Polygon) Shape() Polygon       { return p }

// Rect is an axis-aligned bounding box.
type Rect struct {
	Left, Top, Width, Height float64
}

// Center is the arithmetic mean of the vertices. ok is false when the element
// has no usable geometry; callers exclude it from spatial reasoning.
func Center(e Spatial) (Point, bool) {
	if e == nil {
		return Point{}, false
	}
	poly := e.Shape()
	if len(poly) == 0 {
		return Point{}, false
	}
	var sx, sy float64
	for _, p := range poly {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(poly))
	return Point{X: sx / n, Y: sy / n}, true
}

// Distance is the Euclidean distance between centers.
func Distance(a, b Spatial) (float64, bool) {
	ca, ok := Center(a)
	if !ok {
		return 0, false
	}
	cb, ok := Center(b)
	if !ok {
		return 0, false
	}
	return math.Hypot(ca.X-cb.X, ca.Y-cb.Y), true
}

// Bounds returns the bounding box of p.
func (p Polygon) Bounds() (Rect, bool) {
	if len(p) == 0 {
		return Rect{}, false
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := minX, minY
	for _, pt := range p[1:] {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Rect{Left: minX, Top: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Nearby returns up to limit lines whose center lies within radius of e's
// center, nearest first; equal distances keep document order.
func Nearby(e Spatial, lines []Line, radius float64, limit int) []Line {
	origin, ok := Center(e)
	if !ok {
		return nil
	}
	type hit struct {
		line Line
		dist float64
	}
	hits := make([]hit, 0, len(lines))
	for _, l := range lines {
		c, ok := Center(l)
		if !ok {
			continue
		}
		d := math.Hypot(origin.X-c.X, origin.Y-c.Y)
		if d <= radius {
			hits = append(hits, hit{line: l, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Line, len(hits))
	for i, h := range hits {
		out[i] = h.line
	}
	return out
}

// NearbyText joins the contents of the NearbyLimit closest lines within radius.
// It is the only link between a checkbox and its label.
func NearbyText(e Spatial, lines []Line, radius float64) string {
	near := Nearby(e, lines, radius, NearbyLimit)
	if len(near) == 0 {
		return ""
	}
	parts := make([]string, len(near))
	for i, l := range near {
		parts[i] = l.Content
	}
	return strings.Join(parts, NearbySeparator)
}
