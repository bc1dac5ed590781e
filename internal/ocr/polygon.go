package ocr

import (
	"encoding/json"
	"math"
)

// ParsePolygon normalizes the encodings layout services have used for polygons:
//
//	[x1, y1, x2, y2, ...]
//	[{"x": x1, "y": y1}, ...]
//	[[x1, y1], [x2, y2], ...]
//
// Anything else (odd coordinate count, mixed element kinds, non-finite
// numbers) yields nil rather than an error.
func ParsePolygon(raw []byte) Polygon {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return nil
	}

	switch firstByte(items[0]) {
	case '{':
		out := make(Polygon, 0, len(items))
		for _, it := range items {
			var p struct {
				X *float64 `json:"x"`
				Y *float64 `json:"y"`
			}
			if err := json.Unmarshal(it, &p); err != nil || p.X == nil || p.Y == nil {
				return nil
			}
			out = append(out, Point{X: *p.X, Y: *p.Y})
		}
		return finite(out)
	case '[':
		out := make(Polygon, 0, len(items))
		for _, it := range items {
			var pair []float64
			if err := json.Unmarshal(it, &pair); err != nil || len(pair) != 2 {
				return nil
			}
			out = append(out, Point{X: pair[0], Y: pair[1]})
		}
		return finite(out)
	default:
		var flat []float64
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil
		}
		return FromFlat(flat)
	}
}

// FromFlat pairs an interleaved coordinate list. Odd lengths are malformed.
func FromFlat(flat []float64) Polygon {
	if len(flat) == 0 || len(flat)%2 != 0 {
		return nil
	}
	out := make(Polygon, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		out = append(out, Point{X: flat[i], Y: flat[i+1]})
	}
	return finite(out)
}

// UnmarshalJSON accepts every encoding ParsePolygon does and never fails,
// so one bad polygon cannot reject a whole document.
func (p *Polygon) UnmarshalJSON(b []byte) error {
	*p = ParsePolygon(b)
	return nil
}

func finite(p Polygon) Polygon {
	for _, pt := range p {
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
			return nil
		}
	}
	return p
}

func firstByte(b []byte) byte {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return c
	}
	return 0
}
