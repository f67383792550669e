package segconv

import (
	"math"
	"reflect"
	"testing"
)

func polygonEq(t *testing.T, want, got Polygon, tol float64) bool {
	t.Helper()
	if len(want) != len(got) {
		t.Errorf("different number of vertices: want %d, got %d", len(want), len(got))
		return false
	}
	for i := range want {
		if math.Abs(want[i].X-got[i].X) > tol || math.Abs(want[i].Y-got[i].Y) > tol {
			t.Errorf("vertex %d: want %v, got %v", i, want[i], got[i])
			return false
		}
	}
	return true
}

func TestNormalizePolygon(t *testing.T) {
	p := Polygon{{2, 3}, {40, 3}, {40, 25}, {17.5, 30}}
	out := NormalizePolygon(p, 40, 30, NormalizeOptions{})
	if !out.Kept() {
		t.Fatalf("polygon discarded: %v", out.Reason)
	}
	want := Polygon{{2.0 / 40, 3.0 / 30}, {1, 0.1}, {1, 25.0 / 30}, {17.5 / 40, 1}}
	if !polygonEq(t, want, out.Polygon, 1e-12) {
		return
	}
	for _, v := range out.Polygon {
		if v.X < 0 || v.X > 1 || v.Y < 0 || v.Y > 1 {
			t.Fatalf("vertex %v outside the unit square", v)
		}
	}
	if p[1].X != 40 {
		t.Fatal("input modified")
	}
}

func TestNormalizePolygonClips(t *testing.T) {
	p := Polygon{{-1.5, -0.2}, {12, 0}, {10.0001, 11}, {0, 10}}
	out := NormalizePolygon(p, 10, 10, NormalizeOptions{})
	if !out.Kept() {
		t.Fatalf("polygon discarded: %v", out.Reason)
	}
	polygonEq(t, Polygon{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, out.Polygon, 0)
}

func TestNormalizePolygonDiscards(t *testing.T) {
	cases := []struct {
		name   string
		p      Polygon
		w, h   int
		opts   NormalizeOptions
		reason DiscardReason
	}{
		{"two points", Polygon{{0, 0}, {5, 5}}, 10, 10, NormalizeOptions{}, DiscardTooFewPoints},
		{"min points", Polygon{{0, 0}, {5, 0}, {5, 5}, {0, 5}}, 10, 10,
			NormalizeOptions{MinPoints: 5}, DiscardTooFewPoints},
		{"min points raised to 3", Polygon{{0, 0}, {5, 5}}, 10, 10,
			NormalizeOptions{MinPoints: 1}, DiscardTooFewPoints},
		{"unknown size", Polygon{{0, 0}, {5, 0}, {5, 5}}, 0, 10, NormalizeOptions{}, DiscardUnknownSize},
	}
	for _, c := range cases {
		out := NormalizePolygon(c.p, c.w, c.h, c.opts)
		if out.Kept() || out.Reason != c.reason {
			t.Errorf("%s: want %v, got %v", c.name, c.reason, out.Reason)
		}
		if out.Polygon != nil {
			t.Errorf("%s: discarded outcome with a polygon", c.name)
		}
	}
}

func TestSimplifyPolygon(t *testing.T) {
	// A square with a vertex in the middle of every side.
	p := Polygon{{0, 0}, {5, 0}, {10, 0}, {10, 5}, {10, 10}, {5, 10}, {0, 10}, {0, 5}}
	got := SimplifyPolygon(p, 0.5)
	polygonEq(t, Polygon{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, got, 0)

	// Nothing is within epsilon of its neighbours' line.
	p = Polygon{{0, 0}, {5, 3}, {10, 0}, {10, 10}, {0, 10}}
	if got := SimplifyPolygon(p, 1); !reflect.DeepEqual(got, p) {
		t.Errorf("want %v, got %v", p, got)
	}

	// Zero epsilon disables simplification.
	p = Polygon{{0, 0}, {5, 0}, {10, 0}, {10, 10}}
	if got := SimplifyPolygon(p, 0); !reflect.DeepEqual(got, p) {
		t.Errorf("want %v, got %v", p, got)
	}
}

func TestSimplifyPolygonKeepsDegenerate(t *testing.T) {
	// Simplification would leave a line, so the polygon is kept as-is.
	p := Polygon{{0, 0}, {10, 0.1}, {20, 0}, {10, -0.1}}
	if got := SimplifyPolygon(p, 1); !reflect.DeepEqual(got, p) {
		t.Fatalf("want %v, got %v", p, got)
	}

	out := NormalizePolygon(p, 20, 20, NormalizeOptions{Epsilon: 1, MinPoints: 5})
	if out.Reason != DiscardTooFewPoints {
		t.Fatalf("want %v, got %v", DiscardTooFewPoints, out.Reason)
	}
}

func TestNormalizePolygonSimplifies(t *testing.T) {
	p := Polygon{{0, 0}, {5, 0.2}, {10, 0}, {10, 10}, {0, 10}}
	out := NormalizePolygon(p, 10, 10, NormalizeOptions{Epsilon: 0.5})
	if !out.Kept() {
		t.Fatalf("polygon discarded: %v", out.Reason)
	}
	polygonEq(t, Polygon{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, out.Polygon, 0)

	// The same polygon is dropped when 5 vertices are required after simplification.
	out = NormalizePolygon(p, 10, 10, NormalizeOptions{Epsilon: 0.5, MinPoints: 5})
	if out.Reason != DiscardTooFewPoints {
		t.Fatalf("want %v, got %v", DiscardTooFewPoints, out.Reason)
	}
}
