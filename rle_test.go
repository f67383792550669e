package segconv

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRLECounts(t *testing.T) {
	cases := []struct {
		counts []uint32
		str    string
	}{
		{[]uint32{0, 1}, "01"},
		{[]uint32{5, 100}, "5T3"},
		{[]uint32{1, 2, 3, 10}, "1238"}, // Delta encoded from the fourth value on.
		{[]uint32{1, 5, 3, 2}, "135M"},  // Negative delta.
	}
	for _, c := range cases {
		if got := EncodeRLECounts(c.counts); got != c.str {
			t.Errorf("encode %v: want %q, got %q", c.counts, c.str, got)
		}
		got, err := DecodeRLECounts(c.str)
		if err != nil {
			t.Errorf("decode %q: %v", c.str, err)
			continue
		}
		if !reflect.DeepEqual(got, c.counts) {
			t.Errorf("decode %q: want %v, got %v", c.str, c.counts, got)
		}
	}

	if _, err := DecodeRLECounts("T"); err == nil {
		t.Error("expected an error for a truncated string")
	}
}

func TestRLEMask(t *testing.T) {
	// 2 rows, 3 columns.
	mask := []byte{
		0, 1, 1,
		0, 1, 0,
	}
	rle, err := RLEFromMask(mask, 2, 3)
	if err != nil {
		t.Fatal("encode:", err)
	}
	if want := []uint32{2, 3, 1}; !reflect.DeepEqual(rle.Counts, want) {
		t.Fatalf("counts: want %v, got %v", want, rle.Counts)
	}
	if rle.Area() != 3 {
		t.Fatalf("area: want 3, got %d", rle.Area())
	}

	got, err := rle.Mask()
	if err != nil {
		t.Fatal("decode:", err)
	}
	if !reflect.DeepEqual(got, mask) {
		t.Fatalf("mask: want %v, got %v", mask, got)
	}

	// Foreground first needs a leading empty run.
	rle, err = RLEFromMask([]byte{1, 1}, 1, 2)
	if err != nil {
		t.Fatal("encode:", err)
	}
	if want := []uint32{0, 2}; !reflect.DeepEqual(rle.Counts, want) {
		t.Fatalf("counts: want %v, got %v", want, rle.Counts)
	}

	bad := &RLE{Height: 2, Width: 2, Counts: []uint32{1, 1}}
	if _, err := bad.Mask(); err == nil {
		t.Fatal("expected an error for counts not covering the mask")
	}
}

func TestRLEJSON(t *testing.T) {
	rle := RLE{Height: 2, Width: 3, Counts: []uint32{2, 3, 1}}
	enc, err := json.Marshal(rle)
	if err != nil {
		t.Fatal("marshal:", err)
	}
	if want := `{"size":[2,3],"counts":"231"}`; string(enc) != want {
		t.Fatalf("want %s, got %s", want, enc)
	}

	var got RLE
	if err := json.Unmarshal([]byte(`{"size": [2, 3], "counts": [2, 3, 1]}`), &got); err != nil {
		t.Fatal("unmarshal:", err)
	}
	if !reflect.DeepEqual(got, rle) {
		t.Fatalf("want %+v, got %+v", rle, got)
	}
}
