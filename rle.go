package segconv

// COCO run-length encoded masks.

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RLE is a run-length encoded binary mask. Runs alternate between 0 and 1 pixels, starting with
// 0, over the mask in column-major order.
type RLE struct {
	Height int
	Width  int
	Counts []uint32
}

type jsonRLE struct {
	Size   []int           `json:"size"`
	Counts json.RawMessage `json:"counts"`
}

// UnmarshalJSON implements json.Unmarshaler. Counts may be the compressed COCO string or a plain
// list of run lengths.
func (r *RLE) UnmarshalJSON(data []byte) error {
	var v jsonRLE
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid RLE segmentation: %v", err)
	}
	if len(v.Size) != 2 || v.Size[0] < 0 || v.Size[1] < 0 {
		return fmt.Errorf("invalid RLE size %v", v.Size)
	}
	r.Height, r.Width = v.Size[0], v.Size[1]

	counts := bytes.TrimSpace(v.Counts)
	switch {
	case len(counts) == 0 || string(counts) == "null":
		r.Counts = nil
	case counts[0] == '"':
		var s string
		if err := json.Unmarshal(counts, &s); err != nil {
			return err
		}
		c, err := DecodeRLECounts(s)
		if err != nil {
			return err
		}
		r.Counts = c
	default:
		if err := json.Unmarshal(counts, &r.Counts); err != nil {
			return fmt.Errorf("invalid RLE counts: %v", err)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler, always using the compressed string form.
func (r RLE) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Size   []int  `json:"size"`
		Counts string `json:"counts"`
	}{[]int{r.Height, r.Width}, EncodeRLECounts(r.Counts)})
}

// Area returns the number of foreground pixels.
func (r *RLE) Area() int {
	area := 0
	for i := 1; i < len(r.Counts); i += 2 {
		area += int(r.Counts[i])
	}
	return area
}

// Mask decodes r to a row-major Height x Width mask with values 0 and 1.
func (r *RLE) Mask() ([]byte, error) {
	n := r.Height * r.Width
	total := 0
	for _, c := range r.Counts {
		total += int(c)
	}
	if total != n {
		return nil, fmt.Errorf("RLE counts cover %d pixels, expected %d", total, n)
	}

	mask := make([]byte, n)
	pos := 0
	for i, c := range r.Counts {
		if i&1 == 1 {
			for j := pos; j < pos+int(c); j++ {
				// Column-major index j to row-major.
				x, y := j/r.Height, j%r.Height
				mask[y*r.Width+x] = 1
			}
		}
		pos += int(c)
	}
	return mask, nil
}

// RLEFromMask encodes a row-major height x width mask. Any non-zero value is foreground.
func RLEFromMask(mask []byte, height, width int) (*RLE, error) {
	if len(mask) != height*width {
		return nil, fmt.Errorf("mask has %d values, expected %d", len(mask), height*width)
	}

	r := &RLE{Height: height, Width: width}
	var prev byte
	var run uint32
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			v := mask[y*width+x]
			if v != 0 {
				v = 1
			}
			if v != prev {
				r.Counts = append(r.Counts, run)
				run = 0
				prev = v
			}
			run++
		}
	}
	r.Counts = append(r.Counts, run)
	return r, nil
}

// DecodeRLECounts decodes the compressed COCO counts string. Each value is stored as 5-bit
// chunks offset by 48, with a continuation bit, and values after the second are deltas to the
// value two positions earlier.
func DecodeRLECounts(s string) ([]uint32, error) {
	counts := make([]uint32, 0, len(s)/2)
	vals := make([]int64, 0, len(s)/2)
	for p := 0; p < len(s); {
		var x int64
		k := uint(0)
		more := true
		for more {
			if p >= len(s) {
				return nil, fmt.Errorf("truncated RLE counts string")
			}
			c := int64(s[p]) - 48
			if c < 0 || c > 63 {
				return nil, fmt.Errorf("invalid character %q in RLE counts", s[p])
			}
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			p++
			k++
			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}
		if m := len(vals); m > 2 {
			x += vals[m-2]
		}
		if x < 0 {
			return nil, fmt.Errorf("negative run length in RLE counts")
		}
		vals = append(vals, x)
		counts = append(counts, uint32(x))
	}
	return counts, nil
}

// EncodeRLECounts is the inverse of DecodeRLECounts.
func EncodeRLECounts(counts []uint32) string {
	var b bytes.Buffer
	for i, c := range counts {
		x := int64(c)
		if i > 2 {
			x -= int64(counts[i-2])
		}
		for more := true; more; {
			ch := x & 0x1f
			x >>= 5
			if ch&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				ch |= 0x20
			}
			b.WriteByte(byte(ch + 48))
		}
	}
	return b.String()
}
