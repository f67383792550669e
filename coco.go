package segconv

// COCO instances specific functionality.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"sort"
	"strconv"
)

// COCOImage is an entry of the "images" section.
type COCOImage struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// COCOCategory is an entry of the "categories" section.
type COCOCategory struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory,omitempty"`
}

// COCOAnnotation is an entry of the "annotations" section.
type COCOAnnotation struct {
	ID           int64        `json:"id"`
	ImageID      int64        `json:"image_id"`
	CategoryID   int64        `json:"category_id"`
	IsCrowd      CrowdFlag    `json:"iscrowd"`
	Segmentation Segmentation `json:"segmentation"`
}

// COCODocument is a COCO instances document, restricted to the fields the converter uses.
type COCODocument struct {
	Images      []COCOImage      `json:"images"`
	Annotations []COCOAnnotation `json:"annotations"`
	Categories  []COCOCategory   `json:"categories"`
}

// CrowdFlag is the "iscrowd" field. Both 0/1 and false/true are accepted.
type CrowdFlag bool

// UnmarshalJSON implements json.Unmarshaler.
func (c *CrowdFlag) UnmarshalJSON(data []byte) error {
	switch s := string(bytes.TrimSpace(data)); s {
	case "null", "false", "0":
		*c = false
	case "true", "1":
		*c = true
	default:
		return fmt.Errorf("invalid iscrowd value %s", s)
	}
	return nil
}

// Segmentation is the "segmentation" field of an annotation. It is either a list of polygons or a
// run-length encoded mask. Any other form leaves both fields empty and sets Unknown.
type Segmentation struct {
	Polygons [][]float64 // Flat x1, y1, x2, y2, ... lists, one per polygon.
	RLE      *RLE        // Non-nil for mask segmentations.
	Unknown  bool        // The field held a value that is neither form.
}

// IsEmpty reports whether the segmentation holds no shape data at all.
func (s Segmentation) IsEmpty() bool {
	return len(s.Polygons) == 0 && s.RLE == nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Segmentation) UnmarshalJSON(data []byte) error {
	*s = Segmentation{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	switch data[0] {
	case '[':
		// Usually a list of polygons, but a single flat polygon is seen in some exports.
		var polygons [][]float64
		if err := json.Unmarshal(data, &polygons); err == nil {
			s.Polygons = polygons
			return nil
		}
		var flat []float64
		if err := json.Unmarshal(data, &flat); err != nil {
			return fmt.Errorf("invalid polygon segmentation: %v", err)
		}
		if len(flat) > 0 {
			s.Polygons = [][]float64{flat}
		}
	case '{':
		var rle RLE
		if err := json.Unmarshal(data, &rle); err != nil {
			return err
		}
		s.RLE = &rle
	default:
		s.Unknown = true
	}
	return nil
}

// LoadCOCO reads and parses the COCO document at path.
func LoadCOCO(path string) (*COCODocument, error) {
	enc, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseCOCO(enc)
}

// ParseCOCO parses a COCO document.
func ParseCOCO(enc []byte) (*COCODocument, error) {
	var doc COCODocument
	if err := json.Unmarshal(enc, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse COCO input: %v", err)
	}
	return &doc, nil
}

// CategoryIDs returns the sorted set of distinct category ids in the document, taken from both
// the categories and the annotations sections.
func (d *COCODocument) CategoryIDs() []int64 {
	seen := make(map[int64]bool, len(d.Categories))
	ids := make([]int64, 0, len(d.Categories))
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, c := range d.Categories {
		add(c.ID)
	}
	for _, a := range d.Annotations {
		add(a.CategoryID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AnnotationsByImage groups the annotations by image id, in document order.
func (d *COCODocument) AnnotationsByImage() map[int64][]*COCOAnnotation {
	m := make(map[int64][]*COCOAnnotation, len(d.Images))
	for i := range d.Annotations {
		a := &d.Annotations[i]
		m[a.ImageID] = append(m[a.ImageID], a)
	}
	return m
}

// ClassNames returns the category names ordered by class index. Categories without a name, or
// only referenced by annotations, are named by their id.
func (d *COCODocument) ClassNames(idx CategoryIndex) []string {
	names := make([]string, idx.Len())
	for class := range names {
		names[class] = strconv.FormatInt(idx.ID(class), 10)
	}
	for _, c := range d.Categories {
		if class, ok := idx.Class(c.ID); ok && c.Name != "" {
			names[class] = c.Name
		}
	}
	return names
}

// CategoryIndex maps COCO category ids to dense, zero-based class indices.
type CategoryIndex struct {
	classes map[int64]int
	ids     []int64
}

// NewCategoryIndex assigns class indices 0..N-1 to the distinct values of ids in ascending order.
// The input is not modified and duplicates are ignored.
func NewCategoryIndex(ids []int64) CategoryIndex {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := CategoryIndex{classes: make(map[int64]int, len(sorted))}
	for _, id := range sorted {
		if _, ok := idx.classes[id]; ok {
			continue
		}
		idx.classes[id] = len(idx.ids)
		idx.ids = append(idx.ids, id)
	}
	return idx
}

// Class returns the class index for a category id.
func (c CategoryIndex) Class(id int64) (int, bool) {
	class, ok := c.classes[id]
	return class, ok
}

// ID returns the category id for a class index.
func (c CategoryIndex) ID(class int) int64 {
	return c.ids[class]
}

// Len is the number of classes.
func (c CategoryIndex) Len() int {
	return len(c.ids)
}
