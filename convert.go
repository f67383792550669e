package segconv

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
)

// ConvertOptions configure Convert.
type ConvertOptions struct {
	ImagesRoot string      // Directory the image file names are relative to.
	OutDir     string      // Label output directory, created if missing.
	SkipCrowd  bool        // Skip crowd annotations with mask segmentations.
	Epsilon    float64     // Douglas-Peucker tolerance in pixels, zero disables it.
	MinPoints  int         // Minimum polygon vertices to write a line.
	Precision  int         // Decimals for coordinates, DefaultPrecision if not positive.
	Decoder    MaskDecoder // Mask decoding capability, nil behaves like an unavailable decoder.

	// Categories maps category ids to classes. If nil, it is built from all category ids of the
	// document.
	Categories *CategoryIndex
}

// ConvertStats counts what happened during a conversion.
type ConvertStats struct {
	Images        int // Images in the document.
	ImagesLabeled int // Images with a label file.
	ImagesSkipped int // Images without a file name or a known size.
	Annotations   int // Annotations of processed images.
	Lines         int // Label lines written.
	Discarded     map[DiscardReason]int
}

// Log prints a summary of the stats.
func (s ConvertStats) Log() {
	log.Printf("Images total:   %d", s.Images)
	log.Printf("Images labeled: %d", s.ImagesLabeled)
	log.Printf("Images skipped: %d", s.ImagesSkipped)
	log.Printf("Annotations:    %d", s.Annotations)
	log.Printf("YOLO lines:     %d", s.Lines)

	reasons := make([]DiscardReason, 0, len(s.Discarded))
	for r := range s.Discarded {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, r := range reasons {
		log.Printf("Discarded (%s): %d", r, s.Discarded[r])
	}
}

// Convert converts the COCO document to YOLO segmentation labels, writing one label file per
// image to opts.OutDir. Per annotation and per polygon problems are counted and skipped, only
// failures to write the output are returned as errors.
//
// Returns the label data of all processed images, including those without lines, in document
// order.
func Convert(doc *COCODocument, opts ConvertOptions) (LabeledImages, ConvertStats, error) {
	stats := ConvertStats{Images: len(doc.Images), Discarded: make(map[DiscardReason]int)}

	if err := os.MkdirAll(opts.OutDir, 0755); err != nil {
		return nil, stats, fmt.Errorf("cannot create directory %q: %v", opts.OutDir, err)
	}
	precision := opts.Precision
	if precision <= 0 {
		precision = DefaultPrecision
	}
	dec := opts.Decoder
	if dec == nil {
		dec = unavailableMaskDecoder{}
	}
	normOpts := NormalizeOptions{Epsilon: opts.Epsilon, MinPoints: opts.MinPoints}

	categories := opts.Categories
	if categories == nil {
		idx := NewCategoryIndex(doc.CategoryIDs())
		categories = &idx
	}
	annotations := doc.AnnotationsByImage()

	data := make(LabeledImages, 0, len(doc.Images))
	for _, img := range doc.Images {
		if img.FileName == "" {
			log.Printf("Image %d has no file name, skipping", img.ID)
			stats.ImagesSkipped++
			continue
		}
		imagePath := filepath.Join(opts.ImagesRoot, img.FileName)

		width, height := img.Width, img.Height
		if width <= 0 || height <= 0 {
			var err error
			if width, height, err = ImageSize(imagePath); err != nil {
				log.Printf("Unknown image size, skipping %q: %v", img.FileName, err)
				stats.ImagesSkipped++
				stats.Discarded[DiscardUnknownSize]++
				continue
			}
		}

		labeled := LabeledImage{FilePath: imagePath, Width: width, Height: height}
		for _, a := range annotations[img.ID] {
			stats.Annotations++

			class, ok := categories.Class(a.CategoryID)
			if !ok {
				stats.Discarded[DiscardUnknownCategory]++
				continue
			}

			shapes := ExtractShapes(a, dec, opts.SkipCrowd)
			stats.Discarded[DiscardMalformed] += shapes.Malformed
			if shapes.Reason != DiscardNone {
				stats.Discarded[shapes.Reason]++
				continue
			}

			for _, p := range shapes.Polygons {
				out := NormalizePolygon(p, width, height, normOpts)
				if !out.Kept() {
					stats.Discarded[out.Reason]++
					continue
				}
				labeled.Lines = append(labeled.Lines, LabelLine{Class: class, Coords: out.Polygon.Flat()})
			}
		}

		written, err := WriteLabelFile(LabelPath(opts.OutDir, img.FileName), labeled.Lines, precision)
		if err != nil {
			return data, stats, err
		}
		if written {
			stats.ImagesLabeled++
			stats.Lines += len(labeled.Lines)
		} else {
			stats.Discarded[DiscardEmptyImage]++
		}
		data = append(data, labeled)
	}

	// Drop zero counts so the summary only lists what happened.
	for r, n := range stats.Discarded {
		if n == 0 {
			delete(stats.Discarded, r)
		}
	}

	return data, stats, nil
}
