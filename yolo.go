package segconv

// YOLO segmentation label specific functionality.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPrecision is the default number of decimals written for normalised coordinates.
const DefaultPrecision = 6

// formatCoord formats v with the given number of decimals and trims trailing zeros, keeping at
// least one decimal.
func formatCoord(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if precision <= 0 {
		return s
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// Format returns the label line as "<class> x1 y1 ... xN yN", without a line break.
func (l LabelLine) Format(precision int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(l.Class))
	for _, v := range l.Coords {
		b.WriteByte(' ')
		b.WriteString(formatCoord(v, precision))
	}
	return b.String()
}

// ParseLabelLine parses a single YOLO segmentation line.
func ParseLabelLine(line string) (LabelLine, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 1+2*MinPolygonPoints || len(tokens)%2 == 0 {
		return LabelLine{}, fmt.Errorf("unexpected number of values in %q", line)
	}

	class, err := strconv.Atoi(tokens[0])
	if err != nil || class < 0 {
		return LabelLine{}, fmt.Errorf("invalid class in %q", line)
	}
	l := LabelLine{Class: class, Coords: make([]float64, len(tokens)-1)}
	for i, t := range tokens[1:] {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return LabelLine{}, fmt.Errorf("unexpected values in %q: %v", line, err)
		}
		if v < 0 || v > 1 {
			return LabelLine{}, fmt.Errorf("coordinate %v out of range in %q", v, line)
		}
		l.Coords[i] = v
	}
	return l, nil
}

// writeLabelLines writes one formatted line per label to w.
func writeLabelLines(w io.Writer, lines []LabelLine, precision int) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := fmt.Fprintln(bw, l.Format(precision)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LabelPath returns the label file path in dirPath for an image file name.
func LabelPath(dirPath, imageFileName string) string {
	base := filepath.Base(filepath.ToSlash(imageFileName))
	return filepath.Join(dirPath, strings.TrimSuffix(base, filepath.Ext(base))+".txt")
}

// WriteLabelFile writes lines to path, replacing any existing file. If lines is empty, no file
// is written and an existing one is removed.
//
// Returns whether a file was written.
func WriteLabelFile(path string, lines []LabelLine, precision int) (written bool, err error) {
	if len(lines) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("cannot remove stale labels %q: %v", path, err)
		}
		return false, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return false, err
	}
	defer closeWithErrCheck(file, &err)

	if err := writeLabelLines(file, lines, precision); err != nil {
		return false, fmt.Errorf("cannot write %q: %v", path, err)
	}
	return true, nil
}

// WriteYOLO writes one label file per element of data to dirPath, which is created if missing.
// Images without label lines get no file.
//
// Returns the number of label files written.
func WriteYOLO(dirPath string, data []LabeledImage, precision int) (int, error) {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return 0, fmt.Errorf("cannot create directory %q: %v", dirPath, err)
	}

	n := 0
	for _, d := range data {
		written, err := WriteLabelFile(LabelPath(dirPath, d.FilePath), d.Lines, precision)
		if err != nil {
			return n, err
		}
		if written {
			n++
		}
	}
	return n, nil
}

// ReadLabelFile parses the YOLO label file at path.
func ReadLabelFile(path string) ([]LabelLine, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	labels := make([]LabelLine, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		l, err := ParseLabelLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", path, err)
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// FromYOLO reads YOLO label files from labelDir and matches them to the images in imageDir.
// Image sizes are read from the image headers.
func FromYOLO(labelDir, imageDir string) ([]LabeledImage, error) {
	return parseLabelsWithOneToOneImages(labelDir, ".txt", imageDir, parseYOLOFile)
}

// parseYOLOFile parses the label file at labelPath for the image at imagePath.
func parseYOLOFile(labelPath, imagePath string) (LabeledImage, error) {
	lines, err := ReadLabelFile(labelPath)
	if err != nil {
		return LabeledImage{}, err
	}

	width, height, err := ImageSize(imagePath)
	if err != nil {
		return LabeledImage{}, err
	}

	return LabeledImage{FilePath: imagePath, Width: width, Height: height, Lines: lines}, nil
}

// WriteClassNames writes names to path, one per line, in class index order.
func WriteClassNames(path string, names []string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(file, &err)

	bw := bufio.NewWriter(file)
	for _, name := range names {
		if _, err := fmt.Fprintln(bw, name); err != nil {
			return err
		}
	}
	return bw.Flush()
}
