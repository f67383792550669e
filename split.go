package segconv

// Reproducible train/val/test splitting of paired dataset directories.

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// BucketNames are the split output directory names, in ratio order.
var BucketNames = []string{"train", "val", "test"}

// DefaultRatios is the default train/val/test split.
var DefaultRatios = []float64{0.8, 0.1, 0.1}

// ratioTolerance is how far the ratio sum may be from 1 before ratios are normalised.
const ratioTolerance = 1e-6

// SplitGroup is a set of file stems that is kept together in a single bucket.
type SplitGroup struct {
	Key   string
	Stems []string
}

// SplitOptions configure SplitDataset.
type SplitOptions struct {
	Ratios      []float64 // Train, val and optionally test proportions.
	Seed        int64     // Shuffle seed.
	GroupPrefix string    // Stem grouping, see GroupStems.
	Move        bool      // Move files instead of copying them.
}

// BucketReport summarises one output bucket.
type BucketReport struct {
	Name   string
	Groups int
	Stems  int
	Files  int
}

// SplitReport summarises a SplitDataset run.
type SplitReport struct {
	Subdirs []string
	Buckets []BucketReport
	Missing int // Stems without a file in one of the subdirectories.
}

// NormalizeRatios validates 2 or 3 non-negative ratios and scales them to sum to 1 if needed. A
// zero third ratio is dropped. The input is not modified.
func NormalizeRatios(ratios []float64) ([]float64, error) {
	if len(ratios) != 2 && len(ratios) != 3 {
		return nil, fmt.Errorf("expected 2 or 3 ratios (train val [test]), got %d", len(ratios))
	}
	if floats.Min(ratios) < 0 || floats.HasNaN(ratios) {
		return nil, fmt.Errorf("ratios must be non-negative, got %v", ratios)
	}
	sum := floats.Sum(ratios)
	if sum <= 0 || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("the sum of the ratios must be positive and finite, got %v", sum)
	}

	r := append([]float64(nil), ratios...)
	if math.Abs(sum-1) > ratioTolerance {
		floats.Scale(1/sum, r)
	}
	if len(r) == 3 && r[2] == 0 {
		r = r[:2]
	}
	return r, nil
}

// BucketSizes divides n units according to ratios, which must sum to 1. Each bucket gets the
// floor of its share and the remaining units are handed out one each from the first bucket on,
// so the sizes always add up to n.
func BucketSizes(n int, ratios []float64) []int {
	sizes := make([]int, len(ratios))
	total := 0
	for i, r := range ratios {
		// The epsilon absorbs representation error, e.g. 0.1*100 = 10.000000000000002.
		sizes[i] = int(math.Floor(r*float64(n) + 1e-9))
		if total+sizes[i] > n {
			sizes[i] = n - total
		}
		total += sizes[i]
	}
	for i := 0; total < n; i = (i + 1) % len(sizes) {
		sizes[i]++
		total++
	}
	return sizes
}

// ValidateGroupPrefix checks a group prefix. A prefix that parses as an integer must be a
// positive length.
func ValidateGroupPrefix(prefix string) error {
	if n, err := strconv.Atoi(prefix); err == nil && n <= 0 {
		return fmt.Errorf("group prefix length must be positive, got %d", n)
	}
	return nil
}

// groupKey returns the grouping key of stem for a group prefix. An integer prefix N keys by the
// first N characters; any other non-empty prefix keys by the text before its first occurrence.
// Integer prefixes are never used as separators.
func groupKey(stem, prefix string) string {
	if prefix == "" {
		return stem
	}
	if n, err := strconv.Atoi(prefix); err == nil {
		if n > 0 && n < len(stem) {
			return stem[:n]
		}
		return stem
	}
	if i := strings.Index(stem, prefix); i > 0 {
		return stem[:i]
	}
	return stem
}

// GroupStems groups stems by groupKey. Groups are sorted by key and the stems of each group are
// sorted, so the result only depends on the set of stems.
func GroupStems(stems []string, prefix string) []SplitGroup {
	byKey := make(map[string][]string)
	for _, s := range stems {
		k := groupKey(s, prefix)
		byKey[k] = append(byKey[k], s)
	}

	groups := make([]SplitGroup, 0, len(byKey))
	for k, s := range byKey {
		sort.Strings(s)
		groups = append(groups, SplitGroup{Key: k, Stems: s})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// PartitionGroups shuffles groups with a generator seeded by seed and cuts the result into
// contiguous buckets sized by BucketSizes. The same groups and seed always give the same buckets.
// The input slice is not modified.
func PartitionGroups(groups []SplitGroup, ratios []float64, seed int64) [][]SplitGroup {
	shuffled := append([]SplitGroup(nil), groups...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	buckets := make([][]SplitGroup, len(ratios))
	start := 0
	for i, size := range BucketSizes(len(shuffled), ratios) {
		buckets[i] = shuffled[start : start+size]
		start += size
	}
	return buckets
}

// datasetFiles maps stems to the file paths with that stem, per subdirectory of root.
type datasetFiles map[string]map[string][]string

// listDatasetFiles lists the non-hidden files of every subdirectory of root.
func listDatasetFiles(root string, subdirs []string) (datasetFiles, []string, error) {
	files := make(datasetFiles, len(subdirs))
	seen := make(map[string]bool)
	var stems []string
	for _, sub := range subdirs {
		paths, err := filesByExtInDir(filepath.Join(root, sub), "")
		if err != nil {
			return nil, nil, err
		}
		byStem := make(map[string][]string, len(paths))
		for _, p := range paths {
			// Hidden files (.DS_Store, ._img.jpg) are not part of the dataset.
			if strings.HasPrefix(filepath.Base(p), ".") {
				continue
			}
			stem := fileStem(p)
			byStem[stem] = append(byStem[stem], p)
			if !seen[stem] {
				seen[stem] = true
				stems = append(stems, stem)
			}
		}
		files[sub] = byStem
	}
	sort.Strings(stems)
	return files, stems, nil
}

// SplitDataset splits the files in the subdirectories of inputDir (e.g. images/ and labels/)
// into outputDir/<bucket>/<subdir>/. Files sharing a stem across subdirectories, and stems sharing
// a group key, end up in the same bucket. A stem missing from a subdirectory is logged and
// counted, the files that exist are still placed.
func SplitDataset(inputDir, outputDir string, opts SplitOptions) (SplitReport, error) {
	var report SplitReport

	ratios := opts.Ratios
	if len(ratios) == 0 {
		ratios = DefaultRatios
	}
	ratios, err := NormalizeRatios(ratios)
	if err != nil {
		return report, err
	}
	if err := ValidateGroupPrefix(opts.GroupPrefix); err != nil {
		return report, err
	}

	subdirs, err := subdirsInDir(inputDir)
	if err != nil {
		return report, err
	}
	if len(subdirs) == 0 {
		return report, fmt.Errorf("no subdirectories in %q, expected e.g. images/ and labels/", inputDir)
	}
	report.Subdirs = subdirs

	if isWithinDir(outputDir, inputDir) {
		return report, fmt.Errorf("the output %q must not be inside the input %q", outputDir, inputDir)
	}

	files, stems, err := listDatasetFiles(inputDir, subdirs)
	if err != nil {
		return report, err
	}
	groups := GroupStems(stems, opts.GroupPrefix)
	log.Printf("Splitting %d file stems in %d groups over %v", len(stems), len(groups), subdirs)

	place := copyFile
	if opts.Move {
		place = moveFile
	}

	for i, bucket := range PartitionGroups(groups, ratios, opts.Seed) {
		br := BucketReport{Name: BucketNames[i], Groups: len(bucket)}

		for _, sub := range subdirs {
			dir := filepath.Join(outputDir, br.Name, sub)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return report, fmt.Errorf("cannot create directory %q: %v", dir, err)
			}
		}

		for _, g := range bucket {
			for _, stem := range g.Stems {
				br.Stems++
				for _, sub := range subdirs {
					paths := files[sub][stem]
					if len(paths) == 0 {
						log.Printf("Missing %q in %q", stem, sub)
						report.Missing++
						continue
					}
					for _, src := range paths {
						dst := filepath.Join(outputDir, br.Name, sub, filepath.Base(src))
						if err := place(src, dst); err != nil {
							return report, fmt.Errorf("cannot place %q: %v", src, err)
						}
						br.Files++
					}
				}
			}
		}

		report.Buckets = append(report.Buckets, br)
	}

	return report, nil
}

// isWithinDir reports whether path is dir or lies below it.
func isWithinDir(path, dir string) bool {
	p, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	d, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	sep := string(os.PathSeparator)
	return strings.HasPrefix(p+sep, d+sep)
}
