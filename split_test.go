package segconv

import (
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func floatsEq(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}

func TestNormalizeRatios(t *testing.T) {
	cases := []struct {
		in, want []float64
	}{
		{[]float64{0.8, 0.1, 0.1}, []float64{0.8, 0.1, 0.1}},
		{[]float64{0.8, 0.3}, []float64{0.8 / 1.1, 0.3 / 1.1}},
		{[]float64{8, 1, 1}, []float64{0.8, 0.1, 0.1}},
		{[]float64{0.9, 0.1, 0}, []float64{0.9, 0.1}},
	}
	for _, c := range cases {
		got, err := NormalizeRatios(c.in)
		if err != nil {
			t.Errorf("%v: %v", c.in, err)
			continue
		}
		if !floatsEq(got, c.want, 1e-12) {
			t.Errorf("%v: want %v, got %v", c.in, c.want, got)
		}
	}

	in := []float64{2, 2}
	if _, err := NormalizeRatios(in); err != nil || in[0] != 2 {
		t.Errorf("input modified or rejected: %v, %v", in, err)
	}

	for _, in := range [][]float64{
		{1},
		{0.5, 0.2, 0.2, 0.1},
		{0.9, -0.1, 0.2},
		{0, 0},
		{math.NaN(), 1},
	} {
		if _, err := NormalizeRatios(in); err == nil {
			t.Errorf("expected an error for %v", in)
		}
	}
}

func TestBucketSizes(t *testing.T) {
	cases := []struct {
		n      int
		ratios []float64
		want   []int
	}{
		{100, []float64{0.8, 0.1, 0.1}, []int{80, 10, 10}},
		{7, []float64{0.5, 0.5}, []int{4, 3}},
		{10, []float64{0.8, 0.1, 0.1}, []int{8, 1, 1}},
		{3, []float64{0.8, 0.1, 0.1}, []int{3, 0, 0}},
		{0, []float64{0.8, 0.2}, []int{0, 0}},
		{5, []float64{0, 1}, []int{0, 5}},
	}
	for _, c := range cases {
		if got := BucketSizes(c.n, c.ratios); !reflect.DeepEqual(got, c.want) {
			t.Errorf("BucketSizes(%d, %v): want %v, got %v", c.n, c.ratios, c.want, got)
		}
	}
}

func TestGroupKey(t *testing.T) {
	cases := []struct {
		stem, prefix, want string
	}{
		{"scene01_0001", "", "scene01_0001"},
		{"scene01_0001", "7", "scene01"},
		{"ab", "7", "ab"},
		{"scene01_0001", "_", "scene01"},
		{"scene01_0001_x", "_", "scene01"},
		{"nosep", "_", "nosep"},
		{"_lead", "_", "_lead"},
	}
	for _, c := range cases {
		if got := groupKey(c.stem, c.prefix); got != c.want {
			t.Errorf("groupKey(%q, %q): want %q, got %q", c.stem, c.prefix, c.want, got)
		}
	}
}

func TestGroupStems(t *testing.T) {
	groups := GroupStems([]string{"b_2", "a_1", "b_1", "c"}, "_")
	want := []SplitGroup{
		{Key: "a", Stems: []string{"a_1"}},
		{Key: "b", Stems: []string{"b_1", "b_2"}},
		{Key: "c", Stems: []string{"c"}},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Fatalf("want %v, got %v", want, groups)
	}
}

func TestPartitionGroups(t *testing.T) {
	var stems []string
	for i := 0; i < 50; i++ {
		stems = append(stems, fmt.Sprintf("img%03d", i))
	}
	groups := GroupStems(stems, "")

	a := PartitionGroups(groups, DefaultRatios, 42)
	b := PartitionGroups(groups, DefaultRatios, 42)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed gave different partitions")
	}
	if got := []int{len(a[0]), len(a[1]), len(a[2])}; !reflect.DeepEqual(got, []int{40, 5, 5}) {
		t.Fatalf("unexpected bucket sizes %v", got)
	}

	seen := make(map[string]bool)
	for _, bucket := range a {
		for _, g := range bucket {
			if seen[g.Key] {
				t.Fatalf("group %q in more than one bucket", g.Key)
			}
			seen[g.Key] = true
		}
	}
	if len(seen) != len(groups) {
		t.Fatalf("want %d groups placed, got %d", len(groups), len(seen))
	}

	c := PartitionGroups(groups, DefaultRatios, 7)
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds gave the same partition")
	}
	if groups[0].Key != "img000" || groups[49].Key != "img049" {
		t.Error("input groups reordered")
	}
}

// makeTestDataset creates n image/label pairs under root and returns root.
func makeTestDataset(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	for _, sub := range []string{"images", "labels"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < n; i++ {
		stem := fmt.Sprintf("s%02d_%03d", i/10, i)
		if err := ioutil.WriteFile(filepath.Join(root, "images", stem+".jpg"), []byte(stem), 0644); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(filepath.Join(root, "labels", stem+".txt"), []byte(stem), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// bucketStems returns the sorted stems found in root/bucket/sub.
func bucketStems(t *testing.T, root, bucket, sub string) []string {
	t.Helper()
	paths, err := filesByExtInDir(filepath.Join(root, bucket, sub), "")
	if err != nil {
		t.Fatal(err)
	}
	stems := make([]string, 0, len(paths))
	for _, p := range paths {
		stems = append(stems, fileStem(p))
	}
	sort.Strings(stems)
	return stems
}

func TestSplitDataset(t *testing.T) {
	in := makeTestDataset(t, 100)
	if err := os.Remove(filepath.Join(in, "labels", "s03_031.txt")); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "split")
	report, err := SplitDataset(in, out, SplitOptions{Ratios: DefaultRatios, Seed: 42})
	if err != nil {
		t.Fatal("split:", err)
	}

	if !reflect.DeepEqual(report.Subdirs, []string{"images", "labels"}) {
		t.Errorf("unexpected subdirectories %v", report.Subdirs)
	}
	if report.Missing != 1 {
		t.Errorf("want 1 missing pair member, got %d", report.Missing)
	}
	wantStems := []int{80, 10, 10}
	files := 0
	for i, b := range report.Buckets {
		if b.Name != BucketNames[i] || b.Stems != wantStems[i] {
			t.Errorf("bucket %d: unexpected report %+v", i, b)
		}
		files += b.Files
	}
	if files != 199 {
		t.Errorf("want 199 files placed, got %d", files)
	}

	// Pairs stay together and no stem lands in two buckets.
	seen := make(map[string]string)
	for _, bucket := range BucketNames {
		images := bucketStems(t, out, bucket, "images")
		for _, s := range images {
			if prev, ok := seen[s]; ok {
				t.Errorf("%q in %s and %s", s, prev, bucket)
			}
			seen[s] = bucket
		}
		labels := bucketStems(t, out, bucket, "labels")
		for _, s := range labels {
			if seen[s] != bucket {
				t.Errorf("label %q in %s, image in %s", s, bucket, seen[s])
			}
		}
	}
	if len(seen) != 100 {
		t.Errorf("want 100 images placed, got %d", len(seen))
	}

	// Copies leave the input in place and a second run gives the same split.
	out2 := filepath.Join(t.TempDir(), "split")
	if _, err := SplitDataset(in, out2, SplitOptions{Seed: 42}); err != nil {
		t.Fatal(err)
	}
	for _, bucket := range BucketNames {
		if a, b := bucketStems(t, out, bucket, "images"), bucketStems(t, out2, bucket, "images"); !reflect.DeepEqual(a, b) {
			t.Errorf("%s differs between runs", bucket)
		}
	}
}

func TestSplitDatasetGroupsAndMove(t *testing.T) {
	in := makeTestDataset(t, 40)
	out := filepath.Join(t.TempDir(), "split")
	report, err := SplitDataset(in, out, SplitOptions{
		Ratios:      []float64{0.5, 0.5},
		Seed:        1,
		GroupPrefix: "_",
		Move:        true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Buckets) != 2 || report.Buckets[0].Groups != 2 || report.Buckets[1].Groups != 2 {
		t.Fatalf("unexpected buckets %+v", report.Buckets)
	}
	if _, err := os.Stat(filepath.Join(out, "test")); !os.IsNotExist(err) {
		t.Errorf("test bucket created for two ratios: %v", err)
	}

	// Every group of ten stems sits in one bucket.
	for _, bucket := range BucketNames[:2] {
		count := make(map[string]int)
		for _, s := range bucketStems(t, out, bucket, "images") {
			count[groupKey(s, "_")]++
		}
		for k, n := range count {
			if n != 10 {
				t.Errorf("%s: group %q split up, %d stems", bucket, k, n)
			}
		}
	}

	left, err := filesByExtInDir(filepath.Join(in, "images"), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("want the input emptied by a move, %d files left", len(left))
	}
}

func TestSplitDatasetInvalid(t *testing.T) {
	in := makeTestDataset(t, 3)
	if _, err := SplitDataset(in, filepath.Join(in, "out"), SplitOptions{}); err == nil {
		t.Error("expected an error for an output inside the input")
	}
	if _, err := SplitDataset(t.TempDir(), t.TempDir(), SplitOptions{}); err == nil {
		t.Error("expected an error for an input without subdirectories")
	}
	if _, err := SplitDataset(in, t.TempDir(), SplitOptions{Ratios: []float64{1}}); err == nil {
		t.Error("expected an error for a single ratio")
	}
}

func TestSplitDatasetSkipsHiddenFiles(t *testing.T) {
	in := makeTestDataset(t, 10)
	for _, p := range []string{"images/.DS_Store", "images/._s00_000.jpg", "labels/.hidden.txt"} {
		if err := ioutil.WriteFile(filepath.Join(in, p), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	out := filepath.Join(t.TempDir(), "split")
	report, err := SplitDataset(in, out, SplitOptions{Ratios: DefaultRatios, Seed: 42})
	if err != nil {
		t.Fatal(err)
	}
	if report.Missing != 0 {
		t.Errorf("want no missing pair members, got %d", report.Missing)
	}
	wantStems := []int{8, 1, 1}
	for i, b := range report.Buckets {
		if b.Stems != wantStems[i] || b.Files != 2*wantStems[i] {
			t.Errorf("bucket %s: want %d stems, got %+v", b.Name, wantStems[i], b)
		}
	}
	for _, bucket := range BucketNames {
		for _, sub := range []string{"images", "labels"} {
			for _, s := range bucketStems(t, out, bucket, sub) {
				if s == "" || s[0] == '.' {
					t.Errorf("hidden file %q placed in %s/%s", s, bucket, sub)
				}
			}
		}
	}
}

func TestValidateGroupPrefix(t *testing.T) {
	for _, prefix := range []string{"", "_", "-", "3", "12"} {
		if err := ValidateGroupPrefix(prefix); err != nil {
			t.Errorf("%q: unexpected error %v", prefix, err)
		}
	}
	for _, prefix := range []string{"0", "-2"} {
		if err := ValidateGroupPrefix(prefix); err == nil {
			t.Errorf("expected an error for %q", prefix)
		}
	}

	// Never a separator, even if it would match.
	if got := groupKey("img01", "0"); got != "img01" {
		t.Errorf("want %q, got %q", "img01", got)
	}

	in := makeTestDataset(t, 3)
	if _, err := SplitDataset(in, t.TempDir(), SplitOptions{GroupPrefix: "0"}); err == nil {
		t.Error("expected an error for a zero group prefix length")
	}
}
