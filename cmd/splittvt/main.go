// Splits a dataset directory with paired subdirectories (e.g. images/ and labels/) into
// train/val[/test] subsets with a reproducible seed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sensorable/segconv"
)

var (
	inputDirPath  string    // The input root with the paired subdirectories.
	outputDirPath string    // The output root for train/, val/ and test/.
	ratios        []float64 // The train, val and optional test proportions.
	seed          int64     // The shuffle seed.
	groupPrefix   string    // Keeps stems with a common prefix together.
	moveFiles     bool      // Move instead of copy.
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  -i <dir> -o <dir> [--ratio 0.8 0.1 0.1] [--seed 42]"+
			" [--group-prefix <len|sep>] [--move]")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(2)
	}

	for _, name := range []string{"input", "i"} {
		flag.StringVar(&inputDirPath, name, inputDirPath,
			"The input root `path` (contains subfolders like images/, labels/)")
	}
	for _, name := range []string{"output", "o"} {
		flag.StringVar(&outputDirPath, name, outputDirPath,
			"The output root `path` to create train/ val/ (and test/) in")
	}
	ratioValue := flag.String("ratio", "0.8,0.1,0.1",
		"Proportions `train val [test]`, separated by commas or spaces; normalised if they do not"+
			" sum to 1")
	flag.Int64Var(&seed, "seed", 42, "The random seed for deterministic splits")
	flag.StringVar(&groupPrefix, "group-prefix", groupPrefix,
		"Keeps files with a common prefix together: a prefix `length` or a separator string")
	flag.BoolVar(&moveFiles, "move", moveFiles, "Move files instead of copying them")

	rest, err := segconv.ParseFlagsWithValues(flag.CommandLine, os.Args[1:], "ratio")
	if err != nil {
		printUsageAndExit(err)
	}
	if len(rest) > 0 {
		printUsageAndExit("Unexpected arguments: ", rest)
	}

	if inputDirPath == "" || outputDirPath == "" {
		printUsageAndExit("Missing required argument --input or --output")
	}
	if ratios, err = segconv.ParseRatios(*ratioValue); err != nil {
		printUsageAndExit(err)
	}
	if err := segconv.ValidateGroupPrefix(groupPrefix); err != nil {
		printUsageAndExit("Invalid --group-prefix: ", err)
	}
	normalized, err := segconv.NormalizeRatios(ratios)
	if err != nil {
		printUsageAndExit("Invalid --ratio: ", err)
	}
	if len(normalized) == len(ratios) {
		for i := range ratios {
			if normalized[i] != ratios[i] {
				log.Printf("Ratios normalized to sum=1.0 -> %.4f", normalized)
				break
			}
		}
	}
	ratios = normalized

	inputDirPath = filepath.Clean(inputDirPath)
	outputDirPath = filepath.Clean(outputDirPath)
	if info, err := os.Stat(inputDirPath); err != nil || !info.IsDir() {
		printUsageAndExit("Input directory not found: ", inputDirPath)
	}
}

func main() {
	log.Printf("Splitting %s into %s (ratio %v, seed %d, move %t, group %q)",
		inputDirPath, outputDirPath, ratios, seed, moveFiles, groupPrefix)

	report, err := segconv.SplitDataset(inputDirPath, outputDirPath, segconv.SplitOptions{
		Ratios:      ratios,
		Seed:        seed,
		GroupPrefix: groupPrefix,
		Move:        moveFiles,
	})
	if err != nil {
		log.Fatal("Split failed: ", err)
	}

	for _, b := range report.Buckets {
		log.Printf("%-5s: %d groups, %d stems, %d files", b.Name, b.Groups, b.Stems, b.Files)
	}
	if report.Missing > 0 {
		log.Printf("Missing pair members: %d", report.Missing)
	}
	log.Print("Split complete")
}
