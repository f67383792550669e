// Converts COCO instance annotations (polygons and RLE masks) to YOLO segmentation labels, one
// text file per image.
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
	cocoFilePath   string // The COCO instances JSON document.
	imagesRootPath string // The directory the image file names are relative to.
	labelOutPath   string // The label output directory.

	skipCrowd     bool    // Skip crowd annotations with RLE masks.
	approxEpsilon float64 // Douglas-Peucker tolerance in pixels.
	minPoints     int     // The minimum number of polygon vertices.
	precision     int     // Decimals of the normalised coordinates.

	namesFilePath            string // Optional class names output file.
	tfRecordFilePath         string // Optional TFRecord output file.
	tfRecordLabelMapFilePath string // The TFRecord label map file.
	numShardFiles            int    // The number of TFRecord shard files to create.
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  required:\t--json <file> --images_root <dir> --out <dir>")
		_, _ = fmt.Fprintln(os.Stderr, "  tfrecord:\t--tfrecord <file> [--tfrecord-label-map-file <file>]"+
			" [--num-shards N]")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	// Path arguments.
	flag.StringVar(&cocoFilePath, "json", cocoFilePath,
		"The `path` to the COCO annotations JSON")
	flag.StringVar(&imagesRootPath, "images_root", imagesRootPath,
		"The `path` to the directory containing the images referenced by file_name")
	flag.StringVar(&labelOutPath, "out", labelOutPath,
		"The `path` to the output directory for YOLO labels (.txt); created if missing")

	// Conversion arguments.
	flag.BoolVar(&skipCrowd, "skip-crowd", skipCrowd,
		"Skip iscrowd==1 (RLE) annotations")
	flag.Float64Var(&approxEpsilon, "approx-epsilon", 0,
		"Douglas-Peucker simplification `epsilon` in pixels, before normalisation (0 = off)")
	flag.IntVar(&minPoints, "min-points", segconv.MinPolygonPoints,
		"The minimum number of polygon points to keep (>=3)")
	flag.IntVar(&precision, "precision", segconv.DefaultPrecision,
		"The number of `decimals` of the normalised coordinates (trailing zeros are trimmed)")

	// Additional outputs.
	flag.StringVar(&namesFilePath, "names", namesFilePath,
		"Optional `path` of a file receiving the class names, one per line in class order")
	flag.StringVar(&tfRecordFilePath, "tfrecord", tfRecordFilePath,
		"Optional TFRecord output file `path` for the converted polygons")
	flag.StringVar(&tfRecordLabelMapFilePath, "tfrecord-label-map-file", tfRecordLabelMapFilePath,
		"The TFRecord label map file `path` (default: <tfrecord>.pbtxt)")
	flag.IntVar(&numShardFiles, "num-shards", 1,
		"The number of TFRecord shard files to create")

	flag.Parse()

	if cocoFilePath == "" || imagesRootPath == "" || labelOutPath == "" {
		printUsageAndExit("Missing required argument --json, --images_root or --out")
	}
	if flag.NArg() > 0 {
		printUsageAndExit("Unexpected arguments: ", flag.Args())
	}
	if approxEpsilon < 0 {
		printUsageAndExit("Invalid --approx-epsilon, must be >= 0: ", approxEpsilon)
	}
	if minPoints < segconv.MinPolygonPoints {
		log.Printf("Raising --min-points from %d to %d", minPoints, segconv.MinPolygonPoints)
		minPoints = segconv.MinPolygonPoints
	}
	if precision < 1 || precision > 16 {
		printUsageAndExit("Invalid --precision, must be in [1, 16]: ", precision)
	}
	if numShardFiles < 1 {
		printUsageAndExit("Invalid --num-shards, must be >= 1: ", numShardFiles)
	}

	// Clean path arguments.
	cocoFilePath = filepath.Clean(cocoFilePath)
	imagesRootPath = filepath.Clean(imagesRootPath)
	labelOutPath = filepath.Clean(labelOutPath)
	if imagesRootPath == labelOutPath {
		printUsageAndExit("The image input and label output paths cannot be identical")
	}
	if tfRecordFilePath != "" {
		tfRecordFilePath = filepath.Clean(tfRecordFilePath)
		if tfRecordLabelMapFilePath == "" {
			tfRecordLabelMapFilePath = tfRecordFilePath + ".pbtxt"
		}
		tfRecordLabelMapFilePath = filepath.Clean(tfRecordLabelMapFilePath)
	}
}

func main() {
	// Parse input.
	doc, err := segconv.LoadCOCO(cocoFilePath)
	if err != nil {
		log.Fatal("Failed to parse the input: ", err)
	}
	log.Printf("Loaded %d images, %d annotations and %d categories from %s",
		len(doc.Images), len(doc.Annotations), len(doc.Categories), cocoFilePath)

	dec := segconv.NewMaskDecoder()
	if !dec.Available() {
		log.Print("RLE mask decoding is not available in this build, mask annotations are skipped")
	}

	categories := segconv.NewCategoryIndex(doc.CategoryIDs())

	// Convert and write the labels.
	data, stats, err := segconv.Convert(doc, segconv.ConvertOptions{
		ImagesRoot: imagesRootPath,
		OutDir:     labelOutPath,
		SkipCrowd:  skipCrowd,
		Epsilon:    approxEpsilon,
		MinPoints:  minPoints,
		Precision:  precision,
		Decoder:    dec,
		Categories: &categories,
	})
	if err != nil {
		log.Fatal("Conversion failed: ", err)
	}
	log.Printf("Successfully wrote labels for %d images to %s", stats.ImagesLabeled, labelOutPath)

	names := doc.ClassNames(categories)
	if namesFilePath != "" {
		if err := segconv.WriteClassNames(namesFilePath, names); err != nil {
			log.Fatal("Failed to write the class names: ", err)
		}
		log.Printf("Wrote %d class names to %s", len(names), namesFilePath)
	}

	if tfRecordFilePath != "" {
		n, err := segconv.WriteTFRecord(tfRecordFilePath, tfRecordLabelMapFilePath, data, names,
			numShardFiles)
		if err != nil {
			log.Fatal("TFRecord export failed: ", err)
		}
		log.Printf("Successfully wrote %d examples to %s", n, tfRecordFilePath)
	}

	stats.Log()
}
