package segconv

// TFRecord segmentation export.

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// toTFFeatures converts the label data for a single image to a feature map. Label map ids are the
// class index plus one, as id 0 is reserved for the background.
func toTFFeatures(img LabeledImage, names []string) (TFFeatureMap, error) {
	config, format, err := decodeImageConfig(img.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %v", err)
	}

	imgData, err := readFile(img.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %v", err)
	}

	f := make(TFFeatureMap, 16)
	f["image/height"] = config.Height
	f["image/width"] = config.Width
	f["image/filename"] = img.FilePath
	f["image/source_id"] = img.FilePath
	f["image/encoded"] = imgData
	f["image/format"] = format

	numLines := len(img.Lines)
	classes := make([]string, numLines)
	classIDs := make([]int64, numLines)
	lengths := make([]int64, numLines)
	var polygons []float32
	for i, l := range img.Lines {
		if l.Class < len(names) {
			classes[i] = names[l.Class]
		} else {
			classes[i] = strconv.Itoa(l.Class)
		}
		classIDs[i] = int64(l.Class + 1)
		lengths[i] = int64(len(l.Coords) / 2)
		for _, v := range l.Coords {
			polygons = append(polygons, float32(v))
		}
	}
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs
	f["image/object/mask/polygon"] = polygons
	f["image/object/mask/polygon/length"] = lengths

	return f, nil
}

// WriteTFRecord does a streaming conversion, serialisation and file write for the label data to
// one or more TFRecord files stored under recordFilePath (with suffixes added when numShards>1).
// Images without label lines are left out.
//
// A label map for names is written to labelMapPath.
func WriteTFRecord(recordFilePath, labelMapPath string, data []LabeledImage, names []string,
	numShards int) (n int, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	labeled := make([]LabeledImage, 0, len(data))
	for _, d := range data {
		if len(d.Lines) > 0 {
			labeled = append(labeled, d)
		}
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
		}
	}()
	shardSize := int(math.Ceil(float64(len(labeled)) / float64(numShards)))
	shardIdx := -1

	for i, d := range labeled {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return n, err
				}
				shardFile = nil
			}

			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return n, fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		features, err := toTFFeatures(d, names)
		if err != nil {
			log.Printf("Failed to convert %q: %v", d.FilePath, err)
			continue
		}
		if err := writeTFRecordExample(shardFile, example.New(features)); err != nil {
			return n, fmt.Errorf("failed to write example for %q: %v", d.FilePath, err)
		}
		n++
	}

	return n, saveTFRecordLabelMap(labelMapPath, names)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes names as a StringIntLabelMap in prototxt format to path. The id of
// each name is its class index plus one.
func saveTFRecordLabelMap(path string, names []string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create the label map file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	bw := bufio.NewWriter(file)
	for i, name := range names {
		if _, err := fmt.Fprintf(bw, "item {\n  name: %s\n  id: %d\n}\n", strconv.Quote(name), i+1); err != nil {
			return fmt.Errorf("failed to write the label map %q: %v", path, err)
		}
	}
	return bw.Flush()
}
