package segconv

import (
	"bufio"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// filesByExtInDir returns the sorted paths of all regular files (or symlinks) with suffix ext
// found directly in dirPath. All files are returned if ext is empty.
func filesByExtInDir(dirPath, ext string) (files []string, err error) {
	dirInfo, err := os.Stat(dirPath)
	if err != nil || !dirInfo.IsDir() {
		return nil, fmt.Errorf("cannot read directory %q: %v", dirPath, err)
	}
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access %q: %v", dirPath, err)
	}
	defer closeWithErrCheck(dir, &err)

	files = make([]string, 0, 100)
	var fileList []os.FileInfo
	for fileList, err = dir.Readdir(100); len(fileList) > 0; fileList, err = dir.Readdir(100) {
		for _, file := range fileList {
			name := file.Name()
			if (!file.Mode().IsRegular() && (file.Mode()&os.ModeSymlink == 0)) ||
				!strings.HasSuffix(name, ext) {
				continue
			}
			files = append(files, filepath.Join(dirPath, name))
		}
	}
	if err != nil && err != io.EOF {
		log.Printf("Failed to access some files in %q: %v", dirPath, err)
	}

	// Readdir order is unspecified.
	sort.Strings(files)
	return files, nil
}

// subdirsInDir returns the sorted names of the directories directly in dirPath. Hidden
// directories are ignored.
func subdirsInDir(dirPath string) ([]string, error) {
	entries, err := ioutil.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %q: %v", dirPath, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

// splitPath splits the given file path into the dir name, the base name without extension and the
// extension (without the dot).
func splitPath(path string) (dir, baseNoExt, ext string, err error) {
	dir, file := filepath.Split(path)
	ext = filepath.Ext(file)
	if ext == "" {
		return "", "", "", fmt.Errorf("missing file extension in %q", path)
	}

	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = file[0 : len(file)-len(ext)]
	ext = ext[1:]

	return dir, baseNoExt, ext, nil
}

// fileStem returns the base name of path without its extension. Unlike splitPath it accepts
// names without an extension.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// mapFileNamesToExtensions maps the base names of the given file paths, with the file type
// extensions stripped off, to the file extension (without the dot).
func mapFileNamesToExtensions(filePaths []string) map[string]string {
	mapping := make(map[string]string, len(filePaths))
	for _, path := range filePaths {
		_, baseNoExt, ext, err := splitPath(path)
		if err != nil {
			log.Print(err)
			continue
		}
		mapping[baseNoExt] = ext
	}

	return mapping
}

// labelParserFn parses a label file given the label and image file paths.
type labelParserFn func(labelPath, imagePath string) (LabeledImage, error)

// parseLabelsWithOneToOneImages matches label files in labelDir, with file extension labelFileExt
// (e.g. ".txt") by file name to images in imageDir (with an arbitrary file extension). It then
// invokes parse on these path pairs.
//
// Returns the label data obtained by applying parse to all label files.
func parseLabelsWithOneToOneImages(labelDir, labelFileExt, imageDir string, parse labelParserFn) (
	[]LabeledImage, error) {

	labelFiles, err := filesByExtInDir(labelDir, labelFileExt)
	if err != nil {
		return nil, err
	}
	log.Printf("Parsing labels for %d files", len(labelFiles))

	imageFiles, err := filesByExtInDir(imageDir, "")
	if err != nil {
		return nil, err
	}
	imageNamesToExt := mapFileNamesToExtensions(imageFiles)

	data := make([]LabeledImage, 0, len(labelFiles))
	for _, labelPath := range labelFiles {
		_, baseNoExt, _, err := splitPath(labelPath)
		if err != nil {
			log.Printf("Error while parsing, skipping %q: %v", labelPath, err)
			continue
		}
		imageExt, found := imageNamesToExt[baseNoExt]
		if !found {
			log.Printf("No corresponding image file, skipping %q", labelPath)
			continue
		}
		imagePath := filepath.Join(imageDir, baseNoExt+"."+imageExt)

		fileData, err := parse(labelPath, imagePath)
		if err != nil {
			log.Printf("Error while parsing, skipping %q: %v", labelPath, err)
			continue
		}

		data = append(data, fileData)
	}

	return data, nil
}

// readLines returns a slice of lines read from the file at path.
func readLines(path string) (lines []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file %q: %v", path, err)
	}
	defer closeWithErrCheck(file, &err)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024) // Mask contours make long lines.
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %q as lines: %v", path, err)
	}

	return lines, nil
}

// readFile uses ioutil.ReadAll to read the file at path.
func readFile(path string) (data []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(f, &err)

	data, err = ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}

	return data, nil
}

// copyFile copies the regular file src to dst, replacing dst if it exists.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(in, &err)

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer closeWithErrCheck(out, &err)

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %q to %q: %v", src, dst, err)
	}
	return nil
}

// moveFile renames src to dst, falling back to copy and remove when a rename is not possible,
// e.g. across file systems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
