// Package flagutil expands command line list flags.
package flagutil

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// FilePrefix marks a list flag value naming a file with one value per line.
const FilePrefix = "file://"

// ExpandList returns values with every "file://path" entry replaced by the
// non-blank lines of path.
func ExpandList(values []string) ([]string, error) {
	var out []string
	for _, v := range values {
		path, ok := strings.CutPrefix(v, FilePrefix)
		if !ok {
			out = append(out, v)
			continue
		}
		lines, err := readLines(path)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "list file")
	}
	defer f.Close()
	var out []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		if line := strings.TrimSpace(s.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, errors.Wrapf(s.Err(), "read %s", path)
}
