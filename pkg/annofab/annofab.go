// Package annofab builds annotation import files for the 3D point-cloud
// editor: cuboid and segment annotation details and label listings.
package annofab

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"github.com/mengseeker/kitticonv/pkg/pandaset"
)

var invalidIDChars = regexp.MustCompile(`[^0-9A-Za-z-_.]`)

// LabelID turns a dataset label into a label id. Characters an id cannot hold
// are replaced by "__".
func LabelID(label string) string {
	return invalidIDChars.ReplaceAllString(label, "__")
}

// HashCode is the 32-bit Java-style string hash seeded with 7.
func HashCode(s string) uint32 {
	var h uint32 = 7
	for _, c := range s {
		h = 31*h + uint32(c)
	}
	return h
}

// LabelColor derives a stable display color from a label name.
func LabelColor(label string) (r, g, b uint8) {
	h := HashCode(label)
	return uint8(h >> 16), uint8(h >> 8), uint8(h)
}

// InputDataID names the input data of frame index of a sequence. It matches
// the frame ids of the converted KITTI scene.
func InputDataID(sequenceID string, index int) string {
	return pandaset.FrameID(sequenceID, index)
}

// Detail is one annotation of an input data. Data holds the JSON encoded
// annotation body.
type Detail struct {
	AnnotationID string            `json:"annotation_id"`
	Label        string            `json:"label"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Data         string            `json:"data"`
}

type detailsFile struct {
	Details []Detail `json:"details"`
}

// WriteDetails writes {"details": [...]} to path.
func WriteDetails(path string, details []Detail) error {
	if details == nil {
		details = []Detail{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = json.NewEncoder(f).Encode(detailsFile{Details: details}); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

// ReadDetails reads a file written by WriteDetails.
func ReadDetails(path string) ([]Detail, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var df detailsFile
	if err = json.Unmarshal(b, &df); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return df.Details, nil
}

// WriteLabels writes the label_id,label_name CSV. With withColor a color
// column "(r,g,b)" derived from the label name is added.
func WriteLabels(w io.Writer, labels []string, withColor bool) error {
	cw := csv.NewWriter(w)
	header := []string{"label_id", "label_name"}
	if withColor {
		header = append(header, "color")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, l := range labels {
		row := []string{LabelID(l), l}
		if withColor {
			r, g, b := LabelColor(l)
			row = append(row, fmt.Sprintf("(%d,%d,%d)", r, g, b))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func marshalString(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}
