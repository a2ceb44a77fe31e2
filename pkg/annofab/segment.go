package annofab

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mengseeker/kitticonv/pkg/pandaset"
)

// SegmentData lists the indices of the points belonging to one segment.
type SegmentData struct {
	Points []int `json:"points"`
}

type SegmentRef struct {
	Kind    string `json:"kind"`
	DataURI string `json:"data_uri"`
	Version string `json:"version"`
}

// WriteSegments writes one segment file per class found in classes under
// taskDir/<inputDataID>/<annotation id>, and the details file
// taskDir/<inputDataID>.json referring to them. names maps class ids to labels.
func WriteSegments(taskDir, inputDataID string, classes []int, names map[int]string) ([]Detail, error) {
	order, points := pandaset.GroupByClass(classes)
	dataDir := filepath.Join(taskDir, inputDataID)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	details := make([]Detail, 0, len(order))
	for _, class := range order {
		label, ok := names[class]
		if !ok {
			return nil, errors.Errorf("class %d has no name", class)
		}
		id := uuid.NewString()
		b, err := json.Marshal(SegmentData{Points: points[class]})
		if err != nil {
			return nil, err
		}
		if err = os.WriteFile(filepath.Join(dataDir, id), b, 0o644); err != nil {
			return nil, err
		}
		data, err := marshalString(SegmentRef{Kind: "SEGMENT", DataURI: inputDataID + "/" + id, Version: "2"})
		if err != nil {
			return nil, err
		}
		details = append(details, Detail{AnnotationID: id, Label: label, Data: data})
	}
	return details, WriteDetails(filepath.Join(taskDir, inputDataID+".json"), details)
}
