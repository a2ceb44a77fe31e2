package dgp

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/mengseeker/kitticonv/pkg/pose"
)

var (
	ErrCalibrationNotFound = fmt.Errorf("%w: calibration not found", pose.ErrPrecondition)
	ErrNoPointCloud        = errors.New("no point cloud datum")
)

// Index answers datum, sample and calibration lookups on a dataset. The
// lookup tables are built once by NewIndex; an Index is read-only afterwards
// and safe for concurrent use.
type Index struct {
	Dataset *Dataset
	// Dir is the directory holding dataset.json; file names are relative to it.
	Dir string

	data    map[string]*Datum
	samples map[string]*Sample
}

func NewIndex(ds *Dataset, dir string) *Index {
	x := &Index{
		Dataset: ds,
		Dir:     dir,
		data:    make(map[string]*Datum, len(ds.Data)),
		samples: map[string]*Sample{},
	}
	for i := range ds.Data {
		x.data[ds.Data[i].Key] = &ds.Data[i]
	}
	for _, split := range ds.SceneSplits {
		for i := range split.Scenes {
			for j := range split.Scenes[i].Samples {
				s := &split.Scenes[i].Samples[j]
				x.samples[s.ID.Name] = s
			}
		}
	}
	return x
}

// Load reads dataset.json at path and indexes it.
func Load(path string) (*Index, error) {
	ds, err := ReadDataset(path)
	if err != nil {
		return nil, err
	}
	return NewIndex(ds, filepath.Dir(path)), nil
}

func (x *Index) Datum(key string) (*Datum, bool) {
	d, ok := x.data[key]
	return d, ok
}

func (x *Index) Sample(name string) (*Sample, bool) {
	s, ok := x.samples[name]
	return s, ok
}

// SplitKeys returns the scene split keys in ascending order.
func (x *Index) SplitKeys() []string {
	keys := make([]string, 0, len(x.Dataset.SceneSplits))
	for k := range x.Dataset.SceneSplits {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// FirstScenes returns the scenes of the lowest numbered split.
func (x *Index) FirstScenes() []Scene {
	keys := x.SplitKeys()
	if len(keys) == 0 {
		return nil
	}
	return x.Dataset.SceneSplits[keys[0]].Scenes
}

// PointCloudDatum returns the first point cloud datum among keys.
func (x *Index) PointCloudDatum(keys []string) (*Datum, error) {
	for _, k := range keys {
		if d, ok := x.data[k]; ok && d.Datum.PointCloud != nil {
			return d, nil
		}
	}
	return nil, errors.Wrapf(ErrNoPointCloud, "datum keys %v", keys)
}

// ImageData returns the image datums among keys, in key order.
func (x *Index) ImageData(keys []string) []*Datum {
	var out []*Datum
	for _, k := range keys {
		if d, ok := x.data[k]; ok && d.Datum.Image != nil {
			out = append(out, d)
		}
	}
	return out
}

// ImageDatum returns the image datum among keys whose id name is name.
func (x *Index) ImageDatum(keys []string, name string) (*Datum, bool) {
	for _, d := range x.ImageData(keys) {
		if d.ID.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Calibration returns the extrinsics and intrinsics of the sensor name in the
// calibration entry key.
func (x *Index) Calibration(key, name string) (Pose, CameraIntrinsics, error) {
	c, ok := x.Dataset.CalibrationTable[key]
	if !ok {
		return Pose{}, CameraIntrinsics{}, errors.Wrapf(ErrCalibrationNotFound, "calibration key %q", key)
	}
	for i, n := range c.Names {
		if n != name {
			continue
		}
		if i >= len(c.Extrinsics) || i >= len(c.Intrinsics) {
			break
		}
		return c.Extrinsics[i], c.Intrinsics[i], nil
	}
	return Pose{}, CameraIntrinsics{}, errors.Wrapf(ErrCalibrationNotFound, "%q not in %v of calibration %q", name, c.Names, key)
}

// Path resolves a file name of the dataset.
func (x *Index) Path(filename string) string {
	return filepath.Join(x.Dir, filename)
}
