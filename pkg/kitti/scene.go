package kitti

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SceneMetaFile is the name of the scene description written next to the series directories.
const SceneMetaFile = "scene.meta"

var (
	ErrNoVelodyne   = errors.New("scene has no kitti_velodyne series")
	ErrInvalidScene = errors.New("invalid scene")
)

// SeriesType tags a series in the scene description.
type SeriesType string

const (
	TypeVelodyne SeriesType = "kitti_velodyne"
	TypeImage    SeriesType = "kitti_image"
	TypeLabel    SeriesType = "kitti_label"
)

// Series is one of VelodyneSeries, ImageSeries or LabelSeries.
type Series interface {
	Type() SeriesType
	resolve(dir string) Series
}

// VelodyneSeries points at the directory of KITTI velodyne bin files.
type VelodyneSeries struct {
	VelodyneDir string `json:"velodyne_dir"`
}

func (VelodyneSeries) Type() SeriesType { return TypeVelodyne }

func (s VelodyneSeries) resolve(dir string) Series {
	s.VelodyneDir = resolvePath(dir, s.VelodyneDir)
	return s
}

func (s VelodyneSeries) MarshalJSON() ([]byte, error) {
	type plain VelodyneSeries
	return json.Marshal(struct {
		plain
		Type SeriesType `json:"type"`
	}{plain(s), TypeVelodyne})
}

// ImageSeries points at camera images and, optionally, their calibration files.
type ImageSeries struct {
	ImageDir          string              `json:"image_dir"`
	CalibDir          string              `json:"calib_dir,omitempty"`
	CameraViewSetting *CameraViewSettings `json:"camera_view_setting,omitempty"`
	DisplayName       string              `json:"display_name,omitempty"`
	FileExtension     string              `json:"file_extension"`
}

// DefaultImageExtension is used when an image series does not name one.
const DefaultImageExtension = "png"

func (ImageSeries) Type() SeriesType { return TypeImage }

func (s ImageSeries) resolve(dir string) Series {
	s.ImageDir = resolvePath(dir, s.ImageDir)
	if s.CalibDir != "" {
		s.CalibDir = resolvePath(dir, s.CalibDir)
	}
	return s
}

func (s ImageSeries) MarshalJSON() ([]byte, error) {
	type plain ImageSeries
	if s.FileExtension == "" {
		s.FileExtension = DefaultImageExtension
	}
	return json.Marshal(struct {
		plain
		Type SeriesType `json:"type"`
	}{plain(s), TypeImage})
}

func (s *ImageSeries) UnmarshalJSON(data []byte) error {
	type plain ImageSeries
	p := plain{FileExtension: DefaultImageExtension}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = ImageSeries(p)
	return nil
}

// LabelSeries points at KITTI label files and the images and calibrations they refer to.
type LabelSeries struct {
	LabelDir string `json:"label_dir"`
	ImageDir string `json:"image_dir"`
	CalibDir string `json:"calib_dir"`
}

func (LabelSeries) Type() SeriesType { return TypeLabel }

func (s LabelSeries) resolve(dir string) Series {
	s.LabelDir = resolvePath(dir, s.LabelDir)
	s.ImageDir = resolvePath(dir, s.ImageDir)
	s.CalibDir = resolvePath(dir, s.CalibDir)
	return s
}

func (s LabelSeries) MarshalJSON() ([]byte, error) {
	type plain LabelSeries
	return json.Marshal(struct {
		plain
		Type SeriesType `json:"type"`
	}{plain(s), TypeLabel})
}

// Scene is the extended KITTI scene description read by the annotation tool.
type Scene struct {
	IDList   []string
	Velodyne VelodyneSeries
	Images   []ImageSeries
	Labels   []LabelSeries
}

type jsonScene struct {
	IDList   []string          `json:"id_list"`
	Serieses []json.RawMessage `json:"serieses"`
}

// Serieses returns every series of the scene: velodyne first, then images, then labels.
func (s Scene) Serieses() []Series {
	out := []Series{s.Velodyne}
	for _, im := range s.Images {
		out = append(out, im)
	}
	for _, l := range s.Labels {
		out = append(out, l)
	}
	return out
}

// Encode writes the scene description as JSON.
func (s Scene) Encode(w io.Writer) error {
	js := jsonScene{IDList: s.IDList}
	if js.IDList == nil {
		js.IDList = []string{}
	}
	for _, se := range s.Serieses() {
		b, err := json.Marshal(se)
		if err != nil {
			return err
		}
		js.Serieses = append(js.Serieses, b)
	}
	return json.NewEncoder(w).Encode(js)
}

// WriteFile writes the scene description to path.
func (s Scene) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = s.Encode(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

// DecodeSeries decodes one series, dispatching on its "type" field. Unknown
// types yield a nil Series and no error.
func DecodeSeries(data []byte) (Series, error) {
	var tag struct {
		Type SeriesType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, errors.Wrap(ErrInvalidScene, err.Error())
	}
	switch tag.Type {
	case TypeVelodyne:
		var s VelodyneSeries
		err := json.Unmarshal(data, &s)
		return s, err
	case TypeImage:
		var s ImageSeries
		err := json.Unmarshal(data, &s)
		return s, err
	case TypeLabel:
		var s LabelSeries
		err := json.Unmarshal(data, &s)
		return s, err
	}
	return nil, nil
}

// DecodeScene reads a scene description. Directory fields are resolved
// against dir, the directory holding the description.
func DecodeScene(dir string, r io.Reader) (Scene, error) {
	var js jsonScene
	if err := json.NewDecoder(r).Decode(&js); err != nil {
		return Scene{}, errors.Wrap(ErrInvalidScene, err.Error())
	}

	scene := Scene{IDList: js.IDList}
	var hasVelodyne bool
	for _, raw := range js.Serieses {
		se, err := DecodeSeries(raw)
		if err != nil {
			return Scene{}, err
		}
		if se == nil {
			continue
		}
		switch v := se.resolve(dir).(type) {
		case VelodyneSeries:
			if !hasVelodyne {
				scene.Velodyne = v
				hasVelodyne = true
			}
		case ImageSeries:
			scene.Images = append(scene.Images, v)
		case LabelSeries:
			scene.Labels = append(scene.Labels, v)
		}
	}
	if !hasVelodyne {
		return Scene{}, ErrNoVelodyne
	}
	return scene, nil
}

// ReadScene reads the scene description at path.
func ReadScene(path string) (Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scene{}, err
	}
	defer f.Close()
	return DecodeScene(filepath.Dir(path), f)
}

func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(filepath.Join(dir, p))
}
