package kitti

import (
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/mengseeker/kitticonv/pkg/pcd"
)

// FrameReport is the result of checking the files of one frame of a scene.
type FrameReport struct {
	ID     string `json:"id"`
	Points int    `json:"points"`
	// MissingImages lists the image directories without a file for the frame.
	MissingImages []string `json:"missing_images,omitempty"`
	// InvalidCalibrations lists the calibration files that are missing, do not
	// parse or whose Tr_velo_to_cam rotation is not proper.
	InvalidCalibrations []string `json:"invalid_calibrations,omitempty"`
	Error               string   `json:"error,omitempty"`
}

// OK reports whether every file of the frame is present and valid.
func (r FrameReport) OK() bool {
	return r.Error == "" && len(r.MissingImages) == 0 && len(r.InvalidCalibrations) == 0
}

const rotationTolerance = 1e-6

// CheckFrame checks the velodyne file, images and calibrations of frame id.
// Directories must already be resolved, as ReadScene does.
func (s Scene) CheckFrame(id string) FrameReport {
	r := FrameReport{ID: id}
	cloud, err := pcd.DecodeFile(filepath.Join(s.Velodyne.VelodyneDir, id+".bin"))
	if err != nil {
		r.Error = err.Error()
	} else {
		r.Points = cloud.Len()
	}
	for _, im := range s.Images {
		if _, err := os.Stat(filepath.Join(im.ImageDir, id+"."+im.FileExtension)); err != nil {
			r.MissingImages = append(r.MissingImages, im.ImageDir)
		}
		if im.CalibDir == "" {
			continue
		}
		calib := filepath.Join(im.CalibDir, id+".txt")
		if !validCalibration(calib) {
			r.InvalidCalibrations = append(r.InvalidCalibrations, calib)
		}
	}
	return r
}

func validCalibration(path string) bool {
	c, err := ReadCalibration(path)
	if err != nil {
		return false
	}
	return math.Abs(mat.Det(c.TrVeloToCam.Slice(0, 3, 0, 3))-1) < rotationTolerance
}
