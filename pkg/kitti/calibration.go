package kitti

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/mengseeker/kitticonv/pkg/pose"
)

var (
	ErrInvalidIntrinsics       = errors.Wrap(pose.ErrPrecondition, "invalid camera intrinsics")
	ErrMissingCalibrationEntry = errors.Wrap(pose.ErrPrecondition, "missing calibration entry")
	ErrInvalidCalibration      = errors.New("invalid calibration format")
)

// Calibration file labels, in file order.
const (
	LabelP2          = "P2"
	LabelR0Rect      = "R0_rect"
	LabelTrVeloToCam = "Tr_velo_to_cam"
)

// CameraIntrinsics are the pinhole parameters of a camera.
type CameraIntrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// Validate rejects non-finite values and non-positive focal lengths.
func (c CameraIntrinsics) Validate() error {
	for _, v := range []float64{c.Fx, c.Fy, c.Cx, c.Cy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidIntrinsics, "%+v", c)
		}
	}
	if c.Fx <= 0 || c.Fy <= 0 {
		return errors.Wrapf(ErrInvalidIntrinsics, "focal length must be positive: %+v", c)
	}
	return nil
}

// Matrix returns the 3x3 camera matrix [[fx 0 cx] [0 fy cy] [0 0 1]].
func (c CameraIntrinsics) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		c.Fx, 0, c.Cx,
		0, c.Fy, c.Cy,
		0, 0, 1,
	})
}

// Calibration is the content of one KITTI calib file.
type Calibration struct {
	// P2 is the 3x4 projection matrix: camera matrix plus a zero column.
	P2 *mat.Dense
	// R0Rect is always the 3x3 identity; no rectification is modelled.
	R0Rect *mat.Dense
	// TrVeloToCam maps points in the point-cloud frame into the camera frame (3x4).
	TrVeloToCam *mat.Dense
}

// NewCalibration builds the calibration of a camera for one frame. cameraPose
// and referencePose are the camera and point-cloud sensor poses in a shared
// world frame.
func NewCalibration(intrinsics CameraIntrinsics, cameraPose, referencePose pose.Pose) (Calibration, error) {
	if err := intrinsics.Validate(); err != nil {
		return Calibration{}, err
	}

	p2 := mat.NewDense(3, 4, nil)
	p2.Slice(0, 3, 0, 3).(*mat.Dense).Copy(intrinsics.Matrix())

	r0 := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		r0.Set(i, i, 1)
	}

	// reference -> world -> camera
	veloToCam := cameraPose.Inverse().Mul(referencePose).Matrix()
	tr := mat.DenseCopyOf(veloToCam.Slice(0, 3, 0, 4))

	return Calibration{P2: p2, R0Rect: r0, TrVeloToCam: tr}, nil
}

// Encode writes the calibration in the KITTI text layout, one
// "<Label>: v0 v1 ..." line per matrix, flattened row-major.
func (c Calibration) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range []struct {
		label string
		m     *mat.Dense
	}{
		{LabelP2, c.P2},
		{LabelR0Rect, c.R0Rect},
		{LabelTrVeloToCam, c.TrVeloToCam},
	} {
		bw.WriteString(e.label)
		bw.WriteString(":")
		for _, v := range flatten(e.m) {
			bw.WriteString(" ")
			bw.WriteString(FormatFloat(v))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// WriteFile writes the calibration to path, creating parent directories.
func (c Calibration) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = c.Encode(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

// ParseCalibration reads a calibration written by Encode. Unknown labels such
// as P0 or Tr_imu_to_velo are ignored.
func ParseCalibration(r io.Reader) (Calibration, error) {
	entries := map[string][]float64{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		label, values, ok := strings.Cut(line, ":")
		if !ok {
			return Calibration{}, errors.Wrapf(ErrInvalidCalibration, "line %q", line)
		}
		var fs []float64
		for _, s := range strings.Fields(values) {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Calibration{}, errors.Wrapf(ErrInvalidCalibration, "%s: %v", label, err)
			}
			fs = append(fs, v)
		}
		entries[strings.TrimSpace(label)] = fs
	}
	if err := sc.Err(); err != nil {
		return Calibration{}, err
	}

	var c Calibration
	var err error
	if c.P2, err = entryMatrix(entries, LabelP2, 3, 4); err != nil {
		return Calibration{}, err
	}
	if c.R0Rect, err = entryMatrix(entries, LabelR0Rect, 3, 3); err != nil {
		return Calibration{}, err
	}
	if c.TrVeloToCam, err = entryMatrix(entries, LabelTrVeloToCam, 3, 4); err != nil {
		return Calibration{}, err
	}
	return c, nil
}

// ReadCalibration parses the calibration file at path.
func ReadCalibration(path string) (Calibration, error) {
	f, err := os.Open(path)
	if err != nil {
		return Calibration{}, err
	}
	defer f.Close()
	c, err := ParseCalibration(f)
	if err != nil {
		return Calibration{}, errors.Wrapf(err, "read %s", path)
	}
	return c, nil
}

func entryMatrix(entries map[string][]float64, label string, r, c int) (*mat.Dense, error) {
	vs, ok := entries[label]
	if !ok {
		return nil, errors.Wrap(ErrMissingCalibrationEntry, label)
	}
	if len(vs) != r*c {
		return nil, errors.Wrapf(ErrInvalidCalibration, "%s has %d values, want %d", label, len(vs), r*c)
	}
	return mat.NewDense(r, c, vs), nil
}

func flatten(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
