package dgp

import (
	"archive/zip"
	"io"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio/npy"

	"github.com/mengseeker/kitticonv/pkg/pcd"
)

var ErrInvalidNpy = errors.New("invalid npy array")

// Array is a two dimensional float array read from a .npy file.
type Array struct {
	Rows, Cols int
	Data       []float64
}

func (a *Array) At(i, j int) float64 {
	return a.Data[i*a.Cols+j]
}

// ReadNpy decodes a float32 or float64 array with one or two dimensions.
// size is the length of the encoded array in bytes; a header announcing more
// data than that is rejected before anything is allocated.
func ReadNpy(r io.Reader, size int64) (*Array, error) {
	nr, err := npy.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidNpy, err.Error())
	}
	descr := nr.Header.Descr

	var itemSize int64
	switch {
	case strings.HasSuffix(descr.Type, "f4"):
		itemSize = 4
	case strings.HasSuffix(descr.Type, "f8"):
		itemSize = 8
	default:
		return nil, errors.Wrapf(ErrInvalidNpy, "dtype %s", descr.Type)
	}

	a := &Array{}
	switch len(descr.Shape) {
	case 1:
		a.Rows, a.Cols = descr.Shape[0], 1
	case 2:
		a.Rows, a.Cols = descr.Shape[0], descr.Shape[1]
	default:
		return nil, errors.Wrapf(ErrInvalidNpy, "shape %v", descr.Shape)
	}
	if err = checkShape(a.Rows, a.Cols, itemSize, size); err != nil {
		return nil, err
	}

	if itemSize == 4 {
		var data []float32
		if err = nr.Read(&data); err != nil {
			return nil, errors.Wrap(ErrInvalidNpy, err.Error())
		}
		a.Data = make([]float64, len(data))
		for i, v := range data {
			a.Data[i] = float64(v)
		}
	} else {
		if err = nr.Read(&a.Data); err != nil {
			return nil, errors.Wrap(ErrInvalidNpy, err.Error())
		}
	}
	if len(a.Data) != a.Rows*a.Cols {
		return nil, errors.Wrapf(ErrInvalidNpy, "%d values for shape %v", len(a.Data), descr.Shape)
	}
	if descr.Fortran && a.Cols > 1 {
		a.Data = transpose(a.Data, a.Rows, a.Cols)
	}
	return a, nil
}

// checkShape rejects negative dimensions and arrays whose data cannot fit in
// size bytes.
func checkShape(rows, cols int, itemSize, size int64) error {
	if rows < 0 || cols < 0 {
		return errors.Wrapf(ErrInvalidNpy, "shape (%d, %d)", rows, cols)
	}
	if cols != 0 && int64(rows) > math.MaxInt64/itemSize/int64(cols) {
		return errors.Wrapf(ErrInvalidNpy, "shape (%d, %d) overflows", rows, cols)
	}
	if n := int64(rows) * int64(cols) * itemSize; n > size {
		return errors.Wrapf(ErrInvalidNpy, "shape (%d, %d) needs %d bytes, have %d", rows, cols, n, size)
	}
	return nil
}

// transpose turns column-major data into row-major.
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = data[j*rows+i]
		}
	}
	return out
}

// ReadNpz reads the first array stored in the .npz archive at path.
func ReadNpz(path string) (*Array, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if !strings.HasSuffix(f.Name, ".npy") {
			continue
		}
		if f.UncompressedSize64 > math.MaxInt64 {
			return nil, errors.Wrapf(ErrInvalidNpy, "%s: entry too large", f.Name)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return ReadNpy(rc, int64(f.UncompressedSize64))
	}
	return nil, errors.Wrapf(ErrInvalidNpy, "%s holds no array", path)
}

// ReadPointCloud loads the points of a point cloud datum. Columns are picked
// by point_format; intensity is zero when the format has none.
func (x *Index) ReadPointCloud(p *PointCloud) (*pcd.PointCloud, error) {
	col := map[string]int{}
	for i, c := range p.PointFormat {
		col[c] = i
	}
	xi, okx := col[ChannelX]
	yi, oky := col[ChannelY]
	zi, okz := col[ChannelZ]
	if !(okx && oky && okz) {
		return nil, errors.Errorf("point_format %v has no X Y Z", p.PointFormat)
	}
	ii, hasI := col[ChannelIntensity]

	a, err := ReadNpz(x.Path(p.Filename))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", p.Filename)
	}
	if a.Cols < len(p.PointFormat) {
		return nil, errors.Wrapf(ErrInvalidNpy, "%d columns for point_format %v", a.Cols, p.PointFormat)
	}
	cloud := &pcd.PointCloud{Points: make([]pcd.Point, 0, a.Rows)}
	for r := 0; r < a.Rows; r++ {
		pt := pcd.Point{
			X: float32(a.At(r, xi)),
			Y: float32(a.At(r, yi)),
			Z: float32(a.At(r, zi)),
		}
		if hasI {
			pt.I = float32(a.At(r, ii))
		}
		cloud.AddPoint(pt)
	}
	return cloud, nil
}
