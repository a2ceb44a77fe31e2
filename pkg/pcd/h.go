package pcd

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupportPointCloudFileType = errors.New("unsupport pointCloud fileType")
)

// DecodeFile reads a point cloud from a .bin (KITTI velodyne) or .pcd file.
func DecodeFile(sourceFile string) (*PointCloud, error) {
	f, err := os.Open(sourceFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(sourceFile)) {
	case ".bin":
		bin, err := DecodeBin(f)
		if err != nil {
			return nil, err
		}
		return &bin.PointCloud, nil
	case ".pcd":
		p, err := DecodePcd(f)
		if err != nil {
			return nil, err
		}
		return &p.PointCloud, nil
	default:
		return nil, ErrUnsupportPointCloudFileType
	}
}

func TransFileToPcd(sourceFile string, w io.Writer) error {
	pc, err := DecodeFile(sourceFile)
	if err != nil {
		return err
	}
	return pc.ToPcd().Encode(w)
}

// Point is one lidar return. I is the intensity (KITTI reflectance).
type Point struct {
	X, Y, Z float32
	I       float32
}

type PointCloud struct {
	Points []Point
}

func (p *PointCloud) AddPoint(pt Point) {
	p.Points = append(p.Points, pt)
}

func (p *PointCloud) Len() int {
	return len(p.Points)
}

// Transform returns a copy of the cloud with every coordinate mapped through
// fn. Intensities are kept. Coordinates are transformed in float64.
func (p *PointCloud) Transform(fn func(x, y, z float64) (float64, float64, float64)) *PointCloud {
	out := &PointCloud{Points: make([]Point, len(p.Points))}
	for i, pt := range p.Points {
		x, y, z := fn(float64(pt.X), float64(pt.Y), float64(pt.Z))
		out.Points[i] = Point{X: float32(x), Y: float32(y), Z: float32(z), I: pt.I}
	}
	return out
}

func (p *PointCloud) ToPcd() *Pcd {
	return &Pcd{PointCloud: *p}
}

func (p *PointCloud) ToBin() *Bin {
	return &Bin{PointCloud: *p}
}
