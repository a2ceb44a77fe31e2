package pcd

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
)

const (
	BinPointDataLen = 4 * 4
)

var (
	ErrInvalidDataFormat = errors.New("invalid data")
)

// Bin is a KITTI velodyne point cloud: float32 x, y, z, intensity per
// point, little endian, no header.
type Bin struct {
	PointCloud
}

func DecodeBin(r io.Reader) (bin *Bin, err error) {
	bin = &Bin{}
	br := bufio.NewReader(r)
	var data = make([]byte, BinPointDataLen)
	for {
		_, err = io.ReadFull(br, data)
		if err != nil {
			if err == io.EOF {
				err = nil
				break
			}
			if err == io.ErrUnexpectedEOF {
				err = ErrInvalidDataFormat
			}
			return
		}
		bin.AddPoint(Point{
			X: math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(data[4:8])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(data[8:12])),
			I: math.Float32frombits(binary.LittleEndian.Uint32(data[12:16])),
		})
	}
	return
}

func (bin *Bin) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var data = make([]byte, BinPointDataLen)
	for _, p := range bin.Points {
		binary.LittleEndian.PutUint32(data[0:4], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(data[4:8], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(data[8:12], math.Float32bits(p.Z))
		binary.LittleEndian.PutUint32(data[12:16], math.Float32bits(p.I))
		if _, err := bw.Write(data); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the bin file at path, creating parent directories.
func (bin *Bin) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = bin.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
