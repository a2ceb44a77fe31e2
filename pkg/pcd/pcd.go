package pcd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/seqsense/pcgol/pc"
	lzf "github.com/zhuyie/golzf"
)

var (
	ErrUnsupportPcdVersion   = errors.New("unsupport pcd version")
	ErrUnsupportPcdFieldSize = errors.New("unsupport pcd field size")
	ErrUnsupportPcdFieldType = errors.New("unsupport pcd field type")
	ErrUnsupportPcdDataType  = errors.New("unsupport pcd data type")
	ErrInvalidPcdFormat      = errors.New("invalid pcd format")
)

type Pcd struct {
	PointCloud
}

func DecodePcd(r io.Reader) (pcd *Pcd, err error) {
	bio := bufio.NewReader(r)
	var version string
	for {
		version, err = bio.ReadString('\n')
		if err != nil {
			return
		}
		if !strings.HasPrefix(version, "#") {
			break
		}
	}

	if !strings.HasPrefix(version, "VERSION 0.7") {
		return nil, ErrUnsupportPcdVersion
	}

	var headers = map[string][]string{}
	for i := 0; i < 9; i++ {
		header, err := bio.ReadString('\n')
		if err != nil {
			return nil, err
		}
		h := strings.Split(strings.TrimSuffix(header, "\n"), " ")
		if len(h) < 1 {
			return nil, ErrInvalidPcdFormat
		}
		headers[h[0]] = h[1:]
	}

	var fields = map[string]int{}
	for i, f := range headers["FIELDS"] {
		fields[f] = i
	}
	sizes, err := getIntHeaders(headers, "SIZE")
	if err != nil {
		return
	}
	if len(fields) != len(sizes) {
		return nil, ErrInvalidPcdFormat
	}

	types := headers["TYPE"]
	if len(fields) != len(types) {
		return nil, ErrInvalidPcdFormat
	}

	counts, err := getIntHeaders(headers, "COUNT")
	if err != nil {
		return
	}
	if len(fields) != len(counts) {
		return nil, ErrInvalidPcdFormat
	}

	if len(headers["DATA"]) != 1 {
		return nil, ErrInvalidPcdFormat
	}
	dataType := strings.ToLower(headers["DATA"][0])

	if len(headers["WIDTH"]) != 1 || len(headers["HEIGHT"]) != 1 {
		return nil, ErrInvalidPcdFormat
	}
	width, werr := strconv.Atoi(headers["WIDTH"][0])
	height, herr := strconv.Atoi(headers["HEIGHT"][0])
	if werr != nil || herr != nil || width < 0 || height < 0 {
		return nil, ErrInvalidPcdFormat
	}

	pcd = &Pcd{
		PointCloud: PointCloud{
			Points: []Point{},
		},
	}
	if dataType == "binary" {
		err = pcd.LoadBinPoints(bio, width, height, fields, sizes, counts, types)
		if err != nil {
			return
		}
	} else if dataType == "ascii" {
		err = pcd.LoadAsciiPoints(bio, fields, sizes, counts, types)
		if err != nil {
			return
		}
	} else if dataType == "binary_compressed" {
		err = pcd.LoadBinCompressedPoints(bio, width, height, fields, sizes, counts, types)
		if err != nil {
			return
		}
	} else {
		return nil, ErrUnsupportPcdDataType
	}
	if pcd.PointCount() != width*height {
		return nil, ErrInvalidPcdFormat
	}
	return
}

const (
	BinaryCompressedSize = 8
)

func (pcd *Pcd) LoadBinCompressedPoints(r io.Reader, width, height int, fields map[string]int, sizes, counts []int, types []string) (err error) {
	compressedSizesRaw := make([]byte, BinaryCompressedSize)
	n, err := io.ReadFull(r, compressedSizesRaw)
	if err != nil {
		return
	}
	if n != BinaryCompressedSize {
		return ErrInvalidPcdFormat
	}
	compressedSize := binary.LittleEndian.Uint32(compressedSizesRaw[:4])
	uncompressedSize := binary.LittleEndian.Uint32(compressedSizesRaw[4:])
	// 计算单点数据大小
	var pointSize int
	for i := range sizes {
		pointSize += sizes[i] * counts[i]
	}
	if uncompressedSize != uint32(width*height*pointSize) {
		return ErrInvalidPcdFormat
	}

	raw := make([]byte, compressedSize)
	_, err = io.ReadFull(r, raw)
	if err != nil {
		return
	}
	uncompressed := make([]byte, uncompressedSize)

	n, err = lzf.Decompress(raw, uncompressed)
	if err != nil {
		return
	}
	if n != int(uncompressedSize) {
		return ErrInvalidPcdFormat
	}

	// binary_compressed stores each field contiguously; interleave back
	// into per-point records.
	points := width * height
	interleaved := make([]byte, len(uncompressed))
	var fieldOffset, pointOffset int
	for i := range sizes {
		fw := sizes[i] * counts[i]
		for p := 0; p < points; p++ {
			copy(interleaved[p*pointSize+pointOffset:], uncompressed[fieldOffset+p*fw:fieldOffset+(p+1)*fw])
		}
		fieldOffset += fw * points
		pointOffset += fw
	}

	return pcd.LoadBinPoints(bytes.NewReader(interleaved), width, height, fields, sizes, counts, types)
}

func (pcd *Pcd) LoadBinPoints(r io.Reader, width, height int, fields map[string]int, sizes, counts []int, types []string) (err error) {
	if err = checkfield(fields, sizes, counts, types, "x"); err != nil {
		return
	}
	if err = checkfield(fields, sizes, counts, types, "y"); err != nil {
		return
	}
	if err = checkfield(fields, sizes, counts, types, "z"); err != nil {
		return
	}

	xi, xb, xe := getfieldIndexAndOffset(fields, sizes, counts, "x")
	yi, yb, ye := getfieldIndexAndOffset(fields, sizes, counts, "y")
	zi, zb, ze := getfieldIndexAndOffset(fields, sizes, counts, "z")
	if !(xi >= 0 && yi >= 0 && zi >= 0) {
		return ErrInvalidPcdFormat
	}
	iname := intensityField(fields, sizes, types)
	ii, ib, ie := getfieldIndexAndOffset(fields, sizes, counts, iname)

	var w int
	for i := range counts {
		w += counts[i] * sizes[i]
	}
	bs := make([]byte, w)
	for n := 0; n < width*height; n++ {
		_, err = io.ReadFull(r, bs)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return ErrInvalidPcdFormat
			}
			return err
		}

		pt := Point{
			X: math.Float32frombits(binary.LittleEndian.Uint32(bs[xb:xe])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(bs[yb:ye])),
			Z: math.Float32frombits(binary.LittleEndian.Uint32(bs[zb:ze])),
		}
		if ii >= 0 {
			pt.I = math.Float32frombits(binary.LittleEndian.Uint32(bs[ib:ie]))
		}
		pcd.AddPoint(pt)
	}

	return nil
}

func (pcd *Pcd) LoadAsciiPoints(r *bufio.Reader, fields map[string]int, sizes, counts []int, types []string) error {
	var fs []float64
	var err error
	xi, _, _ := getfieldIndexAndOffset(fields, sizes, counts, "x")
	yi, _, _ := getfieldIndexAndOffset(fields, sizes, counts, "y")
	zi, _, _ := getfieldIndexAndOffset(fields, sizes, counts, "z")
	if !(xi >= 0 && yi >= 0 && zi >= 0) {
		return ErrInvalidPcdFormat
	}
	ii, _, _ := getfieldIndexAndOffset(fields, sizes, counts, intensityField(fields, sizes, types))
	var l int
	for _, i := range counts {
		l += i
	}
	fs = make([]float64, l)
	for {
		fs = fs[:0]
		err = AsciiGetFloats(r, &fs)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if len(fs) == 0 {
			continue
		}
		if len(fs) != l {
			return ErrInvalidPcdFormat
		}

		pt := Point{
			X: float32(fs[xi]),
			Y: float32(fs[yi]),
			Z: float32(fs[zi]),
		}
		if ii >= 0 {
			pt.I = float32(fs[ii])
		}
		pcd.AddPoint(pt)
	}
	return nil
}

// Encode writes a binary PCD with fields x y z intensity.
func (pcd *Pcd) Encode(w io.Writer) error {
	n := len(pcd.Points)
	data := make([]byte, 0, n*BinPointDataLen)
	buf := bytes.NewBuffer(data)
	for _, p := range pcd.Points {
		binary.Write(buf, binary.LittleEndian, [4]float32{p.X, p.Y, p.Z, p.I})
	}
	return pc.Marshal(&pc.PointCloud{
		PointCloudHeader: pc.PointCloudHeader{
			Version:   0.7,
			Fields:    []string{"x", "y", "z", "intensity"},
			Size:      []int{4, 4, 4, 4},
			Type:      []string{"F", "F", "F", "F"},
			Count:     []int{1, 1, 1, 1},
			Width:     n,
			Height:    1,
			Viewpoint: []float32{0, 0, 0, 1, 0, 0, 0},
		},
		Points: n,
		Data:   buf.Bytes(),
	}, w)
}

func (pcd *Pcd) PointCount() int {
	return len(pcd.Points)
}

// intensityField returns the name of the float32 intensity field, or "" if
// the cloud has none.
func intensityField(fields map[string]int, sizes []int, types []string) string {
	for _, name := range []string{"intensity", "i"} {
		if i, ok := fields[name]; ok && sizes[i] == 4 && types[i] == "F" {
			return name
		}
	}
	return ""
}

func getIntHeaders(headers map[string][]string, field string) ([]int, error) {
	vals := []int{}
	for _, v := range headers[field] {
		vi, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid int field %s", field)
		}
		vals = append(vals, vi)
	}
	return vals, nil
}

func checkfield(fields map[string]int, sizes, counts []int, types []string, field string) error {
	i, ok := fields[field]
	if !ok {
		return ErrInvalidPcdFormat
	}
	if sizes[i] != 4 {
		return ErrUnsupportPcdFieldSize
	}
	if types[i] != "F" {
		return ErrUnsupportPcdFieldType
	}
	return nil
}

func getfieldIndexAndOffset(fields map[string]int, sizes, counts []int, field string) (idx, begin, end int) {
	idx = -1
	id, ok := fields[field]
	if !ok {
		return
	}
	idx = 0
	for i := 0; i < id; i++ {
		idx += counts[i]
		begin += sizes[i] * counts[i]
	}
	end = begin + sizes[id]*counts[id]
	return
}

func AsciiGetFloats(r *bufio.Reader, fs *[]float64) (err error) {
	line, _, err := r.ReadLine()
	if err != nil {
		return
	}
	var v float64
	for _, r := range strings.Fields(string(line)) {
		v, err = strconv.ParseFloat(r, 64)
		if err != nil {
			return
		}
		*fs = append(*fs, v)
	}
	return
}
