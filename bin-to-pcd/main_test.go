package main

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mengseeker/kitticonv/pkg/pcd"
)

var points = []pcd.Point{{X: 1, Y: 2, Z: 3, I: 0.5}, {X: -1, Y: 0, Z: 0.25, I: 1}}

func TestTransDirBinToPcd(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "pcd")
	c := &pcd.PointCloud{Points: points}
	require.NoError(t, c.ToBin().WriteFile(filepath.Join(in, "000.bin")))
	require.NoError(t, os.WriteFile(filepath.Join(in, "readme.txt"), nil, 0o644))

	require.NoError(t, TransDirBinToPcd(in, out, zap.NewNop().Sugar()))
	got, err := pcd.DecodeFile(filepath.Join(out, "000.pcd"))
	require.NoError(t, err)
	assert.Equal(t, points, got.Points)
	assert.NoFileExists(t, filepath.Join(out, "readme.pcd"))
}

func TestTransZipFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "frames.zip")
	f, err := os.Create(in)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("velodyne/000.bin")
	require.NoError(t, err)
	require.NoError(t, (&pcd.PointCloud{Points: points}).ToBin().Encode(w))
	w, err = zw.Create("scene.meta")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"id_list": []}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	out := zipOutName(in)
	assert.Equal(t, filepath.Join(dir, "frames-pcd.zip"), out)
	require.NoError(t, TransZipFile(in, out, zap.NewNop().Sugar()))

	zr, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer zr.Close()
	require.Len(t, zr.File, 2)
	assert.Equal(t, "velodyne/000.pcd", zr.File[0].Name)
	r, err := zr.File[0].Open()
	require.NoError(t, err)
	p, err := pcd.DecodePcd(r)
	r.Close()
	require.NoError(t, err)
	assert.Equal(t, points, p.Points)

	r, err = zr.File[1].Open()
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	r.Close()
	require.NoError(t, err)
	assert.Equal(t, `{"id_list": []}`, string(b))

	assert.Error(t, TransZipFile(in, in, zap.NewNop().Sugar()))
}
