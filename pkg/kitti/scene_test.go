package kitti

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScene() Scene {
	return Scene{
		IDList:   []string{"001-0", "001-1"},
		Velodyne: VelodyneSeries{VelodyneDir: "velodyne"},
		Images: []ImageSeries{
			{
				ImageDir:      "image-front_camera",
				CalibDir:      "calib-front_camera",
				FileExtension: "jpg",
				CameraViewSetting: &CameraViewSettings{
					Fov:       1.5,
					Direction: 1.25,
					Position:  XYZ{X: 1, Y: 2, Z: 3},
				},
			},
			{ImageDir: "image-back_camera"},
		},
	}
}

func TestSceneEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleScene().Encode(&buf))

	assert.JSONEq(t, `{
		"id_list": ["001-0", "001-1"],
		"serieses": [
			{"type": "kitti_velodyne", "velodyne_dir": "velodyne"},
			{"type": "kitti_image", "image_dir": "image-front_camera", "calib_dir": "calib-front_camera",
			 "file_extension": "jpg",
			 "camera_view_setting": {"fov": 1.5, "direction": 1.25, "position": {"x": 1, "y": 2, "z": 3}}},
			{"type": "kitti_image", "image_dir": "image-back_camera", "file_extension": "png"}
		]
	}`, buf.String())
}

func TestSceneRoundTrip(t *testing.T) {
	dir := filepath.ToSlash(t.TempDir())
	path := filepath.Join(dir, SceneMetaFile)
	in := sampleScene()
	in.Labels = []LabelSeries{{LabelDir: "label", ImageDir: "image-front_camera", CalibDir: "calib-front_camera"}}
	require.NoError(t, in.WriteFile(path))

	got, err := ReadScene(path)
	require.NoError(t, err)
	assert.Equal(t, in.IDList, got.IDList)
	assert.Equal(t, dir+"/velodyne", got.Velodyne.VelodyneDir)
	require.Len(t, got.Images, 2)
	assert.Equal(t, dir+"/image-front_camera", got.Images[0].ImageDir)
	assert.Equal(t, dir+"/calib-front_camera", got.Images[0].CalibDir)
	assert.Equal(t, in.Images[0].CameraViewSetting, got.Images[0].CameraViewSetting)
	assert.Equal(t, "", got.Images[1].CalibDir)
	assert.Equal(t, DefaultImageExtension, got.Images[1].FileExtension)
	assert.Nil(t, got.Images[1].CameraViewSetting)
	require.Len(t, got.Labels, 1)
	assert.Equal(t, dir+"/label", got.Labels[0].LabelDir)
}

func TestDecodeSceneSkipsUnknownSeries(t *testing.T) {
	in := `{"id_list": ["0"], "serieses": [
		{"type": "kitti_velodyne", "velodyne_dir": "/data/velodyne"},
		{"type": "something_else", "dir": "x"},
		{"type": "kitti_image", "image_dir": "images"}
	]}`
	got, err := DecodeScene("/data/scene", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "/data/velodyne", got.Velodyne.VelodyneDir)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "/data/scene/images", got.Images[0].ImageDir)
	assert.Empty(t, got.Labels)
}

func TestDecodeSceneWithoutVelodyne(t *testing.T) {
	in := `{"id_list": ["0"], "serieses": [{"type": "kitti_image", "image_dir": "images"}]}`
	_, err := DecodeScene("/data", strings.NewReader(in))
	assert.Equal(t, ErrNoVelodyne, err)
}

func TestDecodeSceneInvalidJSON(t *testing.T) {
	_, err := DecodeScene("/data", strings.NewReader(`{"id_list": [`))
	assert.ErrorIs(t, err, ErrInvalidScene)
}

func TestDecodeSeries(t *testing.T) {
	s, err := DecodeSeries([]byte(`{"type": "kitti_label", "label_dir": "l", "image_dir": "i", "calib_dir": "c"}`))
	require.NoError(t, err)
	assert.Equal(t, LabelSeries{LabelDir: "l", ImageDir: "i", CalibDir: "c"}, s)
	assert.Equal(t, TypeLabel, s.Type())

	s, err = DecodeSeries([]byte(`{"type": "unknown"}`))
	require.NoError(t, err)
	assert.Nil(t, s)

	b, err := json.Marshal(VelodyneSeries{VelodyneDir: "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "kitti_velodyne", "velodyne_dir": "v"}`, string(b))
}
