// Package dgp reads the JSON form of a DGP dataset: datums, scenes with their
// samples, and the calibration table.
package dgp

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mengseeker/kitticonv/pkg/kitti"
	"github.com/mengseeker/kitticonv/pkg/pose"
)

type Dataset struct {
	Metadata         map[string]interface{}      `json:"metadata,omitempty"`
	Data             []Datum                     `json:"data"`
	SceneSplits      map[string]SceneSplit       `json:"scene_splits"`
	CalibrationTable map[string]CalibrationEntry `json:"calibration_table"`
}

type SceneSplit struct {
	Scenes []Scene `json:"scenes"`
}

type Scene struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Samples     []Sample `json:"samples"`
}

type DatumID struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp,omitempty"`
	Index     string `json:"index,omitempty"`
}

type Sample struct {
	ID             DatumID  `json:"id"`
	DatumKeys      []string `json:"datum_keys"`
	CalibrationKey string   `json:"calibration_key"`
}

type Datum struct {
	ID    DatumID    `json:"id"`
	Key   string     `json:"key"`
	Datum DatumValue `json:"datum"`
}

// DatumValue holds exactly one of Image or PointCloud.
type DatumValue struct {
	Image      *Image      `json:"image,omitempty"`
	PointCloud *PointCloud `json:"point_cloud,omitempty"`
}

type Image struct {
	Filename    string            `json:"filename"`
	Height      int               `json:"height,omitempty"`
	Width       int               `json:"width,omitempty"`
	Channels    int               `json:"channels,omitempty"`
	Pose        Pose              `json:"pose"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Point cloud channels as named in point_format.
const (
	ChannelX         = "X"
	ChannelY         = "Y"
	ChannelZ         = "Z"
	ChannelIntensity = "INTENSITY"
)

type PointCloud struct {
	Filename    string            `json:"filename"`
	PointFormat []string          `json:"point_format"`
	Pose        Pose              `json:"pose"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quaternion struct {
	QX float64 `json:"qx"`
	QY float64 `json:"qy"`
	QZ float64 `json:"qz"`
	QW float64 `json:"qw"`
}

type Pose struct {
	Translation Vector3    `json:"translation"`
	Rotation    Quaternion `json:"rotation"`
}

// Pose converts p to a rigid transform. A zero rotation, as written for
// omitted fields, is read as the identity.
func (p Pose) Pose() pose.Pose {
	q := pose.Quaternion(p.Rotation.QW, p.Rotation.QX, p.Rotation.QY, p.Rotation.QZ)
	if q == (pose.Quaternion(0, 0, 0, 0)) {
		q = pose.IdentityQuaternion
	}
	return pose.New(q, r3.Vec{X: p.Translation.X, Y: p.Translation.Y, Z: p.Translation.Z})
}

type CameraIntrinsics struct {
	Fx   float64 `json:"fx"`
	Fy   float64 `json:"fy"`
	Cx   float64 `json:"cx"`
	Cy   float64 `json:"cy"`
	Skew float64 `json:"skew,omitempty"`
}

func (c CameraIntrinsics) Intrinsics() kitti.CameraIntrinsics {
	return kitti.CameraIntrinsics{Fx: c.Fx, Fy: c.Fy, Cx: c.Cx, Cy: c.Cy}
}

// CalibrationEntry lists the extrinsics and intrinsics of every sensor, in
// the order of Names.
type CalibrationEntry struct {
	Names      []string           `json:"names"`
	Extrinsics []Pose             `json:"extrinsics"`
	Intrinsics []CameraIntrinsics `json:"intrinsics"`
}

func ReadDataset(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds Dataset
	if err = json.Unmarshal(b, &ds); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return &ds, nil
}
