package annofab

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mengseeker/kitticonv/pkg/pandaset"
	"github.com/mengseeker/kitticonv/pkg/pose"
)

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vector(v r3.Vec) Vector3 {
	return Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

type Direction struct {
	Front Vector3 `json:"front"`
	Up    Vector3 `json:"up"`
}

// CuboidShape places a cuboid in the point-cloud frame. Rotation holds ZXY
// Euler angles in radians.
type CuboidShape struct {
	Dimensions Size      `json:"dimensions"`
	Location   Vector3   `json:"location"`
	Rotation   Vector3   `json:"rotation"`
	Direction  Direction `json:"direction"`
}

type CuboidData struct {
	Kind    string      `json:"kind"`
	Shape   CuboidShape `json:"shape"`
	Version string      `json:"version"`
}

// Cuboid attribute names.
const (
	AttrObjectMotion       = "object_motion"
	AttrRiderStatus        = "rider_status"
	AttrPedestrianBehavior = "pedestrian_behavior"
	AttrPedestrianAge      = "pedestrian_age"
)

// NewCuboidShape moves a world-frame cuboid into the frame of the lidar at
// lidarPose. The cuboid yaw is measured from the y axis, so a quarter turn
// is added to measure it from x.
func NewCuboidShape(c pandaset.Cuboid, lidarPose pose.Pose) CuboidShape {
	toLidar := lidarPose.Inverse()
	location := toLidar.TransformPoint(r3.Vec{X: c.PositionX, Y: c.PositionY, Z: c.PositionZ})

	lidarYaw, _, _ := pose.YawPitchRoll(toLidar.Rotation)
	yaw := lidarYaw + c.Yaw + math.Pi/2

	q := pose.EulerToQuaternion(pose.EulerAngles{Z: yaw})
	return CuboidShape{
		Dimensions: Size{Width: c.DimensionX, Height: c.DimensionZ, Depth: c.DimensionY},
		Location:   vector(location),
		Rotation:   Vector3{Z: yaw},
		Direction: Direction{
			Front: vector(pose.Rotate(q, r3.Vec{X: 1})),
			Up:    vector(pose.Rotate(q, r3.Vec{Z: 1})),
		},
	}
}

// NewCuboidDetail converts one cuboid. The cuboid uuid is kept as the
// annotation id.
func NewCuboidDetail(c pandaset.Cuboid, lidarPose pose.Pose) (Detail, error) {
	data, err := marshalString(CuboidData{
		Kind:    "CUBOID",
		Shape:   NewCuboidShape(c, lidarPose),
		Version: "2",
	})
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		AnnotationID: c.UUID,
		Label:        c.Label,
		Attributes: map[string]string{
			AttrObjectMotion:       valueOrEmpty(c.ObjectMotion),
			AttrRiderStatus:        valueOrEmpty(c.RiderStatus),
			AttrPedestrianBehavior: valueOrEmpty(c.PedestrianBehavior),
			AttrPedestrianAge:      valueOrEmpty(c.PedestrianAge),
		},
		Data: data,
	}, nil
}

func CuboidDetails(cuboids []pandaset.Cuboid, lidarPose pose.Pose) ([]Detail, error) {
	out := make([]Detail, 0, len(cuboids))
	for _, c := range cuboids {
		d, err := NewCuboidDetail(c, lidarPose)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func valueOrEmpty(s *string) string {
	if s == nil || *s == "NaN" || *s == "nan" {
		return ""
	}
	return *s
}
