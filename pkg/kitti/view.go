package kitti

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mengseeker/kitticonv/pkg/pose"
)

type XYZ struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CameraViewSettings tells the 3D annotation viewer where a camera sits and
// what it sees, so the camera frustum can be drawn over the point cloud.
type CameraViewSettings struct {
	// Fov is the horizontal field of view in radians.
	Fov float64 `json:"fov"`
	// Direction is the rotation about the z axis in radians, 0 along +x.
	Direction float64 `json:"direction"`
	// Position is the camera position in the point-cloud frame.
	Position XYZ `json:"position"`
}

// cameraToViewer turns the camera optical axis (+z) up, matching the
// z-up convention of the point-cloud frame.
var cameraToViewer = pose.New(quat.Number(r3.NewRotation(-math.Pi/2, r3.Vec{X: 1})), r3.Vec{})

// NewCameraViewSettings computes the view settings of a camera relative to the
// point-cloud sensor. Both poses are expressed in the same world frame and are
// taken from one fixed sample; the camera rig is treated as rigid for the
// whole sequence.
func NewCameraViewSettings(referencePose, cameraPose pose.Pose, intrinsics CameraIntrinsics) (CameraViewSettings, error) {
	if err := intrinsics.Validate(); err != nil {
		return CameraViewSettings{}, err
	}
	fov := 2 * math.Atan(intrinsics.Cx/intrinsics.Fx)

	referenceToCamera := cameraPose.Inverse().Mul(referencePose)
	yaw, _, _ := pose.YawPitchRoll(cameraToViewer.Mul(referenceToCamera).Rotation)
	// The viewer looks along +x while the sensor faces +y, and its yaw turns
	// the opposite way.
	direction := -yaw + math.Pi/2

	t := referencePose.Inverse().Mul(cameraPose).Translation
	return CameraViewSettings{
		Fov:       fov,
		Direction: direction,
		Position:  XYZ{X: t.X, Y: t.Y, Z: t.Z},
	}, nil
}
