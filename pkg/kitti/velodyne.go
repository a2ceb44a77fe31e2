package kitti

import (
	"github.com/mengseeker/kitticonv/pkg/pcd"
	"github.com/mengseeker/kitticonv/pkg/pose"
)

// WriteVelodyne writes cloud as a KITTI velodyne bin file. Points given in
// the world frame are moved into the sensor frame with lidarPose; a nil pose
// means the points are already sensor-relative.
func WriteVelodyne(path string, cloud *pcd.PointCloud, lidarPose *pose.Pose) error {
	if lidarPose != nil {
		cloud = cloud.Transform(lidarPose.Inverse().TransformFunc())
	}
	return cloud.ToBin().WriteFile(path)
}
