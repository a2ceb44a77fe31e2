// Package pandaset reads a PandaSet recording whose lidar frames and
// annotations have been exported to PCD/bin and JSON files.
//
// Layout of one sequence directory:
//
//	<seq>/lidar/poses.json
//	<seq>/lidar/00.pcd ...
//	<seq>/camera/<camera>/poses.json
//	<seq>/camera/<camera>/intrinsics.json
//	<seq>/camera/<camera>/00.jpg ...
//	<seq>/annotations/cuboids/00.json ...
//	<seq>/annotations/semseg/00.json ...
//	<seq>/annotations/semseg/classes.json
package pandaset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/mengseeker/kitticonv/pkg/kitti"
	"github.com/mengseeker/kitticonv/pkg/pcd"
	"github.com/mengseeker/kitticonv/pkg/pose"
)

var (
	ErrNotDataSet       = errors.New("not a pandaset directory")
	ErrSequenceNotFound = errors.New("sequence not found")
	ErrCameraNotFound   = errors.New("camera not found")
	ErrFrameOutOfRange  = errors.New("frame index out of range")
)

// DefaultCameras is the camera order used when none is given, so that the
// auxiliary images appear front first.
var DefaultCameras = []string{
	"front_camera",
	"front_left_camera",
	"front_right_camera",
	"left_camera",
	"right_camera",
	"back_camera",
}

type DataSet struct {
	Dir string
}

func Open(dir string) (*DataSet, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, errors.Wrap(ErrNotDataSet, dir)
	}
	return &DataSet{Dir: dir}, nil
}

// Sequences lists the sequence ids, sorted. A sequence is a subdirectory
// holding a lidar directory.
func (d *DataSet) Sequences() ([]string, error) {
	ds, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range ds {
		if !e.IsDir() {
			continue
		}
		if st, err := os.Stat(filepath.Join(d.Dir, e.Name(), "lidar")); err == nil && st.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *DataSet) Sequence(id string) (*Sequence, error) {
	dir := filepath.Join(d.Dir, id)
	if st, err := os.Stat(filepath.Join(dir, "lidar")); err != nil || !st.IsDir() {
		return nil, errors.Wrap(ErrSequenceNotFound, id)
	}
	return &Sequence{ID: id, Dir: dir}, nil
}

type Sequence struct {
	ID  string
	Dir string
}

// LidarPoses returns the world pose of the lidar for every frame.
func (s *Sequence) LidarPoses() ([]pose.Pose, error) {
	var poses []pose.Pose
	err := readJSON(filepath.Join(s.Dir, "lidar", "poses.json"), &poses)
	return poses, err
}

// LidarFrames returns the point-cloud files of the sequence in frame order.
func (s *Sequence) LidarFrames() ([]string, error) {
	dir := filepath.Join(s.Dir, "lidar")
	ds, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var frames []string
	for _, e := range ds {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pcd", ".bin":
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(frames)
	return frames, nil
}

// LidarFrame reads frame i. Points are in world coordinates.
func (s *Sequence) LidarFrame(i int) (*pcd.PointCloud, error) {
	frames, err := s.LidarFrames()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(frames) {
		return nil, errors.Wrapf(ErrFrameOutOfRange, "%s frame %d of %d", s.ID, i, len(frames))
	}
	return pcd.DecodeFile(frames[i])
}

// Cameras lists the camera names present in the sequence, sorted.
func (s *Sequence) Cameras() ([]string, error) {
	ds, err := os.ReadDir(filepath.Join(s.Dir, "camera"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range ds {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

type Camera struct {
	Name       string
	Dir        string
	Intrinsics kitti.CameraIntrinsics
	Poses      []pose.Pose
}

// Camera loads the poses and intrinsics of the named camera.
func (s *Sequence) Camera(name string) (*Camera, error) {
	dir := filepath.Join(s.Dir, "camera", name)
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, errors.Wrapf(ErrCameraNotFound, "%s/%s", s.ID, name)
	}
	c := &Camera{Name: name, Dir: dir}
	if err := readJSON(filepath.Join(dir, "poses.json"), &c.Poses); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, "intrinsics.json"), &c.Intrinsics); err != nil {
		return nil, err
	}
	return c, nil
}

// ImagePath is the path of the jpg of frame i.
func (c *Camera) ImagePath(i int) string {
	return filepath.Join(c.Dir, FrameName(i)+".jpg")
}

// FrameName is the two digit file stem PandaSet uses for frame i.
func FrameName(i int) string {
	return fmt.Sprintf("%02d", i)
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(b, v); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}
