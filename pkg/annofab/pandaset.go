package annofab

import (
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/mengseeker/kitticonv/pkg/kitti"
	"github.com/mengseeker/kitticonv/pkg/pandaset"
)

// ConvertCuboids writes the cuboids of the given frames of seq as
// outDir/<input data id>.json.
func ConvertCuboids(seq *pandaset.Sequence, indices []int, outDir string) error {
	poses, err := seq.LidarPoses()
	if err != nil {
		return err
	}
	for _, i := range indices {
		if i >= len(poses) {
			return errors.Wrapf(pandaset.ErrMissingPoses, "%s frame %d", seq.ID, i)
		}
		cuboids, err := seq.Cuboids(i)
		if err != nil {
			return err
		}
		details, err := CuboidDetails(cuboids, poses[i])
		if err != nil {
			return err
		}
		if err = WriteDetails(filepath.Join(outDir, InputDataID(seq.ID, i)+".json"), details); err != nil {
			return err
		}
	}
	return nil
}

// ConvertSemseg writes the segments of the given frames of seq into the task
// directory outDir.
func ConvertSemseg(seq *pandaset.Sequence, indices []int, outDir string) error {
	names, err := seq.SemsegClasses()
	if err != nil {
		return err
	}
	for _, i := range indices {
		classes, err := seq.Semseg(i)
		if err != nil {
			return err
		}
		if _, err = WriteSegments(outDir, InputDataID(seq.ID, i), classes, names); err != nil {
			return errors.Wrapf(err, "%s frame %d", seq.ID, i)
		}
	}
	return nil
}

// SequenceLabels returns the distinct cuboid labels over every lidar frame
// of seq.
func SequenceLabels(seq *pandaset.Sequence) ([]string, error) {
	frames, err := seq.LidarFrames()
	if err != nil {
		return nil, err
	}
	var all []pandaset.Cuboid
	for i := range frames {
		cuboids, err := seq.Cuboids(i)
		if err != nil {
			return nil, err
		}
		all = append(all, cuboids...)
	}
	return pandaset.Labels(all), nil
}

// MergeLabels returns the sorted union of label lists.
func MergeLabels(lists ...[]string) []string {
	set := map[string]struct{}{}
	for _, l := range lists {
		for _, name := range l {
			set[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CopyFirstImage copies the first image of camera to
// outDir/<seq>__<camera>__00.jpg and returns the written path.
func CopyFirstImage(seq *pandaset.Sequence, camera, outDir string) (string, error) {
	cam, err := seq.Camera(camera)
	if err != nil {
		return "", err
	}
	stem := seq.ID + "__" + camera + "__" + pandaset.FrameName(0)
	return kitti.WriteImage(cam.ImagePath(0), outDir, stem, false)
}
