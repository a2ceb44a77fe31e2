package dgp

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mengseeker/kitticonv/pkg/kitti"
	"github.com/mengseeker/kitticonv/pkg/pose"
)

// CalibrationDirPrefix prefixes the image directory name to form its
// calibration directory.
const CalibrationDirPrefix = "calib-"

var ErrNoImage = errors.New("sample has no image datum")

// CameraViewSettings computes the view settings of a DGP camera. Unlike the
// generic calculation the position is the translation of the camera
// extrinsics, i.e. the camera position on the vehicle, not the camera
// translation relative to pointCloudPose that kitti.NewCameraViewSettings
// uses. The difference is intentional for DGP scenes.
func CameraViewSettings(pointCloudPose, cameraPose, extrinsics pose.Pose, intrinsics kitti.CameraIntrinsics) (kitti.CameraViewSettings, error) {
	v, err := kitti.NewCameraViewSettings(pointCloudPose, cameraPose, intrinsics)
	if err != nil {
		return v, err
	}
	t := extrinsics.Translation
	v.Position = kitti.XYZ{X: t.X, Y: t.Y, Z: t.Z}
	return v, nil
}

// Converter writes DGP scenes as extended KITTI scenes.
type Converter struct {
	Index *Index
	// ConvertToPNG re-encodes images as PNG instead of copying them.
	ConvertToPNG bool
	// Workers bounds the number of scenes converted at once; 0 means one.
	Workers int
	Logger  *zap.SugaredLogger
}

// SampleResult is what ConvertSample wrote for one sample.
type SampleResult struct {
	Sample     *Sample
	Frame      string
	PointCloud *Datum
	Images     []*Datum
}

// FrameName is the sample id name, or the point cloud file stem when the
// sample has no name.
func FrameName(s *Sample, pointCloud *Datum) string {
	if s.ID.Name != "" {
		return s.ID.Name
	}
	base := filepath.Base(pointCloud.Datum.PointCloud.Filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ConvertSample writes the velodyne file, images and calibrations of one sample.
func (c *Converter) ConvertSample(s *Sample, outDir string) (*SampleResult, error) {
	pcDatum, err := c.Index.PointCloudDatum(s.DatumKeys)
	if err != nil {
		return nil, err
	}
	images := c.Index.ImageData(s.DatumKeys)
	if len(images) == 0 {
		return nil, errors.Wrapf(ErrNoImage, "sample %q datum keys %v", s.ID.Name, s.DatumKeys)
	}

	frame := FrameName(s, pcDatum)
	pc := pcDatum.Datum.PointCloud
	cloud, err := c.Index.ReadPointCloud(pc)
	if err != nil {
		return nil, err
	}
	// DGP point clouds are already in the sensor frame.
	if err = kitti.WriteVelodyne(filepath.Join(outDir, pcDatum.ID.Name, frame+".bin"), cloud, nil); err != nil {
		return nil, err
	}

	res := &SampleResult{Sample: s, Frame: frame, PointCloud: pcDatum, Images: images}
	pcPose := pc.Pose.Pose()
	for _, im := range images {
		name := im.ID.Name
		if _, err = kitti.WriteImage(c.Index.Path(im.Datum.Image.Filename), filepath.Join(outDir, name), frame, c.ConvertToPNG); err != nil {
			return nil, err
		}

		_, intrinsics, err := c.Index.Calibration(s.CalibrationKey, name)
		if err != nil {
			return nil, err
		}
		calib, err := kitti.NewCalibration(intrinsics.Intrinsics(), im.Datum.Image.Pose.Pose(), pcPose)
		if err != nil {
			return nil, errors.Wrapf(err, "camera %s", name)
		}
		if err = calib.WriteFile(filepath.Join(outDir, CalibrationDirPrefix+name, frame+".txt")); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ViewSettings computes the view settings of every camera of a converted
// sample, in the order of res.Images.
func (c *Converter) ViewSettings(res *SampleResult) ([]kitti.CameraViewSettings, error) {
	pcPose := res.PointCloud.Datum.PointCloud.Pose.Pose()
	views := make([]kitti.CameraViewSettings, 0, len(res.Images))
	for _, im := range res.Images {
		extrinsics, intrinsics, err := c.Index.Calibration(res.Sample.CalibrationKey, im.ID.Name)
		if err != nil {
			return nil, err
		}
		view, err := CameraViewSettings(pcPose, im.Datum.Image.Pose.Pose(), extrinsics.Pose(), intrinsics.Intrinsics())
		if err != nil {
			return nil, errors.Wrapf(err, "camera %s", im.ID.Name)
		}
		views = append(views, view)
	}
	return views, nil
}

// ConvertScene converts every sample of scene into outDir and writes the
// scene description. Camera view settings come from the first sample.
func (c *Converter) ConvertScene(scene *Scene, outDir string) error {
	if len(scene.Samples) == 0 {
		c.logger().Warnw("scene has no samples", "scene", scene.Name)
		return nil
	}

	var first *SampleResult
	var ids []string
	for i := range scene.Samples {
		res, err := c.ConvertSample(&scene.Samples[i], outDir)
		if err != nil {
			return errors.Wrapf(err, "scene %s sample %d", scene.Name, i)
		}
		if first == nil {
			first = res
		}
		ids = append(ids, res.Frame)
		c.logger().Debugw("sample written", "scene", scene.Name, "frame", res.Frame)
	}

	views, err := c.ViewSettings(first)
	if err != nil {
		return errors.Wrapf(err, "scene %s", scene.Name)
	}
	meta := kitti.Scene{
		IDList:   ids,
		Velodyne: kitti.VelodyneSeries{VelodyneDir: first.PointCloud.ID.Name},
	}
	for i, im := range first.Images {
		ext := strings.TrimPrefix(filepath.Ext(im.Datum.Image.Filename), ".")
		if c.ConvertToPNG {
			ext = "png"
		}
		view := views[i]
		meta.Images = append(meta.Images, kitti.ImageSeries{
			ImageDir:          im.ID.Name,
			CalibDir:          CalibrationDirPrefix + im.ID.Name,
			CameraViewSetting: &view,
			FileExtension:     ext,
		})
	}
	return meta.WriteFile(filepath.Join(outDir, kitti.SceneMetaFile))
}

// ConvertAll converts the scenes of every split into outDir/<scene name>.
// A failing scene is logged and skipped; all failures are returned together.
func (c *Converter) ConvertAll(outDir string) error {
	var (
		mu   sync.Mutex
		errs error
	)
	g := new(errgroup.Group)
	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for _, key := range c.Index.SplitKeys() {
		scenes := c.Index.Dataset.SceneSplits[key].Scenes
		for i := range scenes {
			scene := &scenes[i]
			g.Go(func() error {
				c.logger().Infof("converting scene %s", scene.Name)
				if err := c.ConvertScene(scene, filepath.Join(outDir, scene.Name)); err != nil {
					c.logger().Warnw("scene conversion failed", "scene", scene.Name, "error", err)
					mu.Lock()
					errs = multierr.Append(errs, err)
					mu.Unlock()
				}
				return nil
			})
		}
	}
	g.Wait()
	return errs
}

func (c *Converter) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}
