package pandaset

import (
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mengseeker/kitticonv/pkg/kitti"
	"github.com/mengseeker/kitticonv/pkg/pcd"
	"github.com/mengseeker/kitticonv/pkg/pose"
)

// Directory names of a converted sequence.
const (
	VelodyneDir          = "velodyne"
	ImageDirPrefix       = "image-"
	CalibrationDirPrefix = "calib-"
	ImageExtension       = "jpg"
)

var ErrMissingPoses = errors.New("fewer poses than frames")

// Converter writes PandaSet sequences as extended KITTI scenes.
type Converter struct {
	// SamplingStep converts every SamplingStep-th frame; 0 means every frame.
	SamplingStep int
	// Cameras are converted in this order; nil means DefaultCameras.
	Cameras      []string
	ConvertToPNG bool
	// Workers bounds the number of frames written at once; 0 means one.
	Workers int
	Logger  *zap.SugaredLogger
}

// FrameIndices returns the frame indices converted out of n frames.
func (c *Converter) FrameIndices(n int) []int {
	return SampleFrames(n, c.SamplingStep)
}

// SampleFrames returns every step-th index below n, starting at 0. A step
// below one takes every frame.
func SampleFrames(n, step int) []int {
	if step <= 0 {
		step = 1
	}
	var out []int
	for i := 0; i < n; i += step {
		out = append(out, i)
	}
	return out
}

// ConvertSequence writes seq into outDir: velodyne bin files in the lidar
// frame, and for every camera its images, per-frame calibrations and the
// view settings of the first frame.
func (c *Converter) ConvertSequence(seq *Sequence, outDir string) error {
	log := c.logger()
	frames, err := seq.LidarFrames()
	if err != nil {
		return err
	}
	lidarPoses, err := seq.LidarPoses()
	if err != nil {
		return err
	}
	if len(lidarPoses) < len(frames) {
		return errors.Wrapf(ErrMissingPoses, "%s: %d lidar poses for %d frames", seq.ID, len(lidarPoses), len(frames))
	}
	indices := c.FrameIndices(len(frames))
	if len(indices) == 0 {
		log.Warnw("sequence has no lidar frames", "sequence", seq.ID)
		return nil
	}

	ids := make([]string, len(indices))
	for k, i := range indices {
		ids[k] = FrameID(seq.ID, i)
	}

	g := new(errgroup.Group)
	g.SetLimit(c.workers())
	for k, i := range indices {
		k, i := k, i
		g.Go(func() error {
			cloud, err := pcd.DecodeFile(frames[i])
			if err != nil {
				return err
			}
			return kitti.WriteVelodyne(filepath.Join(outDir, VelodyneDir, ids[k]+".bin"), cloud, &lidarPoses[i])
		})
	}
	if err = g.Wait(); err != nil {
		return errors.Wrapf(err, "%s velodyne", seq.ID)
	}
	log.Debugw("velodyne written", "sequence", seq.ID, "frames", len(indices))

	cameras := c.Cameras
	if cameras == nil {
		cameras = DefaultCameras
	}
	scene := kitti.Scene{IDList: ids, Velodyne: kitti.VelodyneSeries{VelodyneDir: VelodyneDir}}
	for _, name := range cameras {
		cam, err := seq.Camera(name)
		if errors.Is(err, ErrCameraNotFound) {
			log.Warnw("camera not found, skipped", "sequence", seq.ID, "camera", name)
			continue
		}
		if err != nil {
			return err
		}
		series, err := c.convertCamera(cam, indices, ids, lidarPoses, outDir)
		if err != nil {
			return errors.Wrapf(err, "%s %s", seq.ID, name)
		}
		scene.Images = append(scene.Images, series)
	}
	return scene.WriteFile(filepath.Join(outDir, kitti.SceneMetaFile))
}

func (c *Converter) convertCamera(cam *Camera, indices []int, ids []string, lidarPoses []pose.Pose, outDir string) (kitti.ImageSeries, error) {
	if last := indices[len(indices)-1]; len(cam.Poses) <= last {
		return kitti.ImageSeries{}, errors.Wrapf(ErrMissingPoses, "%d camera poses", len(cam.Poses))
	}
	imageDir := ImageDirPrefix + cam.Name
	calibDir := CalibrationDirPrefix + cam.Name

	g := new(errgroup.Group)
	g.SetLimit(c.workers())
	for k, i := range indices {
		k, i := k, i
		g.Go(func() error {
			calib, err := kitti.NewCalibration(cam.Intrinsics, cam.Poses[i], lidarPoses[i])
			if err != nil {
				return err
			}
			if err = calib.WriteFile(filepath.Join(outDir, calibDir, ids[k]+".txt")); err != nil {
				return err
			}
			_, err = kitti.WriteImage(cam.ImagePath(i), filepath.Join(outDir, imageDir), ids[k], c.ConvertToPNG)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return kitti.ImageSeries{}, err
	}

	view, err := kitti.NewCameraViewSettings(lidarPoses[indices[0]], cam.Poses[indices[0]], cam.Intrinsics)
	if err != nil {
		return kitti.ImageSeries{}, err
	}
	ext := ImageExtension
	if c.ConvertToPNG {
		ext = "png"
	}
	return kitti.ImageSeries{
		ImageDir:          imageDir,
		CalibDir:          calibDir,
		CameraViewSetting: &view,
		FileExtension:     ext,
	}, nil
}

// FrameID names frame i of a sequence in the converted output.
func FrameID(sequenceID string, i int) string {
	return sequenceID + "-" + strconv.Itoa(i)
}

func (c *Converter) workers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

func (c *Converter) logger() *zap.SugaredLogger {
	if c.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return c.Logger
}
