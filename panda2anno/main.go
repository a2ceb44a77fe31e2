package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mengseeker/kitticonv/internal/flagutil"
	"github.com/mengseeker/kitticonv/internal/logging"
	"github.com/mengseeker/kitticonv/pkg/annofab"
	"github.com/mengseeker/kitticonv/pkg/pandaset"
)

var cfg struct {
	in           string
	out          string
	sequenceIDs  []string
	samplingStep int
	color        bool
	camera       string
	verbose      bool
}

var log *zap.SugaredLogger

var cmd = &cobra.Command{
	Use:               "panda2anno",
	Short:             "Convert PandaSet annotations to the annotation import format",
	SilenceUsage:      true,
	PersistentPreRun:  func(cmd *cobra.Command, args []string) { log = logging.New(cmd.Name(), cfg.verbose) },
	PersistentPostRun: func(cmd *cobra.Command, args []string) { log.Sync() },
}

var cuboidCmd = &cobra.Command{
	Use:   "cuboid",
	Short: "Write one details file per frame with the frame cuboids",
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachSequence(func(seq *pandaset.Sequence) error {
			indices, err := sampledFrames(seq)
			if err != nil {
				return err
			}
			return annofab.ConvertCuboids(seq, indices, filepath.Join(cfg.out, seq.ID))
		})
	},
}

var semsegCmd = &cobra.Command{
	Use:   "semseg",
	Short: "Write one segment annotation per class and frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachSequence(func(seq *pandaset.Sequence) error {
			indices, err := sampledFrames(seq)
			if err != nil {
				return err
			}
			return annofab.ConvertSemseg(seq, indices, filepath.Join(cfg.out, seq.ID))
		})
	},
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Write the label_id,label_name CSV of every cuboid label",
	RunE: func(cmd *cobra.Command, args []string) error {
		var labels []string
		err := eachSequence(func(seq *pandaset.Sequence) error {
			l, err := annofab.SequenceLabels(seq)
			labels = annofab.MergeLabels(labels, l)
			return err
		})
		if err != nil {
			return err
		}
		if err = os.MkdirAll(filepath.Dir(cfg.out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(cfg.out)
		if err != nil {
			return err
		}
		if err = annofab.WriteLabels(f, labels, cfg.color); err != nil {
			f.Close()
			return err
		}
		log.Infof("%d labels written to %s", len(labels), cfg.out)
		return f.Close()
	},
}

var copyImageCmd = &cobra.Command{
	Use:   "copy-image",
	Short: "Copy the first image of a camera of every sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachSequence(func(seq *pandaset.Sequence) error {
			path, err := annofab.CopyFirstImage(seq, cfg.camera, cfg.out)
			if err != nil {
				if os.IsNotExist(err) || errors.Is(err, pandaset.ErrCameraNotFound) {
					log.Warnw("image not found, skipped", "sequence", seq.ID, "camera", cfg.camera)
					return nil
				}
				return err
			}
			log.Debugw("image copied", "path", path)
			return nil
		})
	},
}

func init() {
	cmd.PersistentFlags().StringVarP(&cfg.in, "in", "i", "", "pandaset dir")
	cmd.PersistentFlags().StringVarP(&cfg.out, "out", "o", "", "output dir, or the csv file for labels")
	cmd.PersistentFlags().StringSliceVar(&cfg.sequenceIDs, "sequence-id", nil, "sequence ids, or file://list; default all")
	cmd.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging")
	cmd.MarkPersistentFlagRequired("in")
	cmd.MarkPersistentFlagRequired("out")

	for _, c := range []*cobra.Command{cuboidCmd, semsegCmd} {
		c.Flags().IntVar(&cfg.samplingStep, "sampling-step", 1, "convert every n-th frame")
	}
	labelsCmd.Flags().BoolVar(&cfg.color, "color", false, "add a color column")
	copyImageCmd.Flags().StringVar(&cfg.camera, "camera", "", "camera name")
	copyImageCmd.MarkFlagRequired("camera")

	cmd.AddCommand(cuboidCmd, semsegCmd, labelsCmd, copyImageCmd)
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func sampledFrames(seq *pandaset.Sequence) ([]int, error) {
	frames, err := seq.LidarFrames()
	if err != nil {
		return nil, err
	}
	return pandaset.SampleFrames(len(frames), cfg.samplingStep), nil
}

// eachSequence runs fn for every selected sequence. Failures are logged and
// returned together once all sequences ran.
func eachSequence(fn func(seq *pandaset.Sequence) error) (err error) {
	ds, err := pandaset.Open(cfg.in)
	if err != nil {
		return err
	}
	ids, err := flagutil.ExpandList(cfg.sequenceIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		if ids, err = ds.Sequences(); err != nil {
			return err
		}
	}
	for _, id := range ids {
		seq, serr := ds.Sequence(id)
		if serr == nil {
			log.Infof("sequence %s", id)
			serr = fn(seq)
		}
		if serr != nil {
			log.Warnw("sequence failed", "sequence", id, "error", serr)
			err = multierr.Append(err, serr)
		}
	}
	return err
}
