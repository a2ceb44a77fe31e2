package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/mengseeker/kitticonv/internal/flagutil"
	"github.com/mengseeker/kitticonv/internal/logging"
	"github.com/mengseeker/kitticonv/pkg/pandaset"
)

var cfg struct {
	in           string
	out          string
	sequenceIDs  []string
	cameras      []string
	samplingStep int
	workers      int
	convertToPNG bool
	verbose      bool
}

var cmd = &cobra.Command{
	Use:          "pandaset2kitti",
	Short:        "Convert PandaSet sequences to extended KITTI scenes",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return convert()
	},
}

func init() {
	cmd.PersistentFlags().StringVarP(&cfg.in, "in", "i", "", "pandaset dir")
	cmd.PersistentFlags().StringVarP(&cfg.out, "out", "o", "", "output dir, one scene per sequence")
	cmd.PersistentFlags().StringSliceVar(&cfg.sequenceIDs, "sequence-id", nil, "sequence ids to convert, or file://list; default all")
	cmd.PersistentFlags().StringSliceVar(&cfg.cameras, "camera", nil, "cameras to convert, or file://list; default all six")
	cmd.PersistentFlags().IntVar(&cfg.samplingStep, "sampling-step", 1, "convert every n-th frame")
	cmd.PersistentFlags().IntVar(&cfg.workers, "workers", 4, "frames written in parallel")
	cmd.PersistentFlags().BoolVar(&cfg.convertToPNG, "convert-to-png", false, "re-encode images as png")
	cmd.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging")

	cmd.MarkPersistentFlagRequired("in")
	cmd.MarkPersistentFlagRequired("out")
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func convert() (err error) {
	log := logging.New("pandaset2kitti", cfg.verbose)
	defer log.Sync()

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
	cameras, err := flagutil.ExpandList(cfg.cameras)
	if err != nil {
		return err
	}

	c := &pandaset.Converter{
		SamplingStep: cfg.samplingStep,
		Cameras:      cameras,
		ConvertToPNG: cfg.convertToPNG,
		Workers:      cfg.workers,
		Logger:       log,
	}
	log.Infof("convert %s to KITTI in %s", cfg.in, cfg.out)
	for _, id := range ids {
		seq, serr := ds.Sequence(id)
		if serr == nil {
			log.Infof("convert sequence %s", id)
			serr = c.ConvertSequence(seq, filepath.Join(cfg.out, id))
		}
		if serr != nil {
			log.Warnw("sequence failed", "sequence", id, "error", serr)
			err = multierr.Append(err, serr)
		}
	}
	return err
}
