package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mengseeker/kitticonv/internal/logging"
	"github.com/mengseeker/kitticonv/pkg/dgp"
)

var cfg struct {
	datasetJSON  string
	out          string
	workers      int
	convertToPNG bool
	verbose      bool
}

var cmd = &cobra.Command{
	Use:          "dgp2kitti",
	Short:        "Convert a DGP dataset to extended KITTI scenes",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return convert()
	},
}

func init() {
	cmd.PersistentFlags().StringVar(&cfg.datasetJSON, "dataset-json", "", "DGP dataset.json")
	cmd.PersistentFlags().StringVarP(&cfg.out, "out", "o", "", "output dir, one scene per DGP scene")
	cmd.PersistentFlags().IntVar(&cfg.workers, "workers", 1, "scenes converted in parallel")
	cmd.PersistentFlags().BoolVar(&cfg.convertToPNG, "convert-to-png", false, "re-encode images as png")
	cmd.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging")

	cmd.MarkPersistentFlagRequired("dataset-json")
	cmd.MarkPersistentFlagRequired("out")
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func convert() error {
	log := logging.New("dgp2kitti", cfg.verbose)
	defer log.Sync()

	index, err := dgp.Load(cfg.datasetJSON)
	if err != nil {
		return err
	}
	log.Infof("convert %s to KITTI in %s", cfg.datasetJSON, cfg.out)
	c := &dgp.Converter{
		Index:        index,
		ConvertToPNG: cfg.convertToPNG,
		Workers:      cfg.workers,
		Logger:       log,
	}
	return c.ConvertAll(cfg.out)
}
