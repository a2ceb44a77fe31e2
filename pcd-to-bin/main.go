package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/seqsense/pcgol/pc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mengseeker/kitticonv/internal/logging"
	"github.com/mengseeker/kitticonv/pkg/kitti"
	"github.com/mengseeker/kitticonv/pkg/pcd"
	"github.com/mengseeker/kitticonv/pkg/pose"
)

var cfg struct {
	in      string
	out     string
	poses   string
	verbose bool
}

var cmd = &cobra.Command{
	Use:          "pcd-to-bin",
	Short:        "Convert a directory of pcd files to KITTI velodyne bin files",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logging.New("pcd-to-bin", cfg.verbose)
		defer log.Sync()
		if cfg.out == "" {
			cfg.out = cfg.in
		}
		var poses []pose.Pose
		if cfg.poses != "" {
			if poses, err = readPoses(cfg.poses); err != nil {
				return err
			}
		}
		return TransDirPcdToBin(cfg.in, cfg.out, poses, log)
	},
}

func init() {
	cmd.PersistentFlags().StringVarP(&cfg.in, "in", "i", "", "input dir")
	cmd.PersistentFlags().StringVarP(&cfg.out, "out", "o", "", "output dir, default the input dir")
	cmd.PersistentFlags().StringVar(&cfg.poses, "pose", "", "poses.json with one sensor pose per pcd file in name order")
	cmd.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging")

	cmd.MarkPersistentFlagRequired("in")
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readPoses(path string) ([]pose.Pose, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var poses []pose.Pose
	if err = json.NewDecoder(f).Decode(&poses); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return poses, nil
}

// TransDirPcdToBin converts every pcd file of sourceDir. With poses, file k
// in name order holds world points seen by a sensor at poses[k].
func TransDirPcdToBin(sourceDir, outDir string, poses []pose.Pose, log *zap.SugaredLogger) error {
	ds, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	var names []string
	for _, d := range ds {
		if !d.IsDir() && filepath.Ext(d.Name()) == ".pcd" {
			names = append(names, d.Name())
		}
	}
	sort.Strings(names)
	if poses != nil && len(poses) < len(names) {
		return errors.Errorf("%d poses for %d pcd files", len(poses), len(names))
	}
	for k, fn := range names {
		src := filepath.Join(sourceDir, fn)
		out := filepath.Join(outDir, strings.TrimSuffix(fn, ".pcd")+".bin")
		var p *pose.Pose
		if poses != nil {
			p = &poses[k]
		}
		if err = transPcdToBin(src, out, p); err != nil {
			return errors.Wrap(err, src)
		}
		log.Infof("TransPcdToBin %s => %s", src, out)
	}
	return nil
}

func transPcdToBin(src, out string, p *pose.Pose) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	pcf, err := pc.Unmarshal(f)
	if err != nil {
		return err
	}

	// Re-encoding through pcgol normalizes the field layout before decoding.
	ir, iw := io.Pipe()
	go func() {
		iw.CloseWithError(pc.Marshal(pcf, iw))
	}()
	pp, err := pcd.DecodePcd(ir)
	ir.Close()
	if err != nil {
		return err
	}
	return kitti.WriteVelodyne(out, &pp.PointCloud, p)
}
