package main

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mengseeker/kitticonv/internal/logging"
	"github.com/mengseeker/kitticonv/pkg/pcd"
)

var cfg struct {
	in      string
	out     string
	verbose bool
}

var cmd = &cobra.Command{
	Use:          "bin-to-pcd",
	Short:        "Convert KITTI velodyne bin files to pcd, in a directory or a zip",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logging.New("bin-to-pcd", cfg.verbose)
		defer log.Sync()
		if strings.HasSuffix(cfg.in, ".zip") {
			if cfg.out == "" {
				cfg.out = zipOutName(cfg.in)
			}
			return TransZipFile(cfg.in, cfg.out, log)
		}
		if cfg.out == "" {
			cfg.out = cfg.in
		}
		return TransDirBinToPcd(cfg.in, cfg.out, log)
	},
}

func init() {
	cmd.PersistentFlags().StringVarP(&cfg.in, "in", "i", "", "input zipFile or dir")
	cmd.PersistentFlags().StringVarP(&cfg.out, "out", "o", "", "output zipFile or dir")
	cmd.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging")

	cmd.MarkPersistentFlagRequired("in")
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func zipOutName(in string) string {
	ext := filepath.Ext(in)
	return strings.TrimSuffix(in, ext) + "-pcd" + ext
}

// TransZipFile copies the zip in to out with every .bin entry replaced by a
// .pcd entry. Other entries are copied raw.
func TransZipFile(in, out string, log *zap.SugaredLogger) (err error) {
	if out == in {
		return errors.New("input file can not be the output file")
	}
	inZip, err := zip.OpenReader(in)
	if err != nil {
		return err
	}
	defer inZip.Close()
	outFile, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := outFile.Close(); err == nil {
			err = cerr
		}
	}()
	outZip := zip.NewWriter(outFile)
	for _, f := range inZip.File {
		if filepath.Ext(f.Name) == ".bin" {
			err = transZipEntry(f, outZip)
		} else {
			err = copyZipEntry(f, outZip)
		}
		if err != nil {
			return errors.Wrap(err, f.Name)
		}
		log.Debugw("zip entry written", "name", f.Name)
	}
	if err = outZip.Close(); err != nil {
		return err
	}
	log.Infof("TransBinToPcd %s => %s", in, out)
	return nil
}

func transZipEntry(f *zip.File, outZip *zip.Writer) error {
	binr, err := f.Open()
	if err != nil {
		return err
	}
	defer binr.Close()
	bin, err := pcd.DecodeBin(binr)
	if err != nil {
		return err
	}
	w, err := outZip.Create(strings.TrimSuffix(f.Name, ".bin") + ".pcd")
	if err != nil {
		return err
	}
	return bin.ToPcd().Encode(w)
}

func copyZipEntry(f *zip.File, outZip *zip.Writer) error {
	w, err := outZip.CreateRaw(&f.FileHeader)
	if err != nil {
		return err
	}
	r, err := f.OpenRaw()
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

func TransDirBinToPcd(sourceDir, outDir string, log *zap.SugaredLogger) error {
	ds, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, d := range ds {
		fn := d.Name()
		if d.IsDir() || filepath.Ext(fn) != ".bin" {
			continue
		}
		src := filepath.Join(sourceDir, fn)
		out := filepath.Join(outDir, strings.TrimSuffix(fn, ".bin")+".pcd")
		if err = transBinFile(src, out); err != nil {
			return errors.Wrap(err, src)
		}
		log.Infof("TransBinToPcd %s => %s", src, out)
	}
	return nil
}

func transBinFile(src, out string) error {
	pcdf, err := os.Create(out)
	if err != nil {
		return err
	}
	if err = pcd.TransFileToPcd(src, pcdf); err != nil {
		pcdf.Close()
		return err
	}
	return pcdf.Close()
}
