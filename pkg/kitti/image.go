package kitti

import (
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// WriteImage writes the image src to dir/<stem><ext>. With toPNG the image is
// re-encoded as PNG; otherwise it is copied and keeps its extension. It
// returns the written path.
func WriteImage(src, dir, stem string, toPNG bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if toPNG {
		dst := filepath.Join(dir, stem+".png")
		img, err := imaging.Open(src)
		if err != nil {
			return "", errors.Wrapf(err, "open %s", src)
		}
		return dst, imaging.Save(img, dst)
	}
	dst := filepath.Join(dir, stem+filepath.Ext(src))
	return dst, copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy %s", src)
	}
	return out.Close()
}
