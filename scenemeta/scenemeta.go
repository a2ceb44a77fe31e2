package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mengseeker/kitticonv/internal/flagutil"
	"github.com/mengseeker/kitticonv/internal/logging"
	"github.com/mengseeker/kitticonv/pkg/kitti"
)

// Request asks for the reports of some frames of a scene. No ids means every
// frame of the scene.
type Request struct {
	Scene string   `json:"scene"`
	IDs   []string `json:"ids,omitempty"`
}

var cfg struct {
	in      string
	ids     []string
	verbose bool
}

var cmd = &cobra.Command{
	Use:   "scenemeta",
	Short: "Check the frames of a converted KITTI scene",
	Long: "Prints one JSON report per frame. Without -i, JSON requests " +
		`{"scene": "<scene.meta>", "ids": [...]} are read from stdin until EOF.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New("scenemeta", cfg.verbose)
		defer log.Sync()
		enc := json.NewEncoder(os.Stdout)
		if cfg.in == "" {
			return serve(os.Stdin, enc, log)
		}
		ids, err := flagutil.ExpandList(cfg.ids)
		if err != nil {
			return err
		}
		failed, err := check(Request{Scene: cfg.in, IDs: ids}, enc)
		if err != nil {
			return err
		}
		if failed > 0 {
			return errors.Errorf("%d frames failed the check", failed)
		}
		return nil
	},
}

func init() {
	cmd.PersistentFlags().StringVarP(&cfg.in, "in", "i", "", "scene.meta; read requests from stdin if empty")
	cmd.PersistentFlags().StringSliceVar(&cfg.ids, "id", nil, "frame ids to check, or file://list; default all")
	cmd.PersistentFlags().BoolVarP(&cfg.verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// check writes the report of every requested frame and returns the number of
// frames with problems.
func check(req Request, enc *json.Encoder) (failed int, err error) {
	scene, err := kitti.ReadScene(req.Scene)
	if err != nil {
		return 0, err
	}
	ids := req.IDs
	if len(ids) == 0 {
		ids = scene.IDList
	}
	for _, id := range ids {
		r := scene.CheckFrame(id)
		if !r.OK() {
			failed++
		}
		if err = enc.Encode(r); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// serve answers requests until r is closed. A request that cannot be served
// gets a report carrying only the error.
func serve(r io.Reader, enc *json.Encoder, log *zap.SugaredLogger) error {
	dec := json.NewDecoder(r)
	for {
		var req Request
		err := dec.Decode(&req)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			// The stream cannot be resynchronized after a syntax error.
			enc.Encode(kitti.FrameReport{Error: err.Error()})
			return err
		}
		failed, err := check(req, enc)
		if err != nil {
			enc.Encode(kitti.FrameReport{Error: err.Error()})
			continue
		}
		log.Debugw("scene checked", "scene", req.Scene, "failed", failed)
	}
}
