package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/roi-detect/detector"
	"github.com/nvr-ai/roi-detect/images"
	"github.com/nvr-ai/roi-detect/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// detectRecord is one line of the detect command's JSON output.
type detectRecord struct {
	Path string `json:"path"`
	*detector.Result
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

func detectCommand() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "run detection on image files and print JSON lines",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "image", Usage: "image file"},
			&cli.StringFlag{Name: "dir", Usage: "directory of image files"},
			&cli.StringFlag{Name: "roi", Usage: "region as x1,y1,x2,y2", Required: true},
			&cli.StringSliceFlag{Name: "options", Usage: "display options: Box, Label"},
			&cli.StringFlag{Name: "out", Usage: "annotated output file (with --image) or directory (with --dir)"},
		},
		Action: func(c *cli.Context) error {
			var files []util.ImageFile
			switch {
			case c.String("image") != "" && c.String("dir") != "":
				return errors.New("--image and --dir are mutually exclusive")
			case c.String("image") != "":
				f, err := util.LoadImageFile(c.String("image"))
				if err != nil {
					return err
				}
				files = append(files, f)
			case c.String("dir") != "":
				loaded, err := util.LoadDirectoryImageFiles(c.String("dir"))
				if err != nil {
					return err
				}
				files = loaded
			default:
				return errors.New("one of --image or --dir is required")
			}

			corners := strings.Split(c.String("roi"), ",")
			if len(corners) != 4 {
				return errors.Errorf("--roi must be x1,y1,x2,y2, got %q", c.String("roi"))
			}

			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := c.String("out")
			if out != "" && c.String("dir") != "" {
				if err := os.MkdirAll(out, 0o755); err != nil {
					return errors.Wrapf(err, "creating %s", out)
				}
			}

			enc := json.NewEncoder(c.App.Writer)
			failed := 0
			for _, f := range files {
				rec := detectRecord{Path: f.Path}

				req, err := detector.DecodeRequest(detector.RawRequest{
					Image:   f.Data,
					X1:      corners[0],
					Y1:      corners[1],
					X2:      corners[2],
					Y2:      corners[3],
					Options: c.StringSlice("options"),
				})
				if err == nil {
					rec.Result, err = rt.detector.Detect(c.Context, req.Request)
				}
				if err == nil && out != "" {
					rec.Output = out
					if c.String("dir") != "" {
						rec.Output = filepath.Join(out, strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))+".jpg")
					}
					err = writeJPEG(rec.Output, rec.Result, rt.cfg.Server.JPEGQuality)
				}
				if err != nil {
					failed++
					rec.Error, rec.Kind = err.Error(), string(detector.KindOf(err))
					rt.logger.Warnw("detection failed", "path", f.Path, "error", err)
				}
				if err := enc.Encode(rec); err != nil {
					return errors.Wrap(err, "writing result")
				}
			}

			if failed > 0 {
				return cli.Exit(errors.Errorf("%d of %d images failed", failed, len(files)), 2)
			}
			return nil
		},
	}
}

func writeJPEG(path string, res *detector.Result, quality int) error {
	data, err := images.EncodeJPEG(res.Annotated, quality)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing %s", path)
}
