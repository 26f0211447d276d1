package main

import (
	"strconv"
	"strings"

	"github.com/nvr-ai/roi-detect/annotate"
	"github.com/nvr-ai/roi-detect/benchmark"
	"github.com/nvr-ai/roi-detect/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "measure pipeline throughput on a directory of frames",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Usage: "directory of frames", Required: true},
			&cli.StringFlag{Name: "scenarios", Usage: "JSON file of scenarios; overrides --roi"},
			&cli.StringFlag{Name: "roi", Usage: "region as x1,y1,x2,y2 for a single scenario"},
			&cli.StringSliceFlag{Name: "options", Usage: "display options: Box, Label"},
			&cli.IntFlag{Name: "iterations", Value: 100},
			&cli.IntFlag{Name: "warmup", Value: 10},
			&cli.StringFlag{Name: "out", Usage: "directory for JSON and CSV results", Value: "benchmark_results"},
		},
		Action: func(c *cli.Context) error {
			scenarios, err := benchScenarios(c)
			if err != nil {
				return err
			}

			files, err := util.LoadDirectoryImageFiles(c.String("dir"))
			if err != nil {
				return err
			}

			rt, err := setup(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			suite := benchmark.NewSuite(rt.detector, rt.profiler, rt.logger.Named("benchmark"))
			if err := suite.LoadFrames(files); err != nil {
				return err
			}

			results := suite.RunAll(c.Context, scenarios)
			jsonPath, csvPath, err := benchmark.SaveResults(c.String("out"), results)
			if err != nil {
				return err
			}
			rt.logger.Infow("benchmark saved", "results", jsonPath, "summary", csvPath)
			return nil
		},
	}
}

func benchScenarios(c *cli.Context) ([]benchmark.Scenario, error) {
	if path := c.String("scenarios"); path != "" {
		return benchmark.LoadScenarios(path)
	}

	corners, err := parseROI(c.String("roi"))
	if err != nil {
		return nil, err
	}
	scenario := benchmark.NewScenarioBuilder("roi").
		WithRegion(corners[0], corners[1], corners[2], corners[3]).
		WithDisplay(annotate.ParseDisplayOptions(c.StringSlice("options"))).
		WithIterations(c.Int("iterations")).
		WithWarmupRuns(c.Int("warmup")).
		Build()
	return []benchmark.Scenario{scenario}, scenario.Validate()
}

func parseROI(s string) ([4]int, error) {
	var out [4]int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return out, errors.Errorf("roi must be x1,y1,x2,y2, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, errors.Errorf("roi must be x1,y1,x2,y2, got %q", s)
		}
		out[i] = v
	}
	return out, nil
}
