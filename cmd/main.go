package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mjoguet/idfm2bq"
	"github.com/spf13/pflag"
)

func usageAndDie() {
	fmt.Println("Example usage:\n" +
		"    idfm2bq --check\n" +
		"    idfm2bq --extract [--only validations] [--years 2019-2024]\n" +
		"    idfm2bq --load [--only validations]\n" +
		"    idfm2bq --transform\n" +
		"    idfm2bq --all\n\n" +
		"Requires PROJECT_ID and BUCKET_NAME in the environment.")
	os.Exit(1)
}

func main() {
	checkMode := pflag.BoolP("check", "c", false, "Verify GCS and BigQuery access")
	extractMode := pflag.BoolP("extract", "e", false, "Download sources and upload to bronze")
	loadMode := pflag.BoolP("load", "l", false, "Load bronze objects into silver tables")
	transformMode := pflag.BoolP("transform", "t", false, "Build gold KPI tables from silver")
	allMode := pflag.BoolP("all", "a", false, "Run check, extract, load, transform in sequence")
	primaryOptions := []*bool{checkMode, extractMode, loadMode, transformMode, allMode}

	dataDir := pflag.String("data-dir", "data", "Local staging directory")
	only := pflag.String("only", "", "Restrict extract/load to one source")
	years := pflag.String("years", "", "Validation year range, e.g. 2015-2024")
	keepLocal := pflag.Bool("keep-local", false, "Keep staging files after upload")

	pflag.Parse()

	primaryCount := 0
	for _, opt := range primaryOptions {
		if *opt {
			primaryCount++
		}
	}
	if primaryCount != 1 {
		usageAndDie()
	}

	firstYear, lastYear, err := parseYears(*years)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	cfg, err := idfm2bq.ConfigFromEnv()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	extractOpts := &idfm2bq.ExtractOpts{
		DataDir:   *dataDir,
		Only:      *only,
		FirstYear: firstYear,
		LastYear:  lastYear,
		KeepLocal: *keepLocal,
	}
	loadOpts := &idfm2bq.LoadOpts{Only: *only}

	switch {
	case *checkMode:
		err = idfm2bq.Check(ctx, cfg)
	case *extractMode:
		err = idfm2bq.Extract(ctx, cfg, extractOpts)
	case *loadMode:
		err = idfm2bq.Load(ctx, cfg, loadOpts)
	case *transformMode:
		err = idfm2bq.Transform(ctx, cfg)
	case *allMode:
		steps := []func() error{
			func() error { return idfm2bq.Check(ctx, cfg) },
			func() error { return idfm2bq.Extract(ctx, cfg, extractOpts) },
			func() error { return idfm2bq.Load(ctx, cfg, loadOpts) },
			func() error { return idfm2bq.Transform(ctx, cfg) },
		}
		for _, step := range steps {
			if err = step(); err != nil {
				break
			}
		}
	}

	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	} else {
		fmt.Println("All done")
	}
}

func parseYears(s string) (first, last int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	parts := strings.SplitN(s, "-", 2)
	first, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad --years %q", s)
	}
	last = first
	if len(parts) == 2 {
		last, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("bad --years %q", s)
		}
	}
	if last < first {
		return 0, 0, fmt.Errorf("bad --years %q", s)
	}
	return first, last, nil
}
