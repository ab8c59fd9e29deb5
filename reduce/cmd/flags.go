// Package cmd provides CLI flag parsing shared by reducer binaries.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/PatchLens/go-reduce-lens/reduce"
)

// ParseFlags builds a reduce.Config from standard flags.
func ParseFlags() (*reduce.Config, error) {
	config := &reduce.Config{}

	// Define all standard flags
	filePath := flag.String("file", "", "Path to the C translation unit to transform")
	transformation := flag.String("transformation", reduce.SimplifyCallExprName, "Name of the transformation to run")
	counter := flag.Int("counter", 1, "1-based transformation instance to apply")
	query := flag.Bool("query", false, "Report the number of transformation instances without performing edits")
	output := flag.String("output", "", "File to write the transformed source, stdout when unset")
	reduceLoop := flag.Bool("reduce", false, "Iteratively apply the transformation while the result still compiles")
	maxRounds := flag.Int("maxrounds", 0, "Maximum reduction rounds, 0 for the default bound")
	cacheDir := flag.String("cachedir", "", "Directory for the durable variant verdict cache, disabled when unset")
	cacheMB := flag.Int("cachemb", 200, "Cache memory budget in MB")
	reportJsonFile := flag.String("json", "", "File to output reduction details")
	reportChartsFile := flag.String("charts", "", "File to output a reduction progress chart image")

	flag.Parse()

	// Validate standard flags
	if *filePath == "" {
		return nil, errors.New("transform Usage: -file prog.c -transformation simplify-callexpr -counter 2\n" +
			"query Usage: -file prog.c -transformation simplify-callexpr -query\n" +
			"reduce Usage: -file prog.c -transformation simplify-callexpr -reduce")
	} else if *counter < 1 {
		return nil, fmt.Errorf("-counter must be at least 1, got %d", *counter)
	} else if *query && *reduceLoop {
		return nil, errors.New("-query and -reduce are mutually exclusive")
	} else if reduce.TransformationDescription(*transformation) == "" {
		return nil, fmt.Errorf("unknown transformation %q, available: %s",
			*transformation, strings.Join(reduce.TransformationNames(), ", "))
	}

	// Populate config
	config.FilePath = *filePath
	config.Transformation = *transformation
	config.Counter = *counter
	config.QueryInstanceOnly = *query
	config.OutputFile = *output
	config.Reduce = *reduceLoop
	config.MaxRounds = *maxRounds
	config.CacheDir = *cacheDir
	config.CacheMB = *cacheMB
	config.ReportJsonFile = *reportJsonFile
	config.ReportChartsFile = *reportChartsFile

	return config, nil
}
