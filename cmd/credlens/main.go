package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/PatchLens/go-reduce-lens/reduce"
	"github.com/PatchLens/go-reduce-lens/reduce/cmd"
)

func main() {
	log.SetFlags(log.LstdFlags)

	config, err := cmd.ParseFlags()
	if err != nil {
		log.Fatalf("%s%v", reduce.ErrorLogPrefix, err)
	}

	if err := run(config); err != nil {
		log.Fatalf("%s%v", reduce.ErrorLogPrefix, err)
	}
}

func run(config *reduce.Config) error {
	if config.Reduce {
		outcome, err := reduce.NewReductionEngine(config).Run()
		if err != nil {
			return err
		}
		log.Printf("reduced %s from %d to %d bytes in %d rounds",
			outcome.Report.FileName, outcome.Report.OriginalSize,
			outcome.Report.FinalSize, len(outcome.Report.Rounds))
		return writeOutput(config.OutputFile, outcome.FinalSource)
	}

	prog, err := reduce.LoadProgram(config.FilePath)
	if err != nil {
		return err
	}
	trans, err := reduce.NewTransformation(config.Transformation)
	if err != nil {
		return err
	}

	if config.QueryInstanceOnly {
		fmt.Printf("Available transformation instances: %d\n", trans.InstanceCount(prog))
		return nil
	}

	out, err := trans.Apply(prog, config.Counter)
	if errors.Is(err, reduce.ErrMaxInstance) {
		return fmt.Errorf("%w (%d instances available)", err, trans.InstanceCount(prog))
	} else if err != nil {
		return err
	}
	return writeOutput(config.OutputFile, out)
}

func writeOutput(path string, src []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(src)
		return err
	}
	if err := os.WriteFile(path, src, 0644); err != nil {
		return fmt.Errorf("write output failed: %w", err)
	}
	return nil
}
