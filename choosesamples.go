// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"strings"

	log "github.com/sirupsen/logrus"
)

// chooseSamples selects the analysis sample set: quality filter,
// batch-volume filter, then per-tissue balanced subsampling.
type chooseSamples struct {
	filter sampleFilter
}

func (cmd *chooseSamples) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	configFile := flags.String("config", "", "pipeline config `yaml`")
	annotationsFile := flags.String("annotations", "", "sample annotation `tsv`")
	dictFile := flags.String("dictionary", "", "data dictionary `tsv` (optional, labels only)")
	outputFile := flags.String("o", "samples.csv", "output sample sheet `csv`")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	def := DefaultConfig()
	cap := flags.Int("samples-per-tissue", def.SamplesPerTissue, "keep at most `N` samples per detailed tissue")
	seed := flags.Int64("random-seed", def.RandomSeed, "PRNG `seed` for subsampling")
	cmd.filter.Flags(flags, def)
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if *annotationsFile == "" {
		fmt.Fprintln(stderr, "cannot choose samples without -annotations argument")
		return 2
	}

	lvl, err := log.ParseLevel(*loglevel)
	if err != nil {
		return 2
	}
	log.SetLevel(lvl)

	if *pprof != "" {
		go func() {
			log.Println(http.ListenAndServe(*pprof, nil))
		}()
	}

	if *configFile != "" {
		var cfg *Config
		cfg, err = LoadConfig(*configFile)
		if err != nil {
			return 1
		}
		if err = cfg.Check(); err != nil {
			return 1
		}
		cmd.applyConfig(flags, cfg, cap, seed)
	}
	if *cap < 1 {
		err = &ConfigurationError{Param: "samples-per-tissue", Reason: "must be >= 1"}
		return 1
	}

	if *dictFile != "" {
		var dict map[string]string
		dict, err = LoadDictionary(*dictFile)
		if err != nil {
			return 1
		}
		for _, col := range []string{"SMATSSCR", "SMRIN", "SMAFRZE", "SMNABTCH"} {
			if desc, ok := dict[col]; ok {
				log.Debugf("%s: %s", col, desc)
			}
		}
	}

	samples, err := LoadSampleAnnotations(*annotationsFile)
	if err != nil {
		return 1
	}
	log.Infof("loaded %d samples from %s", len(samples), *annotationsFile)

	eligible, err := applyQualityFilter(samples, &cmd.filter)
	if err != nil {
		return 1
	}
	log.Infof("quality filter kept %d of %d samples", len(eligible), len(samples))
	if len(eligible) == 0 {
		log.Warn(&EmptyResultWarning{Stage: "quality filter"})
	}

	batched := applyBatchVolumeFilter(eligible, cmd.filter.MinBatchSamples)
	log.Infof("batch-volume filter kept %d of %d samples", len(batched), len(eligible))
	if len(batched) == 0 && len(eligible) > 0 {
		log.Warn(&EmptyResultWarning{Stage: "batch-volume filter"})
	}

	chosen := balancedSample(batched, *cap, *seed)
	log.Infof("balanced sampling kept %d of %d samples (cap %d per detailed tissue, seed %d)", len(chosen), len(batched), *cap, *seed)

	sheet := make([]chosenSample, 0, len(chosen))
	for _, rec := range chosen {
		sheet = append(sheet, chosenSample{
			SampleID:       rec.SampleID,
			Tissue:         rec.Tissue,
			DetailedTissue: rec.DetailedTissue,
			Batch:          rec.Batch,
		})
	}
	log.Infof("writing sample sheet to %s", *outputFile)
	err = writeSampleSheet(*outputFile, sheet)
	if err != nil {
		return 1
	}
	return 0
}

// applyConfig copies config file values into any flag the user did
// not set explicitly on the command line.
func (cmd *chooseSamples) applyConfig(flags *flag.FlagSet, cfg *Config, cap *int, seed *int64) {
	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["freeze-type"] {
		cmd.filter.FreezeType = cfg.FreezeType
	}
	if !set["max-autolysis"] {
		cmd.filter.MaxAutolysis = cfg.MaxAutolysis
	}
	if !set["min-rin"] {
		cmd.filter.MinRIN = cfg.MinRIN
	}
	if !set["exclude-tissues"] {
		cmd.filter.ExcludeTissues = strings.Join(cfg.ExcludeTissues, ",")
	}
	if !set["min-batch-samples"] {
		cmd.filter.MinBatchSamples = cfg.MinBatchSamples
	}
	if !set["samples-per-tissue"] {
		*cap = cfg.SamplesPerTissue
	}
	if !set["random-seed"] {
		*seed = cfg.RandomSeed
	}
}
