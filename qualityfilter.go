// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"flag"
	"fmt"
	"strings"
)

// sampleFilter holds the sample eligibility thresholds. Each
// subcommand that filters samples exposes these as flags.
type sampleFilter struct {
	FreezeType      string
	MaxAutolysis    int
	MinRIN          float64
	ExcludeTissues  string // comma-separated coarse tissue types
	MinBatchSamples int
}

func (f *sampleFilter) Flags(flags *flag.FlagSet, cfg *Config) {
	flags.StringVar(&f.FreezeType, "freeze-type", cfg.FreezeType, "keep samples whose SMAFRZE equals `marker`")
	flags.IntVar(&f.MaxAutolysis, "max-autolysis", cfg.MaxAutolysis, "drop samples with autolysis score >= `N`")
	flags.Float64Var(&f.MinRIN, "min-rin", cfg.MinRIN, "drop samples with RNA integrity number <= `R`")
	flags.StringVar(&f.ExcludeTissues, "exclude-tissues", strings.Join(cfg.ExcludeTissues, ","), "comma-separated `tissues` to drop entirely")
	flags.IntVar(&f.MinBatchSamples, "min-batch-samples", cfg.MinBatchSamples, "drop samples whose extraction batch has <= `N` samples")
}

func (f *sampleFilter) excludeSet() map[string]bool {
	set := map[string]bool{}
	for _, t := range strings.Split(f.ExcludeTissues, ",") {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = true
		}
	}
	return set
}

// applyQualityFilter returns the samples satisfying all four
// eligibility predicates. It never mutates its input; the returned
// slice is always newly allocated.
func applyQualityFilter(in []SampleRecord, f *sampleFilter) ([]SampleRecord, error) {
	if f.FreezeType == "" {
		return nil, &ConfigurationError{Param: "freeze-type", Reason: "must not be empty"}
	}
	if f.MaxAutolysis <= 0 {
		return nil, &ConfigurationError{Param: "max-autolysis", Reason: fmt.Sprintf("%d must be > 0", f.MaxAutolysis)}
	}
	if f.MinRIN <= 0 {
		return nil, &ConfigurationError{Param: "min-rin", Reason: fmt.Sprintf("%g must be > 0", f.MinRIN)}
	}
	exclude := f.excludeSet()
	out := make([]SampleRecord, 0, len(in))
	for _, rec := range in {
		if rec.FreezeType != f.FreezeType {
			continue
		}
		if rec.Autolysis >= f.MaxAutolysis {
			continue
		}
		if rec.RIN <= f.MinRIN {
			continue
		}
		if exclude[rec.Tissue] {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// applyBatchVolumeFilter drops samples from low-volume extraction
// batches. Batch sizes are counted over the full input before any
// sample is dropped, so the threshold reflects pre-subsampling batch
// membership. A batch with exactly min samples is dropped.
func applyBatchVolumeFilter(in []SampleRecord, min int) []SampleRecord {
	count := map[string]int{}
	for _, rec := range in {
		count[rec.Batch]++
	}
	out := make([]SampleRecord, 0, len(in))
	for _, rec := range in {
		if count[rec.Batch] > min {
			out = append(out, rec)
		}
	}
	return out
}
