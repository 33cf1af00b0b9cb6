// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"fmt"

	"gopkg.in/check.v1"
)

type qualityFilterSuite struct{}

var _ = check.Suite(&qualityFilterSuite{})

func defaultFilter() *sampleFilter {
	return &sampleFilter{
		FreezeType:      "RNASEQ",
		MaxAutolysis:    3,
		MinRIN:          6,
		MinBatchSamples: 20,
	}
}

func (s *qualityFilterSuite) TestPredicates(c *check.C) {
	base := SampleRecord{
		SampleID: "GTEX-AAAA-0001", Tissue: "Skin", DetailedTissue: "Skin - Sun Exposed",
		Batch: "BP-1", Autolysis: 1, RIN: 7.2, FreezeType: "RNASEQ",
	}
	for _, trial := range []struct {
		mutate func(*SampleRecord)
		filter func(*sampleFilter)
		kept   bool
	}{
		{func(r *SampleRecord) {}, func(f *sampleFilter) {}, true},
		{func(r *SampleRecord) { r.FreezeType = "EXCLUDE" }, func(f *sampleFilter) {}, false},
		{func(r *SampleRecord) { r.Autolysis = 3 }, func(f *sampleFilter) {}, false},
		{func(r *SampleRecord) { r.Autolysis = 2 }, func(f *sampleFilter) {}, true},
		{func(r *SampleRecord) { r.RIN = 6 }, func(f *sampleFilter) {}, false}, // strict >
		{func(r *SampleRecord) { r.RIN = 6.1 }, func(f *sampleFilter) {}, true},
		{func(r *SampleRecord) {}, func(f *sampleFilter) { f.ExcludeTissues = "Skin,Bladder" }, false},
		{func(r *SampleRecord) {}, func(f *sampleFilter) { f.ExcludeTissues = "Bladder" }, true},
	} {
		rec := base
		trial.mutate(&rec)
		f := defaultFilter()
		trial.filter(f)
		out, err := applyQualityFilter([]SampleRecord{rec}, f)
		c.Assert(err, check.IsNil)
		c.Check(len(out) == 1, check.Equals, trial.kept, check.Commentf("%+v filter %+v", rec, f))
	}
}

func (s *qualityFilterSuite) TestOutputIsSubset(c *check.C) {
	in := []SampleRecord{
		{SampleID: "a", Tissue: "Skin", RIN: 7, FreezeType: "RNASEQ"},
		{SampleID: "b", Tissue: "Skin", RIN: 5, FreezeType: "RNASEQ"},
		{SampleID: "c", Tissue: "Lung", RIN: 8, Autolysis: 3, FreezeType: "RNASEQ"},
		{SampleID: "d", Tissue: "Lung", RIN: 8, FreezeType: "EXCLUDE"},
	}
	out, err := applyQualityFilter(in, defaultFilter())
	c.Assert(err, check.IsNil)
	c.Check(out, check.HasLen, 1)
	c.Check(out[0].SampleID, check.Equals, "a")
	// input untouched
	c.Check(in, check.HasLen, 4)
}

func (s *qualityFilterSuite) TestConfigurationErrors(c *check.C) {
	in := []SampleRecord{{SampleID: "a", RIN: 7, FreezeType: "RNASEQ"}}
	for _, f := range []*sampleFilter{
		{FreezeType: "", MaxAutolysis: 3, MinRIN: 6},
		{FreezeType: "RNASEQ", MaxAutolysis: 0, MinRIN: 6},
		{FreezeType: "RNASEQ", MaxAutolysis: 3, MinRIN: 0},
	} {
		_, err := applyQualityFilter(in, f)
		c.Check(err, check.FitsTypeOf, &ConfigurationError{}, check.Commentf("%+v", f))
	}
}

func (s *qualityFilterSuite) TestBatchVolumeStrictThreshold(c *check.C) {
	var in []SampleRecord
	for i := 0; i < 20; i++ {
		in = append(in, SampleRecord{SampleID: fmt.Sprintf("at-%d", i), Batch: "at-threshold"})
	}
	for i := 0; i < 21; i++ {
		in = append(in, SampleRecord{SampleID: fmt.Sprintf("ab-%d", i), Batch: "above-threshold"})
	}
	out := applyBatchVolumeFilter(in, 20)
	c.Check(out, check.HasLen, 21)
	for _, rec := range out {
		c.Check(rec.Batch, check.Equals, "above-threshold")
	}
}

func (s *qualityFilterSuite) TestBatchVolumeIdempotent(c *check.C) {
	var in []SampleRecord
	for i := 0; i < 25; i++ {
		in = append(in, SampleRecord{SampleID: string(rune('a' + i)), Batch: "big"})
	}
	in = append(in, SampleRecord{SampleID: "solo", Batch: "small"})
	once := applyBatchVolumeFilter(in, 20)
	twice := applyBatchVolumeFilter(once, 20)
	c.Check(twice, check.DeepEquals, once)
}
