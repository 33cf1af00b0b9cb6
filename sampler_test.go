// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"fmt"

	"gopkg.in/check.v1"
)

type samplerSuite struct{}

var _ = check.Suite(&samplerSuite{})

func makeGroup(tissue, detailed string, n int) []SampleRecord {
	out := make([]SampleRecord, n)
	for i := range out {
		out[i] = SampleRecord{
			SampleID:       fmt.Sprintf("%s-%04d", detailed, i),
			Tissue:         tissue,
			DetailedTissue: detailed,
			Batch:          "BP-1",
			RIN:            7.5,
			FreezeType:     "RNASEQ",
		}
	}
	return out
}

func (s *samplerSuite) TestGroupSizes(c *check.C) {
	var in []SampleRecord
	in = append(in, makeGroup("Brain", "Brain - Cortex", 100)...)
	in = append(in, makeGroup("Brain", "Brain - Cerebellum", 45)...)
	in = append(in, makeGroup("Kidney", "Kidney - Cortex", 7)...)
	out := balancedSample(in, 45, 1)
	c.Check(out, check.HasLen, 45+45+7)

	sizes := map[string]int{}
	for _, rec := range out {
		sizes[rec.DetailedTissue]++
	}
	c.Check(sizes["Brain - Cortex"], check.Equals, 45)
	c.Check(sizes["Brain - Cerebellum"], check.Equals, 45)
	c.Check(sizes["Kidney - Cortex"], check.Equals, 7)
}

func (s *samplerSuite) TestSameSeedSameSet(c *check.C) {
	in := makeGroup("Skin", "Skin - Sun Exposed", 200)
	a := balancedSample(in, 45, 4019)
	b := balancedSample(in, 45, 4019)
	c.Check(a, check.DeepEquals, b)

	other := balancedSample(in, 45, 4020)
	c.Check(other, check.HasLen, len(a))
	same := true
	for i := range a {
		if a[i].SampleID != other[i].SampleID {
			same = false
		}
	}
	c.Check(same, check.Equals, false)
}

func (s *samplerSuite) TestNoDuplicates(c *check.C) {
	var in []SampleRecord
	in = append(in, makeGroup("Skin", "Skin - Sun Exposed", 60)...)
	in = append(in, makeGroup("Skin", "Skin - Not Sun Exposed", 60)...)
	out := balancedSample(in, 45, 7)
	seen := map[string]bool{}
	for _, rec := range out {
		c.Assert(seen[rec.SampleID], check.Equals, false, check.Commentf("duplicate %s", rec.SampleID))
		seen[rec.SampleID] = true
	}
	c.Check(out, check.HasLen, 90)
}

// The documented end-to-end scenario: Bladder 11 samples (excluded),
// Kidney 43 (below cap, kept whole), Skin 200 (capped at 45).
func (s *samplerSuite) TestChooseScenario(c *check.C) {
	var in []SampleRecord
	in = append(in, makeGroup("Bladder", "Bladder", 11)...)
	in = append(in, makeGroup("Kidney", "Kidney - Cortex", 43)...)
	in = append(in, makeGroup("Skin", "Skin - Sun Exposed", 200)...)

	f := defaultFilter()
	f.ExcludeTissues = "Bladder"
	eligible, err := applyQualityFilter(in, f)
	c.Assert(err, check.IsNil)
	c.Check(eligible, check.HasLen, 243)

	batched := applyBatchVolumeFilter(eligible, f.MinBatchSamples)
	c.Check(batched, check.HasLen, 243) // one big batch

	chosen := balancedSample(batched, 45, 4019)
	c.Check(chosen, check.HasLen, 88)
}
