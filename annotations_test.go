// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"os"
	"path/filepath"

	"gopkg.in/check.v1"
)

type annotationsSuite struct{}

var _ = check.Suite(&annotationsSuite{})

func (s *annotationsSuite) TestLoadSampleAnnotations(c *check.C) {
	samples, err := LoadSampleAnnotations("testdata/annotations.tsv")
	c.Assert(err, check.IsNil)
	c.Assert(len(samples) > 0, check.Equals, true)

	byID := map[string]SampleRecord{}
	for _, rec := range samples {
		byID[rec.SampleID] = rec
	}
	k1 := byID["GTEX-K0001-0001"]
	c.Check(k1.Tissue, check.Equals, "Kidney")
	c.Check(k1.DetailedTissue, check.Equals, "Kidney - Cortex")
	c.Check(k1.Batch, check.Equals, "BP-10001")
	c.Check(k1.Autolysis, check.Equals, 1)
	c.Check(k1.RIN, check.Equals, 7.5)
	c.Check(k1.FreezeType, check.Equals, "RNASEQ")
}

func (s *annotationsSuite) TestDuplicateSampleID(c *check.C) {
	path := filepath.Join(c.MkDir(), "dup.tsv")
	err := os.WriteFile(path, []byte("SAMPID\tSMTS\ndup-1\tSkin\ndup-1\tSkin\n"), 0644)
	c.Assert(err, check.IsNil)
	_, err = LoadSampleAnnotations(path)
	c.Check(err, check.ErrorMatches, `.*duplicate SAMPID "dup-1".*`)
}

func (s *annotationsSuite) TestLoadDictionary(c *check.C) {
	dict, err := LoadDictionary("testdata/dictionary.tsv")
	c.Assert(err, check.IsNil)
	c.Check(dict["SMRIN"], check.Equals, "RNA integrity number")
	c.Check(dict["SMATSSCR"], check.Equals, "Autolysis score (0 none - 3 severe)")
}
