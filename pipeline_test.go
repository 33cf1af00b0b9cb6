// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/kshedden/gonpy"
	"gopkg.in/check.v1"
)

type pipelineSuite struct{}

var _ = check.Suite(&pipelineSuite{})

// Run the whole pipeline on the testdata annotation set: 4 Kidney and
// 4 Skin samples survive the quality filters (one Skin fails RIN, one
// fails autolysis, the Lung sample is outside the freeze, Bladder is
// excluded by config), subsampling caps each detailed tissue at 3.
func (s *pipelineSuite) TestPipeline(c *check.C) {
	tmpdir := c.MkDir()
	samplesFile := filepath.Join(tmpdir, "samples.csv")

	var stdout, stderr bytes.Buffer
	exited := (&chooseSamples{}).RunCommand("tpmheat choose-samples", []string{
		"-config", "testdata/config.yaml",
		"-annotations", "testdata/annotations.tsv",
		"-dictionary", "testdata/dictionary.tsv",
		"-o", samplesFile,
	}, nil, &stdout, &stderr)
	c.Logf("%s", stderr.String())
	c.Assert(exited, check.Equals, 0)

	sheet, err := readSampleSheet(samplesFile)
	c.Assert(err, check.IsNil)
	c.Assert(sheet, check.HasLen, 6)
	perTissue := map[string]int{}
	for _, row := range sheet {
		perTissue[row.Tissue]++
	}
	c.Check(perTissue, check.DeepEquals, map[string]int{"Kidney": 3, "Skin": 3})

	stdout.Reset()
	stderr.Reset()
	exited = (&buildMatrix{}).RunCommand("tpmheat build-matrix", []string{
		"-samples", samplesFile,
		"-gct", "testdata/expression.gct.gz",
		"-biotypes", "testdata/biotypes.tsv",
		"-output-dir", tmpdir,
	}, nil, &stdout, &stderr)
	c.Logf("%s", stderr.String())
	c.Assert(exited, check.Equals, 0)
	c.Check(stdout.String(), check.Equals, filepath.Join(tmpdir, "matrix.npy")+"\n")

	// RARE1 falls below the mean TPM threshold, PSEUDO1 is not
	// protein_coding: 3 genes remain.
	nf, err := os.Open(filepath.Join(tmpdir, "matrix.npy"))
	c.Assert(err, check.IsNil)
	defer nf.Close()
	npy, err := gonpy.NewReader(nf)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{3, 6})
	data, err := npy.GetFloat64()
	c.Assert(err, check.IsNil)
	c.Assert(data, check.HasLen, 18)

	columns, err := readSampleSheet(filepath.Join(tmpdir, "columns.csv"))
	c.Assert(err, check.IsNil)
	c.Assert(columns, check.HasLen, 6)
	// Default tissue order puts Kidney before Skin.
	for i, row := range columns {
		if i < 3 {
			c.Check(row.Tissue, check.Equals, "Kidney")
		} else {
			c.Check(row.Tissue, check.Equals, "Skin")
		}
	}

	var manifest matrixManifest
	buf, err := os.ReadFile(filepath.Join(tmpdir, "manifest.json"))
	c.Assert(err, check.IsNil)
	c.Assert(json.Unmarshal(buf, &manifest), check.IsNil)
	c.Check(manifest.Genes, check.Equals, 3)
	c.Check(manifest.Samples, check.Equals, 6)
	c.Check(manifest.Stats.TotalGenes, check.Equals, 5)
	c.Check(manifest.Stats.BiotypeKept, check.Equals, 4)
	c.Check(manifest.Stats.AbundanceKept, check.Equals, 3)
	c.Check(manifest.OutputDigests["matrix.npy"], check.HasLen, 64)

	stdout.Reset()
	stderr.Reset()
	pngFile := filepath.Join(tmpdir, "heatmap.png")
	exited = (&heatmapcmd{}).RunCommand("tpmheat heatmap", []string{
		"-input-dir", tmpdir,
		"-cell-width", "4",
		"-cell-height", "4",
		"-o", pngFile,
	}, nil, &stdout, &stderr)
	c.Logf("%s", stderr.String())
	c.Assert(exited, check.Equals, 0)
	f, err := os.Open(pngFile)
	c.Assert(err, check.IsNil)
	defer f.Close()
	img, err := png.Decode(f)
	c.Assert(err, check.IsNil)
	c.Check(img.Bounds().Dx(), check.Equals, 6*4)
	c.Check(img.Bounds().Dy(), check.Equals, 3*4+12)

	stdout.Reset()
	stderr.Reset()
	pcaFile := filepath.Join(tmpdir, "pca.npy")
	exited = (&pcacmd{}).RunCommand("tpmheat pca", []string{
		"-input-dir", tmpdir,
		"-components", "2",
		"-o", pcaFile,
	}, nil, &stdout, &stderr)
	c.Logf("%s", stderr.String())
	c.Assert(exited, check.Equals, 0)
	pf, err := os.Open(pcaFile)
	c.Assert(err, check.IsNil)
	defer pf.Close()
	npy, err = gonpy.NewReader(pf)
	c.Assert(err, check.IsNil)
	c.Check(npy.Shape, check.DeepEquals, []int{6, 2})

	stdout.Reset()
	stderr.Reset()
	markersFile := filepath.Join(tmpdir, "markers.csv")
	exited = (&markerscmd{}).RunCommand("tpmheat markers", []string{
		"-input-dir", tmpdir,
		"-tissue", "Skin",
		"-o", markersFile,
	}, nil, &stdout, &stderr)
	c.Logf("%s", stderr.String())
	c.Assert(exited, check.Equals, 0)
	mf, err := os.Open(markersFile)
	c.Assert(err, check.IsNil)
	defer mf.Close()
	var results []markerResult
	c.Assert(gocsv.Unmarshal(mf, &results), check.IsNil)
	c.Assert(results, check.HasLen, 3)

	stdout.Reset()
	stderr.Reset()
	exited = (&statscmd{}).RunCommand("tpmheat stats", []string{
		"-input-dir", tmpdir,
		"-o", "-",
	}, nil, &stdout, &stderr)
	c.Logf("%s", stderr.String())
	c.Assert(exited, check.Equals, 0)
	var stats struct {
		Genes   int
		Samples int
		Tissues int
	}
	c.Assert(json.Unmarshal(stdout.Bytes(), &stats), check.IsNil)
	c.Check(stats.Genes, check.Equals, 3)
	c.Check(stats.Samples, check.Equals, 6)
	c.Check(stats.Tissues, check.Equals, 2)
}

func (s *pipelineSuite) TestChooseSamplesMissingAnnotations(c *check.C) {
	var stdout, stderr bytes.Buffer
	exited := (&chooseSamples{}).RunCommand("tpmheat choose-samples", nil, nil, &stdout, &stderr)
	c.Check(exited, check.Equals, 2)
	c.Check(stderr.String(), check.Matches, `(?ms).*-annotations.*`)
}

func (s *pipelineSuite) TestBuildMatrixUnknownSample(c *check.C) {
	tmpdir := c.MkDir()
	samplesFile := filepath.Join(tmpdir, "samples.csv")
	err := writeSampleSheet(samplesFile, []chosenSample{{
		SampleID:       "GTEX-ZZZZ-0001",
		Tissue:         "Kidney",
		DetailedTissue: "Kidney - Cortex",
		Batch:          "BP-10001",
	}})
	c.Assert(err, check.IsNil)

	var stdout, stderr bytes.Buffer
	exited := (&buildMatrix{}).RunCommand("tpmheat build-matrix", []string{
		"-samples", samplesFile,
		"-gct", "testdata/expression.gct",
		"-biotypes", "testdata/biotypes.tsv",
		"-output-dir", tmpdir,
	}, nil, &stdout, &stderr)
	c.Check(exited, check.Equals, 1)
	c.Check(stderr.String(), check.Matches, `(?ms).*GTEX-ZZZZ-0001.*`)
}
