// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/pgzip"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// openExpression opens a GCT file, transparently decompressing
// .gz input.
func openExpression(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := pgzip.NewReader(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return gzReadCloser{gz, f}, nil
}

type gzReadCloser struct {
	*pgzip.Reader
	f *os.File
}

func (g gzReadCloser) Close() error {
	err := g.Reader.Close()
	if err2 := g.f.Close(); err == nil {
		err = err2
	}
	return err
}

type biotypeEntry struct {
	GeneID  string `csv:"gene_id"`
	Biotype string `csv:"biotype"`
}

// loadBiotypes reads the tab-delimited gene-biotype reference table.
// Keys are stable gene IDs with any version suffix stripped.
func loadBiotypes(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var entries []biotypeEntry
	if err := gocsv.UnmarshalCSV(tsvReader(f), &entries); err != nil {
		return nil, fmt.Errorf("parse biotypes %s: %w", path, err)
	}
	biotypes := make(map[string]string, len(entries))
	for _, e := range entries {
		biotypes[trimGeneVersion(e.GeneID)] = e.Biotype
	}
	return biotypes, nil
}

// trimGeneVersion strips the ".N" version suffix from a stable gene
// identifier (ENSG00000123456.7 -> ENSG00000123456).
func trimGeneVersion(id string) string {
	if i := strings.IndexByte(id, '.'); i >= 0 {
		return id[:i]
	}
	return id
}

// loaderStats counts what each gene filter removed.
type loaderStats struct {
	TotalGenes     int // data rows in the source file
	BiotypeKept    int // rows surviving the protein_coding restriction
	AbundanceKept  int // rows also surviving the mean TPM threshold
	SourceSamples  int // sample columns in the source file
	ChosenSamples  int // columns selected
	SkippedNoValue int // cells that failed numeric parsing
}

// loadExpression streams a GCT file (version line, dims line, then
// "Name<TAB>Description<TAB>samples..."), keeping only the requested
// sample columns, genes whose biotype is "protein_coding", and genes
// whose mean TPM over the selected samples exceeds minMean. Column
// order in the result matches sampleIDs exactly. Only the selected
// columns of retained genes are ever materialized.
func loadExpression(r io.Reader, sampleIDs []string, biotypes map[string]string, minMean float64) (*ExpressionMatrix, loaderStats, error) {
	var stats loaderStats
	tsv := csv.NewReader(bufio.NewReaderSize(r, 1<<20))
	tsv.Comma = '\t'
	tsv.LazyQuotes = true
	tsv.FieldsPerRecord = -1

	// Version and dimension lines.
	if _, err := tsv.Read(); err != nil {
		return nil, stats, fmt.Errorf("read GCT version line: %w", err)
	}
	if _, err := tsv.Read(); err != nil {
		return nil, stats, fmt.Errorf("read GCT dimensions line: %w", err)
	}
	header, err := tsv.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read GCT header: %w", err)
	}
	if len(header) < 3 || header[0] != "Name" {
		return nil, stats, fmt.Errorf("unexpected GCT header (want Name, Description, samples...): %q", header)
	}
	colOf := make(map[string]int, len(header)-2)
	for i, id := range header[2:] {
		colOf[id] = i + 2
	}
	stats.SourceSamples = len(header) - 2
	stats.ChosenSamples = len(sampleIDs)

	cols := make([]int, len(sampleIDs))
	var missing []string
	for i, id := range sampleIDs {
		c, ok := colOf[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		cols[i] = c
	}
	if len(missing) > 0 {
		return nil, stats, &MissingSampleError{Stage: "expression matrix", SampleIDs: missing}
	}

	var genes []GeneInfo
	var data []float64
	vals := make([]float64, len(sampleIDs))
	for {
		record, err := tsv.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, stats, fmt.Errorf("read GCT row %d: %w", stats.TotalGenes+4, err)
		}
		stats.TotalGenes++
		if len(record) < 2 {
			continue
		}
		id, name := record[0], record[1]
		if biotypes[trimGeneVersion(id)] != "protein_coding" {
			continue
		}
		stats.BiotypeKept++
		for i, c := range cols {
			if c >= len(record) {
				return nil, stats, fmt.Errorf("GCT row for %s has %d fields, want >= %d", id, len(record), c+1)
			}
			v, err := strconv.ParseFloat(record[c], 64)
			if err != nil {
				stats.SkippedNoValue++
				v = 0
			}
			vals[i] = v
		}
		mean := floats.Sum(vals) / float64(len(vals))
		// Filter on log mean TPM; a zero mean fails trivially
		// without evaluating the log.
		if mean <= 0 || math.Log(mean)-math.Log(minMean) <= 0 {
			continue
		}
		stats.AbundanceKept++
		genes = append(genes, GeneInfo{ID: id, Name: name})
		data = append(data, vals...)
	}

	if len(genes) == 0 {
		return nil, stats, &EmptyResultWarning{Stage: "gene filter"}
	}
	m := &ExpressionMatrix{
		Genes:   genes,
		Samples: append([]string(nil), sampleIDs...),
		Data:    mat.NewDense(len(genes), len(sampleIDs), data),
	}
	return m, stats, nil
}
