// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/kshedden/gonpy"
	"gonum.org/v1/gonum/mat"
)

// readMatrixDir loads a build-matrix output directory (matrix.npy,
// genes.csv, columns.csv) back into an ExpressionMatrix, plus the
// coarse tissue of each column. Columns come back in exactly the
// order they were assembled.
func readMatrixDir(dir string) (*ExpressionMatrix, []string, error) {
	npyPath := filepath.Join(dir, "matrix.npy")
	f, err := os.Open(npyPath)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	npr, err := gonpy.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", npyPath, err)
	}
	data, err := npr.GetFloat64()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", npyPath, err)
	}
	if len(npr.Shape) != 2 {
		return nil, nil, fmt.Errorf("%s: want 2-dimensional array, got shape %v", npyPath, npr.Shape)
	}
	rows, cols := npr.Shape[0], npr.Shape[1]

	genesPath := filepath.Join(dir, "genes.csv")
	gf, err := os.Open(genesPath)
	if err != nil {
		return nil, nil, err
	}
	defer gf.Close()
	var geneRows []geneMapRow
	if err := gocsv.UnmarshalCSV(csv.NewReader(gf), &geneRows); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", genesPath, err)
	}
	if len(geneRows) != rows {
		return nil, nil, fmt.Errorf("%s has %d genes but matrix has %d rows", genesPath, len(geneRows), rows)
	}

	sheet, err := readSampleSheet(filepath.Join(dir, "columns.csv"))
	if err != nil {
		return nil, nil, err
	}
	if len(sheet) != cols {
		return nil, nil, fmt.Errorf("columns.csv has %d samples but matrix has %d columns", len(sheet), cols)
	}

	genes := make([]GeneInfo, rows)
	for i, g := range geneRows {
		genes[i] = GeneInfo{ID: g.GeneID, Name: g.GeneName}
	}
	samples := make([]string, cols)
	tissues := make([]string, cols)
	for i, row := range sheet {
		samples[i] = row.SampleID
		tissues[i] = row.Tissue
	}
	m := &ExpressionMatrix{
		Genes:   genes,
		Samples: samples,
		Data:    mat.NewDense(rows, cols, data),
	}
	if err := m.check(); err != nil {
		return nil, nil, err
	}
	return m, tissues, nil
}
