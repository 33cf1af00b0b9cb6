// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// GeneInfo identifies one matrix row. ID is the stable identifier
// (unique); Name is the display symbol and may collide across rows.
type GeneInfo struct {
	ID   string
	Name string
}

// ExpressionMatrix is a genes x samples TPM (or log TPM) matrix.
// Rows match Genes, columns match Samples, in order.
type ExpressionMatrix struct {
	Genes   []GeneInfo
	Samples []string
	Data    *mat.Dense
}

func (m *ExpressionMatrix) Dims() (genes, samples int) {
	return len(m.Genes), len(m.Samples)
}

// Column returns the expression values for one sample, in row
// (gene) order. Column order is exactly as assembled; there is no
// resort on access.
func (m *ExpressionMatrix) Column(sampleID string) ([]float64, error) {
	for i, id := range m.Samples {
		if id == sampleID {
			return mat.Col(nil, i, m.Data), nil
		}
	}
	return nil, &MissingSampleError{Stage: "matrix column lookup", SampleIDs: []string{sampleID}}
}

// check verifies the row/column identifier postconditions: unique
// gene IDs, unique sample IDs, dimensions matching the backing array.
func (m *ExpressionMatrix) check() error {
	rows, cols := m.Data.Dims()
	if rows != len(m.Genes) || cols != len(m.Samples) {
		return fmt.Errorf("matrix dims %dx%d do not match %d genes x %d samples", rows, cols, len(m.Genes), len(m.Samples))
	}
	seen := make(map[string]bool, len(m.Genes))
	for _, g := range m.Genes {
		if seen[g.ID] {
			return fmt.Errorf("duplicate gene ID %q", g.ID)
		}
		seen[g.ID] = true
	}
	seen = make(map[string]bool, len(m.Samples))
	for _, id := range m.Samples {
		if seen[id] {
			return fmt.Errorf("duplicate sample ID %q", id)
		}
		seen[id] = true
	}
	return nil
}

// arrangeByTissue returns a new matrix with columns ordered by the
// position of each sample's coarse tissue in tissueOrder. Samples
// sharing a tissue keep their relative order (stable sort).
func arrangeByTissue(m *ExpressionMatrix, tissueOf map[string]string, tissueOrder []string) (*ExpressionMatrix, error) {
	pos := make(map[string]int, len(tissueOrder))
	for i, t := range tissueOrder {
		pos[t] = i
	}
	perm := make([]int, len(m.Samples))
	for i := range perm {
		perm[i] = i
	}
	for _, i := range perm {
		tissue := tissueOf[m.Samples[i]]
		if _, ok := pos[tissue]; !ok {
			return nil, &UnknownTissueError{SampleID: m.Samples[i], Tissue: tissue}
		}
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return pos[tissueOf[m.Samples[perm[a]]]] < pos[tissueOf[m.Samples[perm[b]]]]
	})

	rows, cols := m.Data.Dims()
	out := mat.NewDense(rows, cols, nil)
	samples := make([]string, cols)
	for newcol, oldcol := range perm {
		samples[newcol] = m.Samples[oldcol]
		for row := 0; row < rows; row++ {
			out.Set(row, newcol, m.Data.At(row, oldcol))
		}
	}
	return &ExpressionMatrix{Genes: m.Genes, Samples: samples, Data: out}, nil
}

// logTransform returns a new matrix with log(x + pseudocount)
// applied to every cell. It must run after all abundance filtering;
// the pseudocount keeps zero TPM cells finite.
func logTransform(m *ExpressionMatrix, pseudocount float64) (*ExpressionMatrix, error) {
	if pseudocount <= 0 {
		return nil, &ConfigurationError{Param: "pseudocount", Reason: "must be > 0"}
	}
	rows, cols := m.Data.Dims()
	out := mat.NewDense(rows, cols, nil)
	out.Apply(func(_, _ int, v float64) float64 {
		return math.Log(v + pseudocount)
	}, m.Data)
	return &ExpressionMatrix{Genes: m.Genes, Samples: m.Samples, Data: out}, nil
}
