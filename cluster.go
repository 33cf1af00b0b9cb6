// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Row clustering is a collaborator of the pipeline, not part of it:
// the only contract is clusterRows(matrix, metric) -> row ordering.
// The implementation here is plain average-linkage hierarchical
// clustering; callers depend only on getting back a permutation.

type distanceMetric string

const (
	distEuclidean distanceMetric = "euclidean"
	distPearson   distanceMetric = "pearson"
)

func parseMetric(name string) (distanceMetric, error) {
	switch distanceMetric(name) {
	case distEuclidean, distPearson:
		return distanceMetric(name), nil
	}
	return "", fmt.Errorf("unknown distance metric %q (want euclidean or pearson)", name)
}

// distanceMatrix computes pairwise distances between matrix rows.
// Rows of the result are filled in parallel.
func distanceMatrix(m *mat.Dense, metric distanceMetric) [][]float64 {
	n, _ := m.Dims()
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	var workers limiter
	workers.Max = runtime.NumCPU()
	for i := 0; i < n; i++ {
		i := i
		workers.Go(func() error {
			ri := m.RawRowView(i)
			for j := i + 1; j < n; j++ {
				d := rowDistance(ri, m.RawRowView(j), metric)
				dist[i][j] = d
				dist[j][i] = d
			}
			return nil
		})
	}
	workers.Wait()
	return dist
}

func rowDistance(a, b []float64, metric distanceMetric) float64 {
	switch metric {
	case distPearson:
		r := stat.Correlation(a, b, nil)
		if math.IsNaN(r) {
			// Zero-variance row; treat as maximally distant.
			return 2
		}
		return 1 - r
	default:
		sum := 0.0
		for k := range a {
			d := a[k] - b[k]
			sum += d * d
		}
		return math.Sqrt(sum)
	}
}

// clusterRows returns a permutation of row indices grouping rows
// with similar expression profiles: average-linkage agglomerative
// clustering, leaf order from an in-order walk of the merge tree.
// Deterministic for a given matrix.
func clusterRows(m *mat.Dense, metric distanceMetric) []int {
	n, _ := m.Dims()
	if n < 2 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}
	dist := distanceMatrix(m, metric)

	// leaves[c] lists the original rows under cluster c, in merge
	// order. size-weighted Lance-Williams update keeps dist as
	// average linkage between live clusters.
	leaves := make([][]int, n)
	size := make([]int, n)
	live := make([]bool, n)
	for i := 0; i < n; i++ {
		leaves[i] = []int{i}
		size[i] = 1
		live[i] = true
	}
	for merges := 0; merges < n-1; merges++ {
		bi, bj, best := -1, -1, math.Inf(1)
		for i := 0; i < n; i++ {
			if !live[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if live[j] && dist[i][j] < best {
					bi, bj, best = i, j, dist[i][j]
				}
			}
		}
		// Merge bj into bi.
		for k := 0; k < n; k++ {
			if live[k] && k != bi && k != bj {
				d := (float64(size[bi])*dist[bi][k] + float64(size[bj])*dist[bj][k]) / float64(size[bi]+size[bj])
				dist[bi][k] = d
				dist[k][bi] = d
			}
		}
		leaves[bi] = append(leaves[bi], leaves[bj]...)
		size[bi] += size[bj]
		live[bj] = false
		leaves[bj] = nil
	}
	for i := 0; i < n; i++ {
		if live[i] {
			return leaves[i]
		}
	}
	panic("unreached")
}
