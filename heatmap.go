// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"flag"
	"fmt"
	"image/png"
	"io"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/fogleman/gg"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// heatmapcmd renders a build-matrix output directory as a PNG:
// gene rows ordered by expression similarity, sample columns kept in
// assembled (tissue) order, with a tissue color bar on top.
type heatmapcmd struct{}

func (cmd *heatmapcmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	inputDir := flags.String("input-dir", ".", "build-matrix output `directory`")
	outputFile := flags.String("o", "", "output `filename` (e.g., './heatmap.png')")
	colormapName := flags.String("colormap", DefaultConfig().Colormap, "colormap `name` (viridis, plasma, magma)")
	metricName := flags.String("metric", string(distPearson), "row clustering distance `metric` (euclidean or pearson)")
	cellWidth := flags.Int("cell-width", 2, "cell width in `pixels`")
	cellHeight := flags.Int("cell-height", 1, "cell height in `pixels`")
	tissueBarHeight := flags.Int("tissue-bar", 12, "tissue color bar height in `pixels` (0 = none)")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if *outputFile == "" {
		fmt.Fprintln(stderr, "error: must specify -o filename.png (or try -help)")
		return 1
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

	cmap, ok := colormaps[*colormapName]
	if !ok {
		err = fmt.Errorf("unknown colormap %q", *colormapName)
		return 1
	}
	metric, err := parseMetric(*metricName)
	if err != nil {
		return 1
	}

	log.Infof("reading matrix from %s", *inputDir)
	matrix, tissues, err := readMatrixDir(*inputDir)
	if err != nil {
		return 1
	}
	rows, cols := matrix.Dims()

	log.Infof("clustering %d gene rows (%s)", rows, metric)
	rowOrder := clusterRows(matrix.Data, metric)

	log.Infof("rendering %d x %d heatmap to %s", rows, cols, *outputFile)
	img := renderHeatmap(matrix.Data, rowOrder, tissues, cmap, *cellWidth, *cellHeight, *tissueBarHeight)
	f, err := os.Create(*outputFile)
	if err != nil {
		return 1
	}
	defer f.Close()
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err = enc.Encode(f, img.Image()); err != nil {
		return 1
	}
	if err = f.Close(); err != nil {
		return 1
	}
	log.Info("done")
	return 0
}

// renderHeatmap draws the matrix cells row by row in rowOrder,
// columns in matrix order, preceded by a categorical tissue bar.
// Cell color is the matrix value min-max normalized into the
// colormap.
func renderHeatmap(m *mat.Dense, rowOrder []int, tissues []string, cmap colormap, cellW, cellH, barH int) *gg.Context {
	rows, cols := m.Dims()
	width := cols * cellW
	height := rows*cellH + barH
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	if barH > 0 {
		tissueIdx := map[string]int{}
		for col, t := range tissues {
			idx, ok := tissueIdx[t]
			if !ok {
				idx = len(tissueIdx)
				tissueIdx[t] = idx
			}
			dc.SetColor(tissueColor(idx))
			dc.DrawRectangle(float64(col*cellW), 0, float64(cellW), float64(barH))
			dc.Fill()
		}
	}

	min, max := math.Inf(1), math.Inf(-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	for outRow, row := range rowOrder {
		y := float64(barH + outRow*cellH)
		for col := 0; col < cols; col++ {
			t := (m.At(row, col) - min) / span
			dc.SetColor(cmap.at(t))
			dc.DrawRectangle(float64(col*cellW), y, float64(cellW), float64(cellH))
			dc.Fill()
		}
	}
	return dc
}
