// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"math"
	"net/http"
	_ "net/http/pprof"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var glmConfig = &glm.Config{
	Family:         glm.NewFamily(glm.BinomialFamily),
	FitMethod:      "IRLS",
	ConcurrentIRLS: 1000,
	Log:            stdlog.New(io.Discard, "", 0),
}

// markerscmd scans an assembled matrix for genes whose expression
// separates one coarse tissue from the rest: per-gene logistic
// regression of tissue membership on normalized expression, scored
// by likelihood-ratio p-value against an intercept-only model.
type markerscmd struct{}

type markerResult struct {
	GeneID   string  `csv:"GeneID"`
	GeneName string  `csv:"GeneName"`
	PValue   float64 `csv:"PValue"`
}

func (cmd *markerscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	outputFile := flags.String("o", "markers.csv", "output `file`")
	tissue := flags.String("tissue", "", "coarse `tissue` to contrast against all others")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if *tissue == "" {
		fmt.Fprintln(stderr, "cannot scan for markers without -tissue argument")
		return 2
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

	matrix, tissues, err := readMatrixDir(*inputDir)
	if err != nil {
		return 1
	}
	inTissue := 0
	outcome := make([]statmodel.Dtype, len(tissues))
	for i, t := range tissues {
		if t == *tissue {
			outcome[i] = 1
			inTissue++
		}
	}
	if inTissue == 0 {
		err = fmt.Errorf("no samples with tissue %q in %s/columns.csv", *tissue, *inputDir)
		return 1
	} else if inTissue == len(tissues) {
		err = fmt.Errorf("all samples have tissue %q, nothing to contrast", *tissue)
		return 1
	}
	log.Infof("contrasting %d %s samples against %d others", inTissue, *tissue, len(tissues)-inTissue)

	pvalue := markerPvalueFunc(outcome)
	rows, _ := matrix.Dims()
	results := make([]markerResult, rows)
	for i, g := range matrix.Genes {
		results[i] = markerResult{
			GeneID:   g.ID,
			GeneName: g.Name,
			PValue:   pvalue(matrix.Data.RawRowView(i)),
		}
	}
	sort.SliceStable(results, func(a, b int) bool {
		pa, pb := results[a].PValue, results[b].PValue
		switch {
		case math.IsNaN(pa):
			return false
		case math.IsNaN(pb):
			return true
		default:
			return pa < pb
		}
	})

	f, err := os.Create(*outputFile)
	if err != nil {
		return 1
	}
	defer f.Close()
	if err = gocsv.Marshal(&results, f); err != nil {
		return 1
	}
	if err = f.Close(); err != nil {
		return 1
	}
	fmt.Fprintln(stdout, *outputFile)
	return 0
}

func normalize(a []float64) {
	mean, std := stat.MeanStdDev(a, nil)
	if std == 0 {
		std = 1
	}
	for i, x := range a {
		a[i] = (x - mean) / std
	}
}

// markerPvalueFunc fits the intercept-only logistic model once and
// returns a func computing the likelihood-ratio p-value of adding
// one gene's expression as a covariate.
func markerPvalueFunc(outcome []statmodel.Dtype) func(expr []float64) float64 {
	constants := make([]statmodel.Dtype, len(outcome))
	for i := range constants {
		constants[i] = 1
	}
	nullData := [][]statmodel.Dtype{outcome, constants}
	nullNames := []string{"outcome", "constants"}
	dataset := statmodel.NewDataset(nullData, nullNames)

	model, err := glm.NewGLM(dataset, "outcome", nullNames[1:], glmConfig)
	if err != nil {
		log.Printf("%s", err)
		return func([]float64) float64 { return math.NaN() }
	}
	resultNull := model.Fit()
	logNull := resultNull.LogLike()

	return func(expr []float64) (p float64) {
		defer func() {
			if recover() != nil {
				// typically "matrix singular or near-singular with condition number +Inf"
				p = math.NaN()
			}
		}()

		series := make([]statmodel.Dtype, len(expr))
		for i, x := range expr {
			series[i] = statmodel.Dtype(x)
		}
		normalize(series)

		data := [][]statmodel.Dtype{outcome, constants, series}
		names := []string{"outcome", "constants", "expr"}
		dataset := statmodel.NewDataset(data, names)

		model, err := glm.NewGLM(dataset, "outcome", names[1:], glmConfig)
		if err != nil {
			return math.NaN()
		}
		resultComp := model.Fit()
		logComp := resultComp.LogLike()
		dist := distuv.ChiSquared{K: 1}
		return dist.Survival(-2 * (logNull - logComp))
	}
}
