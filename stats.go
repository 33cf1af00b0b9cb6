// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	log "github.com/sirupsen/logrus"
)

// statscmd summarizes an assembled matrix as JSON.
type statscmd struct{}

func (cmd *statscmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputDir := flags.String("input-dir", ".", "build-matrix output `directory`")
	outputFilename := flags.String("o", "-", "output `file`")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	}

	var output io.WriteCloser
	if *outputFilename == "-" {
		output = nopCloser{stdout}
	} else {
		output, err = os.OpenFile(*outputFilename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err != nil {
			return 1
		}
		defer output.Close()
	}

	bufw := bufio.NewWriter(output)
	err = cmd.doStats(*inputDir, bufw)
	if err != nil {
		return 1
	}
	err = bufw.Flush()
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

func (cmd *statscmd) doStats(dir string, output io.Writer) error {
	var ret struct {
		Genes            int
		Samples          int
		Tissues          int
		SamplesPerTissue map[string]int
		MinValue         float64
		MaxValue         float64
		MeanValue        float64
	}

	matrix, tissues, err := readMatrixDir(dir)
	if err != nil {
		return err
	}
	ret.Genes, ret.Samples = matrix.Dims()
	ret.SamplesPerTissue = map[string]int{}
	for _, t := range tissues {
		ret.SamplesPerTissue[t]++
	}
	ret.Tissues = len(ret.SamplesPerTissue)

	ret.MinValue, ret.MaxValue = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for i := 0; i < ret.Genes; i++ {
		for _, v := range matrix.Data.RawRowView(i) {
			if v < ret.MinValue {
				ret.MinValue = v
			}
			if v > ret.MaxValue {
				ret.MaxValue = v
			}
			sum += v
		}
	}
	if n := ret.Genes * ret.Samples; n > 0 {
		ret.MeanValue = sum / float64(n)
	}
	log.Debugf("stats: %d genes x %d samples, %d tissues", ret.Genes, ret.Samples, ret.Tissues)

	return json.NewEncoder(output).Encode(ret)
}
