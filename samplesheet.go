// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// chosenSample is one row of the sample sheet passed between
// pipeline stages (choose-samples output, build-matrix input).
type chosenSample struct {
	SampleID       string `csv:"SampleID"`
	Tissue         string `csv:"Tissue"`
	DetailedTissue string `csv:"DetailedTissue"`
	Batch          string `csv:"Batch"`
}

func writeSampleSheet(path string, rows []chosenSample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gocsv.Marshal(&rows, f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func readSampleSheet(path string) ([]chosenSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rows []chosenSample
	if err := gocsv.UnmarshalCSV(csv.NewReader(f), &rows); err != nil {
		return nil, fmt.Errorf("parse sample sheet %s: %w", path, err)
	}
	return rows, nil
}
