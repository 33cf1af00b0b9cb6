// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
)

// SampleRecord is one row of the GTEx sample annotation table. Field
// tags use the GTEx column names.
type SampleRecord struct {
	SampleID       string  `csv:"SAMPID"`
	Tissue         string  `csv:"SMTS"`  // coarse tissue type
	DetailedTissue string  `csv:"SMTSD"` // e.g. "Brain - Cortex"
	Batch          string  `csv:"SMNABTCH"`
	BatchType      string  `csv:"SMNABTCHT"`
	Autolysis      int     `csv:"SMATSSCR"` // 0 (none) .. 3 (severe)
	RIN            float64 `csv:"SMRIN"`
	FreezeType     string  `csv:"SMAFRZE"`
}

func tsvReader(in io.Reader) *csv.Reader {
	r := csv.NewReader(in)
	r.Comma = '\t'
	r.LazyQuotes = true
	return r
}

// LoadSampleAnnotations reads a tab-delimited sample annotation table
// and verifies that sample IDs are unique.
func LoadSampleAnnotations(path string) ([]SampleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var records []SampleRecord
	if err := gocsv.UnmarshalCSV(tsvReader(f), &records); err != nil {
		return nil, fmt.Errorf("parse annotations %s: %w", path, err)
	}
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec.SampleID == "" {
			return nil, fmt.Errorf("%s: row with empty SAMPID", path)
		}
		if seen[rec.SampleID] {
			return nil, fmt.Errorf("%s: duplicate SAMPID %q", path, rec.SampleID)
		}
		seen[rec.SampleID] = true
	}
	return records, nil
}

type dictionaryEntry struct {
	VarName     string `csv:"VARNAME"`
	Description string `csv:"VARDESC"`
}

// LoadDictionary reads the tab-delimited data dictionary mapping
// annotation column names to descriptions. Used for labeling only.
func LoadDictionary(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var entries []dictionaryEntry
	if err := gocsv.UnmarshalCSV(tsvReader(f), &entries); err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	dict := make(map[string]string, len(entries))
	for _, e := range entries {
		dict[e.VarName] = e.Description
	}
	return dict, nil
}
