// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/kshedden/gonpy"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// buildMatrix loads the expression source restricted to the chosen
// samples, applies the gene filters, assembles the tissue-ordered
// log-transformed matrix, and writes matrix.npy + genes.csv +
// columns.csv + manifest.json.
type buildMatrix struct{}

type geneMapRow struct {
	GeneID   string `csv:"GeneID"`
	GeneName string `csv:"GeneName"`
}

type matrixManifest struct {
	Genes         int
	Samples       int
	Stats         loaderStats
	TissueOrder   []string
	Pseudocount   float64
	MinMeanTPM    float64
	OutputDigests map[string]string // filename -> blake2b-256 hex
}

func (cmd *buildMatrix) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	pprof := flags.String("pprof", "", "serve Go profile data at http://`[addr]:port`")
	configFile := flags.String("config", "", "pipeline config `yaml`")
	samplesFile := flags.String("samples", "samples.csv", "sample sheet `csv` from choose-samples")
	gctFile := flags.String("gct", "", "expression matrix `gct` (or .gct.gz)")
	biotypesFile := flags.String("biotypes", "", "gene biotype reference `tsv`")
	outputDir := flags.String("output-dir", ".", "output `directory`")
	loglevel := flags.String("loglevel", "info", "logging threshold (trace, debug, info, warn, error, fatal, or panic)")
	def := DefaultConfig()
	minMean := flags.Float64("min-mean-tpm", def.MinMeanTPM, "drop genes whose mean TPM over chosen samples is <= `T`")
	pseudocount := flags.Float64("pseudocount", def.Pseudocount, "`constant` added before the log transform")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if *gctFile == "" || *biotypesFile == "" {
		fmt.Fprintln(stderr, "cannot build matrix without -gct and -biotypes arguments")
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

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		return 1
	}
	if err = cfg.Check(); err != nil {
		return 1
	}
	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["min-mean-tpm"] {
		cfg.MinMeanTPM = *minMean
	}
	if set["pseudocount"] {
		cfg.Pseudocount = *pseudocount
	}

	sheet, err := readSampleSheet(*samplesFile)
	if err != nil {
		return 1
	}
	if len(sheet) == 0 {
		err = fmt.Errorf("sample sheet %s is empty", *samplesFile)
		return 1
	}
	sampleIDs := make([]string, len(sheet))
	tissueOf := make(map[string]string, len(sheet))
	for i, row := range sheet {
		sampleIDs[i] = row.SampleID
		tissueOf[row.SampleID] = row.Tissue
	}

	biotypes, err := loadBiotypes(*biotypesFile)
	if err != nil {
		return 1
	}
	log.Infof("loaded %d biotype entries from %s", len(biotypes), *biotypesFile)

	input, err := openExpression(*gctFile)
	if err != nil {
		return 1
	}
	log.Info("reading expression matrix")
	matrix, stats, err := loadExpression(input, sampleIDs, biotypes, cfg.MinMeanTPM)
	input.Close()
	var empty *EmptyResultWarning
	if errors.As(err, &empty) {
		log.Warn(empty)
		return 1
	} else if err != nil {
		return 1
	}
	log.Infof("gene filters: %d source genes, %d protein_coding, %d above mean TPM %g",
		stats.TotalGenes, stats.BiotypeKept, stats.AbundanceKept, cfg.MinMeanTPM)
	if stats.SkippedNoValue > 0 {
		log.Warnf("%d cells failed numeric parsing and were treated as 0", stats.SkippedNoValue)
	}

	log.Info("arranging columns by tissue")
	matrix, err = arrangeByTissue(matrix, tissueOf, cfg.TissueOrder)
	if err != nil {
		return 1
	}
	matrix, err = logTransform(matrix, cfg.Pseudocount)
	if err != nil {
		return 1
	}
	if err = matrix.check(); err != nil {
		return 1
	}

	err = cmd.writeOutputs(*outputDir, matrix, stats, cfg, sheet)
	if err != nil {
		return 1
	}
	fmt.Fprintln(stdout, filepath.Join(*outputDir, "matrix.npy"))
	return 0
}

func (cmd *buildMatrix) writeOutputs(dir string, matrix *ExpressionMatrix, stats loaderStats, cfg *Config, sheet []chosenSample) error {
	rows, cols := matrix.Dims()

	npyPath := filepath.Join(dir, "matrix.npy")
	log.Infof("writing %d x %d matrix to %s", rows, cols, npyPath)
	f, err := os.Create(npyPath)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	npw.Shape = []int{rows, cols}
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, matrix.Data.RawRowView(i)...)
	}
	if err = npw.WriteFloat64(data); err != nil {
		return fmt.Errorf("write %s: %w", npyPath, err)
	}
	if err = bufw.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", npyPath, err)
	}

	genesPath := filepath.Join(dir, "genes.csv")
	log.Infof("writing gene ID/name map to %s", genesPath)
	geneRows := make([]geneMapRow, rows)
	for i, g := range matrix.Genes {
		geneRows[i] = geneMapRow{GeneID: g.ID, GeneName: g.Name}
	}
	gf, err := os.Create(genesPath)
	if err != nil {
		return err
	}
	defer gf.Close()
	if err = gocsv.Marshal(&geneRows, gf); err != nil {
		return fmt.Errorf("write %s: %w", genesPath, err)
	}
	if err = gf.Close(); err != nil {
		return fmt.Errorf("close %s: %w", genesPath, err)
	}

	// Sample sheet in final column order.
	tissueOf := make(map[string]chosenSample, len(sheet))
	for _, row := range sheet {
		tissueOf[row.SampleID] = row
	}
	ordered := make([]chosenSample, cols)
	for i, id := range matrix.Samples {
		ordered[i] = tissueOf[id]
	}
	columnsPath := filepath.Join(dir, "columns.csv")
	log.Infof("writing column order to %s", columnsPath)
	if err = writeSampleSheet(columnsPath, ordered); err != nil {
		return err
	}

	manifest := matrixManifest{
		Genes:         rows,
		Samples:       cols,
		Stats:         stats,
		TissueOrder:   cfg.TissueOrder,
		Pseudocount:   cfg.Pseudocount,
		MinMeanTPM:    cfg.MinMeanTPM,
		OutputDigests: map[string]string{},
	}
	for _, name := range []string{"matrix.npy", "genes.csv", "columns.csv"} {
		digest, err := fileDigest(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		manifest.OutputDigests[name] = digest
	}
	manifestPath := filepath.Join(dir, "manifest.json")
	mf, err := os.Create(manifestPath)
	if err != nil {
		return err
	}
	defer mf.Close()
	enc := json.NewEncoder(mf)
	enc.SetIndent("", "  ")
	if err = enc.Encode(manifest); err != nil {
		return fmt.Errorf("write %s: %w", manifestPath, err)
	}
	return mf.Close()
}

// fileDigest returns the blake2b-256 digest of a file's contents,
// hex encoded.
func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err = io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
