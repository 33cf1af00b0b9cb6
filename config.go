// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config collects the externally supplied pipeline parameters. Flags
// override values loaded from a config file; DefaultConfig supplies
// the documented defaults for everything else.
type Config struct {
	FreezeType       string   `yaml:"freeze_type"`
	MaxAutolysis     int      `yaml:"max_autolysis"`
	MinRIN           float64  `yaml:"min_rin"`
	ExcludeTissues   []string `yaml:"exclude_tissues"`
	MinBatchSamples  int      `yaml:"min_batch_samples"`
	SamplesPerTissue int      `yaml:"samples_per_tissue"`
	RandomSeed       int64    `yaml:"random_seed"`
	TissueOrder      []string `yaml:"tissue_order"`
	Pseudocount      float64  `yaml:"pseudocount"`
	MinMeanTPM       float64  `yaml:"min_mean_tpm"`
	Colormap         string   `yaml:"colormap"`
}

func DefaultConfig() *Config {
	return &Config{
		FreezeType:       "RNASEQ",
		MaxAutolysis:     3,
		MinRIN:           6,
		ExcludeTissues:   []string{},
		MinBatchSamples:  20,
		SamplesPerTissue: 45,
		RandomSeed:       0,
		TissueOrder:      defaultTissueOrder,
		Pseudocount:      1e-4,
		MinMeanTPM:       1,
		Colormap:         "viridis",
	}
}

// GTEx coarse tissue types (SMTS), alphabetical, used as the display
// ordering unless the config file supplies its own.
var defaultTissueOrder = []string{
	"Adipose Tissue", "Adrenal Gland", "Bladder", "Blood", "Blood Vessel",
	"Bone Marrow", "Brain", "Breast", "Cervix Uteri", "Colon", "Esophagus",
	"Fallopian Tube", "Heart", "Kidney", "Liver", "Lung", "Muscle", "Nerve",
	"Ovary", "Pancreas", "Pituitary", "Prostate", "Salivary Gland", "Skin",
	"Small Intestine", "Spleen", "Stomach", "Testis", "Thyroid", "Uterus",
	"Vagina",
}

// LoadConfig reads a YAML config file and fills unset fields with
// defaults. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var loaded Config
	if err := yaml.Unmarshal(buf, &loaded); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	mergeConfig(cfg, &loaded)
	return cfg, nil
}

func mergeConfig(cfg, loaded *Config) {
	if loaded.FreezeType != "" {
		cfg.FreezeType = loaded.FreezeType
	}
	if loaded.MaxAutolysis != 0 {
		cfg.MaxAutolysis = loaded.MaxAutolysis
	}
	if loaded.MinRIN != 0 {
		cfg.MinRIN = loaded.MinRIN
	}
	if loaded.ExcludeTissues != nil {
		cfg.ExcludeTissues = loaded.ExcludeTissues
	}
	if loaded.MinBatchSamples != 0 {
		cfg.MinBatchSamples = loaded.MinBatchSamples
	}
	if loaded.SamplesPerTissue != 0 {
		cfg.SamplesPerTissue = loaded.SamplesPerTissue
	}
	if loaded.RandomSeed != 0 {
		cfg.RandomSeed = loaded.RandomSeed
	}
	if loaded.TissueOrder != nil {
		cfg.TissueOrder = loaded.TissueOrder
	}
	if loaded.Pseudocount != 0 {
		cfg.Pseudocount = loaded.Pseudocount
	}
	if loaded.MinMeanTPM != 0 {
		cfg.MinMeanTPM = loaded.MinMeanTPM
	}
	if loaded.Colormap != "" {
		cfg.Colormap = loaded.Colormap
	}
}

// Check validates the parameters every stage relies on.
func (c *Config) Check() error {
	switch {
	case c.FreezeType == "":
		return &ConfigurationError{Param: "freeze_type", Reason: "must not be empty"}
	case c.MaxAutolysis < 1 || c.MaxAutolysis > 3:
		return &ConfigurationError{Param: "max_autolysis", Reason: fmt.Sprintf("%d out of range 1..3", c.MaxAutolysis)}
	case c.MinRIN < 1 || c.MinRIN >= 10:
		return &ConfigurationError{Param: "min_rin", Reason: fmt.Sprintf("%g out of range [1,10)", c.MinRIN)}
	case c.ExcludeTissues == nil:
		return &ConfigurationError{Param: "exclude_tissues", Reason: "unset (use [] to exclude nothing)"}
	case c.MinBatchSamples < 0:
		return &ConfigurationError{Param: "min_batch_samples", Reason: "must be >= 0"}
	case c.SamplesPerTissue < 1:
		return &ConfigurationError{Param: "samples_per_tissue", Reason: "must be >= 1"}
	case len(c.TissueOrder) == 0:
		return &ConfigurationError{Param: "tissue_order", Reason: "must list at least one tissue"}
	case c.Pseudocount <= 0:
		return &ConfigurationError{Param: "pseudocount", Reason: "must be > 0"}
	case c.MinMeanTPM < 0:
		return &ConfigurationError{Param: "min_mean_tpm", Reason: "must be >= 0"}
	}
	return nil
}
