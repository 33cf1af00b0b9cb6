// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"fmt"
	"strings"
)

// ConfigurationError indicates a required pipeline parameter is
// missing or out of range.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Param, e.Reason)
}

// MissingSampleError indicates that sample IDs selected by an earlier
// stage do not appear in a table being joined.
type MissingSampleError struct {
	Stage     string
	SampleIDs []string
}

func (e *MissingSampleError) Error() string {
	ids := e.SampleIDs
	suffix := ""
	if len(ids) > 5 {
		suffix = fmt.Sprintf(", ... (%d total)", len(ids))
		ids = ids[:5]
	}
	return fmt.Sprintf("%s: sample IDs not found: %s%s", e.Stage, strings.Join(ids, ", "), suffix)
}

// UnknownTissueError indicates a sample whose tissue does not appear
// in the configured tissue ordering.
type UnknownTissueError struct {
	SampleID string
	Tissue   string
}

func (e *UnknownTissueError) Error() string {
	return fmt.Sprintf("sample %s: tissue %q not in tissue order", e.SampleID, e.Tissue)
}

// EmptyResultWarning records a filter stage that removed every
// remaining record. It is surfaced to the caller (logged) rather than
// silently passed to later stages.
type EmptyResultWarning struct {
	Stage string
}

func (e *EmptyResultWarning) Error() string {
	return fmt.Sprintf("%s: no records remain after filtering", e.Stage)
}
