// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import (
	"math/rand"
	"sort"
)

// balancedSample draws up to cap samples per detailed tissue type,
// uniformly without replacement. Groups at or below cap are kept
// whole. The seed fully determines the result for a given input set;
// output is grouped by detailed tissue in lexical order.
func balancedSample(in []SampleRecord, cap int, seed int64) []SampleRecord {
	groups := map[string][]SampleRecord{}
	for _, rec := range in {
		groups[rec.DetailedTissue] = append(groups[rec.DetailedTissue], rec)
	}
	tissues := make([]string, 0, len(groups))
	for t := range groups {
		tissues = append(tissues, t)
	}
	sort.Strings(tissues)

	randsrc := rand.NewSource(seed)
	out := make([]SampleRecord, 0, len(in))
	for _, t := range tissues {
		group := append([]SampleRecord(nil), groups[t]...)
		// Discard random members until the group fits under cap.
		for len(group) > cap {
			i := int(randsrc.Int63()) % len(group)
			group[i] = group[len(group)-1]
			group = group[:len(group)-1]
		}
		sort.Slice(group, func(i, j int) bool { return group[i].SampleID < group[j].SampleID })
		out = append(out, group...)
	}
	return out
}
