// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import "github.com/tpmheat/tpmheat"

func main() {
	tpmheat.Main()
}
