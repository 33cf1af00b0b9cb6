// Copyright (C) The Tpmheat Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package tpmheat

import "image/color"

// colormap maps a normalized value in [0,1] onto a color by linear
// interpolation between fixed stops. Out-of-range values clamp.
type colormap []color.RGBA

func (c colormap) at(t float64) color.RGBA {
	if t <= 0 {
		return c[0]
	}
	if t >= 1 {
		return c[len(c)-1]
	}
	pos := t * float64(len(c)-1)
	lo := int(pos)
	hi := lo + 1
	if hi > len(c)-1 {
		hi = len(c) - 1
	}
	frac := pos - float64(lo)
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + frac*(float64(b)-float64(a)))
	}
	return color.RGBA{
		R: lerp(c[lo].R, c[hi].R),
		G: lerp(c[lo].G, c[hi].G),
		B: lerp(c[lo].B, c[hi].B),
		A: 255,
	}
}

var colormaps = map[string]colormap{
	"viridis": {
		{68, 1, 84, 255}, {72, 35, 116, 255}, {64, 67, 135, 255},
		{52, 94, 141, 255}, {41, 120, 142, 255}, {32, 144, 140, 255},
		{34, 167, 132, 255}, {68, 190, 112, 255}, {121, 209, 81, 255},
		{189, 222, 38, 255}, {253, 231, 37, 255},
	},
	"plasma": {
		{13, 8, 135, 255}, {75, 3, 161, 255}, {125, 3, 168, 255},
		{168, 34, 150, 255}, {203, 70, 121, 255}, {229, 107, 93, 255},
		{248, 148, 65, 255}, {253, 195, 40, 255}, {240, 249, 33, 255},
	},
	"magma": {
		{0, 0, 4, 255}, {28, 16, 68, 255}, {79, 18, 123, 255},
		{129, 37, 129, 255}, {181, 54, 122, 255}, {229, 80, 100, 255},
		{251, 135, 97, 255}, {254, 194, 135, 255}, {252, 253, 191, 255},
	},
}

// tissueColors assigns distinct colors to categorical tissue
// indexes, wrapping past 20.
var tissueColors = []color.RGBA{
	{31, 119, 180, 255}, {255, 127, 14, 255}, {44, 160, 44, 255},
	{214, 39, 40, 255}, {148, 103, 189, 255}, {140, 86, 75, 255},
	{227, 119, 194, 255}, {127, 127, 127, 255}, {188, 189, 34, 255},
	{23, 190, 207, 255}, {174, 199, 232, 255}, {255, 187, 120, 255},
	{152, 223, 138, 255}, {255, 152, 150, 255}, {197, 176, 213, 255},
	{196, 156, 148, 255}, {247, 182, 210, 255}, {199, 199, 199, 255},
	{219, 219, 141, 255}, {158, 218, 229, 255},
}

func tissueColor(i int) color.RGBA {
	return tissueColors[i%len(tissueColors)]
}
