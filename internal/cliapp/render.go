package cliapp

import (
	"fmt"
	"image"
	"strings"
)

// halfBlock is the Unicode upper half block. Combined with independent
// foreground/background ANSI colors it renders two vertically stacked
// pixels per terminal cell, doubling the effective resolution of a
// character-cell thumbnail preview.
const halfBlock = "▀"

// RenderThumbnail renders img as a block of ANSI-colored half-block
// characters, at most maxWidth cells wide, preserving aspect ratio. No
// library in this codebase's dependency pack renders images to a terminal,
// so this is a small, self-contained implementation scoped to exactly this
// need rather than a general terminal-graphics package.
func RenderThumbnail(img image.Image, maxWidth int) string {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return ""
	}

	width := maxWidth
	if width <= 0 || width > srcW {
		width = srcW
	}
	// Each output row covers two source rows (top half + bottom half), so
	// sample height at twice the cell count a plain 1:1 mapping would use.
	height := width * srcH / srcW
	if height%2 != 0 {
		height++
	}
	if height < 2 {
		height = 2
	}

	var b strings.Builder
	for row := 0; row < height; row += 2 {
		for col := 0; col < width; col++ {
			topX := bounds.Min.X + col*srcW/width
			topY := bounds.Min.Y + row*srcH/height
			botY := bounds.Min.Y + (row+1)*srcH/height
			if botY >= bounds.Min.Y+srcH {
				botY = bounds.Min.Y + srcH - 1
			}

			tr, tg, tb, _ := img.At(topX, topY).RGBA()
			br, bg, bb, _ := img.At(topX, botY).RGBA()

			fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm%s",
				tr>>8, tg>>8, tb>>8, br>>8, bg>>8, bb>>8, halfBlock)
		}
		b.WriteString("\x1b[0m\n")
	}
	return b.String()
}
