// viewport.go provides a scrollable text area with vertical and
// horizontal scrolling and optional wrapping.
//
// Lines may carry ANSI styling; widths and cuts are measured in cells.
package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Viewport is a scrollable text area.
type Viewport struct {
	width    int
	height   int
	content  []string
	scrollY  int
	scrollX  int
	wrapText bool
	follow   bool // stick to the bottom when content grows
}

// NewViewport creates a viewport with the given dimensions.
func NewViewport(width, height int) *Viewport {
	return &Viewport{
		width:  width,
		height: height,
	}
}

// SetContent replaces the viewport content.
func (v *Viewport) SetContent(content string) {
	v.SetContentLines(strings.Split(content, "\n"))
}

// SetContentLines replaces the viewport content with pre-split lines.
// A viewport that was scrolled to the bottom stays there.
func (v *Viewport) SetContentLines(lines []string) {
	atBottom := v.AtBottom()
	v.content = lines
	if v.follow && atBottom {
		v.scrollY = v.maxScrollY()
	}
	v.clampScroll()
}

// Follow makes the viewport keep the last line visible while the user
// has not scrolled away from it.
func (v *Viewport) Follow(on bool) {
	v.follow = on
	if on {
		v.End()
	}
}

// SetSize updates viewport dimensions.
func (v *Viewport) SetSize(width, height int) {
	v.width = width
	v.height = height
	if v.follow {
		v.End()
	}
	v.clampScroll()
}

// ToggleWrap toggles text wrapping.
func (v *Viewport) ToggleWrap() {
	v.wrapText = !v.wrapText
	v.scrollX = 0
	v.clampScroll()
}

func (v *Viewport) ScrollUp(n int) {
	v.scrollY -= n
	v.clampScroll()
}

func (v *Viewport) ScrollDown(n int) {
	v.scrollY += n
	v.clampScroll()
}

func (v *Viewport) ScrollLeft(n int) {
	if !v.wrapText {
		v.scrollX = max(v.scrollX-n, 0)
	}
}

func (v *Viewport) ScrollRight(n int) {
	if !v.wrapText {
		v.scrollX += n
	}
}

func (v *Viewport) PageUp()   { v.ScrollUp(v.height) }
func (v *Viewport) PageDown() { v.ScrollDown(v.height) }

// Home scrolls to the top.
func (v *Viewport) Home() {
	v.scrollY = 0
	v.scrollX = 0
}

// End scrolls to the bottom.
func (v *Viewport) End() {
	v.scrollY = v.maxScrollY()
}

// AtBottom reports whether the last line is visible.
func (v *Viewport) AtBottom() bool {
	return v.scrollY >= v.maxScrollY()
}

// Render returns the visible portion of the content.
func (v *Viewport) Render() string {
	if len(v.content) == 0 {
		return ""
	}

	lines := v.lines()
	end := min(v.scrollY+v.height, len(lines))
	var visible []string
	if v.scrollY < end {
		visible = lines[v.scrollY:end]
	}
	if !v.wrapText {
		cut := make([]string, len(visible))
		for i, line := range visible {
			cut[i] = ansi.Cut(line, v.scrollX, v.scrollX+v.width)
		}
		visible = cut
	}
	for len(visible) < v.height {
		visible = append(visible, "")
	}

	out := strings.Join(visible, "\n")
	if indicator := v.scrollIndicator(len(lines)); indicator != "" {
		out += "\n" + indicator
	}
	return out
}

// lines returns the content, hard-wrapped at the width when wrapping.
func (v *Viewport) lines() []string {
	if !v.wrapText || v.width <= 0 {
		return v.content
	}
	var wrapped []string
	for _, line := range v.content {
		if ansi.StringWidth(line) <= v.width {
			wrapped = append(wrapped, line)
			continue
		}
		wrapped = append(wrapped, strings.Split(ansi.Hardwrap(line, v.width, true), "\n")...)
	}
	return wrapped
}

func (v *Viewport) clampScroll() {
	v.scrollY = max(min(v.scrollY, v.maxScrollY()), 0)
}

func (v *Viewport) maxScrollY() int {
	return max(len(v.lines())-v.height, 0)
}

func (v *Viewport) scrollIndicator(total int) string {
	if total <= v.height || v.width < 24 {
		return ""
	}
	pct := (v.scrollY + v.height) * 100 / total
	label := " " + strconv.Itoa(min(pct, 100)) + "% (" + strconv.Itoa(v.scrollY+1) + "/" + strconv.Itoa(total) + ")"
	return StyleDimmed.Render(strings.Repeat("─", max(v.width-len(label), 0)) + label)
}
