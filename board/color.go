package board

import "fmt"

// ColorTag is the closed set of card colors. Unknown values are rejected at
// the boundary instead of silently defaulting.
type ColorTag string

const (
	ColorNone   ColorTag = ""
	ColorYellow ColorTag = "yellow"
	ColorGreen  ColorTag = "green"
	ColorBlue   ColorTag = "blue"
	ColorPink   ColorTag = "pink"
	ColorOrange ColorTag = "orange"
	ColorPurple ColorTag = "purple"
)

// ColorStyle carries the display attributes for one tag.
type ColorStyle struct {
	Background string `json:"background"`
	Border     string `json:"border"`
}

var colorStyles = map[ColorTag]ColorStyle{
	ColorYellow: {Background: "#fff9c4", Border: "#fbc02d"},
	ColorGreen:  {Background: "#c8e6c9", Border: "#388e3c"},
	ColorBlue:   {Background: "#bbdefb", Border: "#1976d2"},
	ColorPink:   {Background: "#f8bbd0", Border: "#c2185b"},
	ColorOrange: {Background: "#ffe0b2", Border: "#f57c00"},
	ColorPurple: {Background: "#e1bee7", Border: "#7b1fa2"},
}

// ParseColorTag validates a raw color value. The empty string means no
// color and is allowed.
func ParseColorTag(raw string) (ColorTag, error) {
	tag := ColorTag(raw)
	if tag == ColorNone {
		return ColorNone, nil
	}
	if _, ok := colorStyles[tag]; !ok {
		return ColorNone, fmt.Errorf("unknown color tag %q", raw)
	}
	return tag, nil
}

// Style returns the display attributes for a tag. Only valid for parsed
// tags; ColorNone has no style.
func (c ColorTag) Style() (ColorStyle, bool) {
	s, ok := colorStyles[c]
	return s, ok
}
