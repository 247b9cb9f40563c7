package agenda

import "unicode/utf16"

// ColorStyle is a pastel display triple.
type ColorStyle struct {
	Background string `json:"bg"`
	Text       string `json:"text"`
	Border     string `json:"border"`
}

// DefaultColor is used when there is nothing to hash.
var DefaultColor = ColorStyle{Background: "bg-blue-50", Text: "text-blue-700", Border: "border-blue-200"}

// Palette is ordered; indexes are part of the color contract.
var Palette = [15]ColorStyle{
	{"bg-red-50", "text-red-700", "border-red-200"},
	{"bg-orange-50", "text-orange-700", "border-orange-200"},
	{"bg-amber-50", "text-amber-700", "border-amber-200"},
	{"bg-green-50", "text-green-700", "border-green-200"},
	{"bg-emerald-50", "text-emerald-700", "border-emerald-200"},
	{"bg-teal-50", "text-teal-700", "border-teal-200"},
	{"bg-cyan-50", "text-cyan-700", "border-cyan-200"},
	{"bg-sky-50", "text-sky-700", "border-sky-200"},
	{"bg-blue-50", "text-blue-700", "border-blue-200"},
	{"bg-indigo-50", "text-indigo-700", "border-indigo-200"},
	{"bg-violet-50", "text-violet-700", "border-violet-200"},
	{"bg-purple-50", "text-purple-700", "border-purple-200"},
	{"bg-fuchsia-50", "text-fuchsia-700", "border-fuchsia-200"},
	{"bg-pink-50", "text-pink-700", "border-pink-200"},
	{"bg-rose-50", "text-rose-700", "border-rose-200"},
}

// stringHash accumulates hash = code + (hash<<5 - hash) over UTF-16 code
// units with 32-bit wraparound.
func stringHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = int32(c) + (h << 5) - h
	}
	return h
}

// PaletteIndex returns the palette slot for key, or -1 for an empty key.
func PaletteIndex(key string) int {
	if key == "" {
		return -1
	}
	h := int64(stringHash(key))
	if h < 0 {
		h = -h
	}
	return int(h % int64(len(Palette)))
}

// ColorFor maps key to a palette entry. It is pure: the same key always gets
// the same color.
func ColorFor(key string) ColorStyle {
	idx := PaletteIndex(key)
	if idx < 0 {
		return DefaultColor
	}
	return Palette[idx]
}

// ColorKey picks the string an event is colored by: professional name, then
// calendar name, then title.
func ColorKey(e CalendarEvent) string {
	switch {
	case e.ProfessionalName != "":
		return e.ProfessionalName
	case e.CalendarName != "":
		return e.CalendarName
	case e.Title != "":
		return e.Title
	}
	return "default"
}
