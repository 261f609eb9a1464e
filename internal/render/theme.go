package render

// Theme holds colors for DOT rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by successor condition.
	EdgeFlow    string // unconditional
	EdgeTaken   string // branch taken
	EdgeFall    string // branch not taken
	EdgeHandler string // exception or with-block handler

	// Node accents.
	EntryBorder string
	TermFill    string // blocks ending in return or raise
}

// Paper is a light monochrome theme with sparse color.
var Paper = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeFlow:    "#424242", // dark gray
	EdgeTaken:   "#0B3D91", // blue
	EdgeFall:    "#FC3D21", // red
	EdgeHandler: "#E65100", // deep orange

	EntryBorder: "#0B3D91",
	TermFill:    "#ECEFF1", // blue-gray 50
}
