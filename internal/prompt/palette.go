package prompt

import "strings"

// colorFamilies maps instruction keywords to the Tailwind color family the
// user most plausibly meant. Matching is whole-word and case-insensitive.
var colorFamilies = map[string]string{
	"blue":      "blue",
	"navy":      "blue",
	"azul":      "blue",
	"green":     "green",
	"emerald":   "emerald",
	"verde":     "green",
	"red":       "red",
	"rojo":      "red",
	"rose":      "rose",
	"pink":      "pink",
	"rosa":      "pink",
	"purple":    "violet",
	"violet":    "violet",
	"morado":    "violet",
	"orange":    "orange",
	"naranja":   "orange",
	"amber":     "amber",
	"yellow":    "amber",
	"amarillo":  "amber",
	"teal":      "teal",
	"cyan":      "cyan",
	"slate":     "slate",
	"gray":      "slate",
	"grey":      "slate",
	"gris":      "slate",
	"black":     "neutral",
	"negro":     "neutral",
	"white":     "neutral",
	"blanco":    "neutral",
	"dark":      "dark",
	"oscuro":    "dark",
	"light":     "light",
	"claro":     "light",
	"monochrome": "neutral",
}

// PaletteHint sniffs free-text instructions for an explicit color choice and
// returns an extra constraint line for the render prompt. It returns "" when
// the instructions name no color, leaving palette selection to the content
// heuristic in the system prompt.
func PaletteHint(instructions string) string {
	family := detectColorFamily(instructions)
	switch family {
	case "":
		return ""
	case "dark":
		return "The user explicitly asked for a dark theme: use a dark background palette with light text, overriding the content-based palette heuristic."
	case "light":
		return "The user explicitly asked for a light theme: use a light background palette with dark text, overriding the content-based palette heuristic."
	default:
		return "The user explicitly asked for a " + family + " color palette: honor it, overriding the content-based palette heuristic."
	}
}

func detectColorFamily(instructions string) string {
	for _, word := range strings.FieldsFunc(strings.ToLower(instructions), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != 'á' && r != 'é' && r != 'í' && r != 'ó' && r != 'ú'
	}) {
		if family, ok := colorFamilies[word]; ok {
			return family
		}
	}
	return ""
}
