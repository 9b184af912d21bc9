package prompt

import (
	"fmt"
	"strings"
)

// RenderInput carries everything the render prompt needs. ProfileJSON is the
// serialized profile; PreviousMarkup, when present, shifts the task from
// "create" to "revise in place".
type RenderInput struct {
	ProfileJSON    string
	Username       string
	Instructions   string
	PreviousMarkup string
}

const renderSystem = `You are an expert front-end designer generating a personal profile page.

Output contract:
- Emit a SINGLE self-contained HTML fragment: no <html>, <head> or <body> tags, no <script> tags, no external stylesheets or fonts
- Style exclusively with Tailwind utility classes
- The root container MUST declare both a background color class (bg-*) and a text color class (text-*) so the fragment is readable on any host page
- Every section of the profile must appear, in order, with its header and text

Palette selection:
- Read the profile content for tone. A professional or technical profile maps to a neutral or cool palette (slate, gray, blue); a creative profile maps to a warmer, more saturated palette (amber, rose, violet)
- If the user's instructions name an explicit color family, that choice overrides the content heuristic

Return ONLY the HTML fragment, with no explanation and no markdown fences.`

// Render builds the prompt that turns a structured profile into a styled
// markup fragment.
func Render(in RenderInput) Prompt {
	var user strings.Builder

	if in.PreviousMarkup != "" {
		user.WriteString("Revise the existing page markup below. Keep its overall structure and styling")
		if strings.TrimSpace(in.Instructions) == "" {
			user.WriteString(" unchanged except where the profile content itself changed")
		} else {
			user.WriteString(", changing only what the new instructions require")
		}
		user.WriteString(".\n\nExisting markup:\n\n")
		user.WriteString(in.PreviousMarkup)
		user.WriteString("\n\n")
	} else {
		user.WriteString("Create the page markup for the profile below.\n\n")
	}

	if in.Username != "" {
		fmt.Fprintf(&user, "The page belongs to %s.\n\n", in.Username)
	}

	user.WriteString("Profile data:\n\n")
	user.WriteString(in.ProfileJSON)

	if strings.TrimSpace(in.Instructions) != "" {
		user.WriteString("\n\nAdditional instructions:\n\n")
		user.WriteString(in.Instructions)
	}

	if hint := PaletteHint(in.Instructions); hint != "" {
		user.WriteString("\n\n")
		user.WriteString(hint)
	}

	user.WriteString("\n\nReturn ONLY the HTML fragment.")

	return Prompt{System: renderSystem, User: user.String()}
}
