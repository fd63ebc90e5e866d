package pcb

import (
	"regexp"
	"strings"
	"sync"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// Field patterns. Each one is applied to the text of a single located
// sub-block, never to the whole document, and is anchored at that block's
// opening parenthesis. They are compiled on first use and only read after.

// atom matches one quoted string (with escapes) or one bare atom
const atom = `"(?:[^"\\]|\\[\s\S])*"|[^\s()"]+`

// bare matches one unquoted atom
const bare = `[^\s()"]+`

// (<id> "<name>" <type> ["<user name>"]); the type may be quoted
var layerEntryPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^\(\s*(` + bare + `)\s+(` + atom + `)\s+(` + atom + `)(?:\s+(` + atom + `))?\s*\)$`)
})

// (<head> x y [angle]); the angle only matches something number-like so
// trailing flags such as "unlocked" are not mistaken for a rotation.
var coordPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^\(\s*` + bare + `\s+(` + bare + `)\s+(` + bare + `)(?:\s+([-+.0-9]` + `[^\s()"]*))?`)
})

// (<head> value ...)
var valuePattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^\(\s*` + bare + `\s+(` + atom + `)`)
})

// (property "Key" "Value" ...)
var propertyPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^\(\s*property\s+(` + atom + `)\s+(` + atom + `)`)
})

// (fp_text reference "R1" ...) as written by KiCad 6 and older
var fpTextPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^\(\s*fp_text\s+(` + bare + `)\s+(` + atom + `)`)
})

// a single argument at the start of the remaining text
var argPattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + atom + `)`)
})

// atomValue strips quotes from a matched atom and decodes escapes. Bare
// atoms are copied so records never alias the source buffer.
func atomValue(raw string) string {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return sexp.Unquote(raw[1 : len(raw)-1])
	}
	return strings.Clone(raw)
}

// preview shortens block text for warning messages
func preview(s string) string {
	const max = 48
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
