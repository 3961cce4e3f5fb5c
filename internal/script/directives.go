package script

import (
	"strings"
)

const directivePrefix = "--!"

type directives struct {
	variant  Variant
	explicit bool
	requires []string
}

// parseDirectives reads the leading comment block of source.
func parseDirectives(source string) directives {
	var d directives
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if !strings.HasPrefix(line, directivePrefix) {
			continue
		}

		fields := strings.Fields(strings.TrimPrefix(line, directivePrefix))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "pipeline":
			d.variant, d.explicit = VariantPipeline, true
		case "library":
			d.variant, d.explicit = VariantLibrary, true
		case "requires":
			rest := strings.Join(fields[1:], " ")
			for _, name := range strings.FieldsFunc(rest, func(r rune) bool { return r == ',' || r == ' ' }) {
				d.requires = append(d.requires, name)
			}
		}
	}
	return d
}
