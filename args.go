package segconv

// Command line helpers shared by the tools.

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// ParseRatios parses ratio values separated by commas and/or white space.
func ParseRatios(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	vals := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ratio %q", f)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// ParseFlagsWithValues parses args with fs. Numeric arguments directly following the flag name
// are appended to its value, separated by spaces, so that a multi-value flag like
// "-ratio 0.8 0.1 0.1" works. The values may be negative and other flags may follow them.
//
// Returns the remaining positional arguments.
func ParseFlagsWithValues(fs *flag.FlagSet, args []string, name string) ([]string, error) {
	if fs.Lookup(name) == nil {
		return nil, fmt.Errorf("flag %q is not defined", name)
	}

	kept := make([]string, 0, len(args))
	var extra []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		kept = append(kept, a)
		if a == "--" {
			kept = append(kept, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "-") {
			continue
		}
		parts := strings.SplitN(strings.TrimLeft(a, "-"), "=", 2)
		if parts[0] != name {
			continue
		}
		if len(parts) == 1 && i+1 < len(args) {
			// The flag's own value.
			i++
			kept = append(kept, args[i])
		}
		for i+1 < len(args) && isNumber(args[i+1]) {
			i++
			extra = append(extra, args[i])
		}
	}

	if err := fs.Parse(kept); err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		joined := strings.Join(append([]string{fs.Lookup(name).Value.String()}, extra...), " ")
		if err := fs.Set(name, joined); err != nil {
			return nil, err
		}
	}
	return fs.Args(), nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
