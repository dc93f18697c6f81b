package cmd

import (
	"strings"

	"github.com/spf13/pflag"
)

// rootCAShortAlias is the two-letter switch pflag cannot express as a shorthand.
const rootCAShortAlias = "-ca"

// normalizeArgs rewrites -ca and -ca=<path> to --root_ca. Everything after
// a bare "--" is left alone.
func normalizeArgs(args []string) []string {
	normalized := make([]string, 0, len(args))

	for i, arg := range args {
		if arg == "--" {
			return append(normalized, args[i:]...)
		}

		switch {
		case arg == rootCAShortAlias:
			arg = "--root_ca"
		case strings.HasPrefix(arg, rootCAShortAlias+"="):
			arg = "--root_ca" + strings.TrimPrefix(arg, rootCAShortAlias)
		}

		normalized = append(normalized, arg)
	}

	return normalized
}

// normalizeFlagName treats dashes and underscores alike and maps --ca to --root_ca.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.ReplaceAll(name, "-", "_")

	if name == "ca" {
		name = "root_ca"
	}

	return pflag.NormalizedName(name)
}
