// Package options holds what every option group of docbench shares: the
// group contract and the flag prefix helper.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is one option group. Each group owns a flag prefix such as
// "redis." and is completed before it is validated.
type IOptions interface {
	// Complete fills derived and environment-provided values.
	Complete() error

	// Validate returns every problem found, not just the first.
	Validate() []error

	// AddFlags registers the group's flags on fs under the given prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Join builds a flag prefix: Join("a", "b") is "a.b." and Join() is "".
// Empty prefixes are skipped.
func Join(prefixes ...string) string {
	var b strings.Builder
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		b.WriteString(p)
		b.WriteByte('.')
	}
	return b.String()
}

// CompleteAll completes groups in order and stops at the first error.
func CompleteAll(groups ...IOptions) error {
	for _, g := range groups {
		if err := g.Complete(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAll collects the validation errors of every group.
func ValidateAll(groups ...IOptions) []error {
	var errs []error
	for _, g := range groups {
		errs = append(errs, g.Validate()...)
	}
	return errs
}
