package conf

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"
)

const listDelimiter = ","

// IntListValue is a custom kingpin parser which resolves flag parameters
// consisting of integers delimited by `listDelimiter`.
// For a flag defined like this:
// `flag = IntList(kingpin.Flag("mem", "help"))`
//
// specifying `--mem=128,256 --mem=512` yields a slice with 128, 256, 512.
type IntListValue []int

// Set parses the input string and appends the values. Implements kingpin.Value.
func (i *IntListValue) Set(value string) error {
	for _, part := range strings.Split(value, listDelimiter) {
		parsed, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return errors.Wrapf(err, "cannot parse %q as integer list element", part)
		}
		*i = append(*i, parsed)
	}
	return nil
}

// String returns a serialized value from IntListValue. Implements kingpin.Value.
func (i *IntListValue) String() string {
	parts := make([]string, 0, len(*i))
	for _, v := range *i {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, listDelimiter)
}

// Get returns the underlying int slice. Implements kingpin.Getter.
func (i *IntListValue) Get() interface{} {
	return []int(*i)
}

// IsCumulative implements the optional kingpin interface for flags that can
// be repeated.
func (i *IntListValue) IsCumulative() bool {
	return true
}

// IntList is a helper for defining kingpin flags.
func IntList(s kingpin.Settings) (target *[]int) {
	target = new([]int)
	s.SetValue((*IntListValue)(target))
	return
}
