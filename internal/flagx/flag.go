// Package flagx lets several flag sets share one argument list. Each set
// picks out the flags it defines and ignores the rest, so global options
// and subcommand options can be given in any order.
package flagx

import (
	"flag"
	"io"
	"strings"
)

type boolFlag interface {
	IsBoolFlag() bool
}

// split classifies args against fs. Flags defined in fs, with their values,
// go to own; everything else, including flags fs does not know, goes to rest.
// A value is taken from the next argument unless the flag is boolean, the
// "name=value" form is used, or the next argument starts with "-".
func split(args []string, fs *flag.FlagSet) (own, rest []string) {
	own = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			rest = append(rest, arg)
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		f := fs.Lookup(name)
		if f == nil {
			rest = append(rest, arg)
			continue
		}

		own = append(own, arg)
		if hasValue {
			continue
		}
		if b, ok := f.Value.(boolFlag); ok && b.IsBoolFlag() {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			own = append(own, args[i+1])
			i++
		}
	}
	return own, rest
}

// FilterArgs returns the flags of args that fs defines, with their values.
func FilterArgs(args []string, fs *flag.FlagSet) []string {
	own, _ := split(args, fs)
	return own
}

// Parse parses the flags of args that fs defines and returns the remaining
// arguments in order.
func Parse(fs *flag.FlagSet, args []string) ([]string, error) {
	own, rest := split(args, fs)
	if err := fs.Parse(own); err != nil {
		return nil, err
	}
	return append(rest, fs.Args()...), nil
}

// ConfigPath returns the value of -c or -config in args, the last one
// winning, or "" when neither is given.
func ConfigPath(args []string) string {
	var path string
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to the JSON config file")
	fs.StringVar(&path, "c", "", "path to the JSON config file (short)")
	_, _ = Parse(fs, args)
	return path
}
