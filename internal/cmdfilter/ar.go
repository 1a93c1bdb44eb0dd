package cmdfilter

import "strings"

// ARFilter recognizes the archiver (ar).
type ARFilter struct{}

func (ARFilter) Matches(cmd string) bool {
	return arPattern.MatchString(basename(cmd))
}

// Inspect decomposes an ar invocation: the first filename-looking argument
// is the archive output, the rest are member inputs.
func (ARFilter) Inspect(argv []string) ArgInfo {
	var filenames []string
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--plugin" {
			i++ // consume the plugin path token
			continue
		}
		if strings.HasPrefix(arg, "-") {
			continue
		}
		if strings.Contains(arg, ".") {
			filenames = append(filenames, arg)
		}
	}
	if len(filenames) < 2 {
		return ArgInfo{}
	}
	return ArgInfo{
		Outputs: []string{filenames[0]},
		Inputs:  filenames[1:],
	}
}
