package protocol

import "strings"

// Kind identifies a control-channel command.
type Kind int

const (
	// Invalid is any line that does not start with a known keyword.
	Invalid Kind = iota
	Exit
	List
	Get
	Cd
	Pwd
)

var kindNames = map[Kind]string{
	Invalid: "invalid",
	Exit:    "exit",
	List:    "list",
	Get:     "get",
	Cd:      "cd",
	Pwd:     "pwd",
}

// String returns the keyword for the kind ("invalid" for Invalid).
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// NeedsDataChannel reports whether the command transfers bytes over a data
// connection once it has been classified.
func (k Kind) NeedsDataChannel() bool {
	return k == List || k == Get
}

// Command is a classified command line.
type Command struct {
	Kind Kind

	// Arg is the first whitespace-delimited word after the keyword. It is
	// empty for Invalid commands and when nothing follows the keyword.
	Arg string

	// Raw is the line as it was parsed.
	Raw string
}

// keywords is checked in order; none is a prefix of another followed by a
// separator, so order only matters for readability.
var keywords = []struct {
	word string
	kind Kind
}{
	{"list", List},
	{"get", Get},
	{"cd", Cd},
	{"pwd", Pwd},
	{"exit", Exit},
}

// Parse classifies one command line. It never fails: unknown input yields a
// Command of kind Invalid. Keywords are case-sensitive and must be followed by
// a space, tab, line ending or the end of the line, so "getfoo" is Invalid.
func Parse(line string) Command {
	cmd := Command{Kind: Invalid, Raw: line}

	rest := strings.TrimLeft(line, " \t")
	for _, kw := range keywords {
		if !strings.HasPrefix(rest, kw.word) {
			continue
		}
		tail := rest[len(kw.word):]
		if tail != "" && !isKeywordEnd(tail[0]) {
			continue
		}
		cmd.Kind = kw.kind
		cmd.Arg = parseArg(tail)
		return cmd
	}
	return cmd
}

func isKeywordEnd(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// parseArg skips leading blanks and copies up to the first space, CR or LF.
func parseArg(s string) string {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
