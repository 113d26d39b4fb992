// Package protocol implements the editor side-channel used by rmate:
// a line-oriented text protocol with raw binary payload sections.
//
// A session looks like this:
//
//	editor → client   greeting line
//	client → editor   "open" frame per file, then "."
//	editor → client   "save" / "close" frames until the socket closes
//
// Each frame is a command line followed by "key: value" lines and a
// blank terminator line.  A "data: N" line is followed by exactly N raw
// bytes, which may contain newlines or NUL bytes.
package protocol

// Frame keys.
const (
	KeyDisplayName = "display-name"
	KeyFileType    = "file-type"
	KeyRealPath    = "real-path"
	KeySelection   = "selection"
	KeyToken       = "token"
	KeyDataOnSave  = "data-on-save"
	KeyReActivate  = "re-activate"
	KeyData        = "data"
)

// Command lines.
const (
	cmdOpen  = "open"
	cmdSave  = "save"
	cmdClose = "close"

	// batchEnd follows the last "open" frame.
	batchEnd = "."
)

// Command is an inbound command from the editor.
type Command int

const (
	CommandUnknown Command = iota
	CommandSave
	CommandClose
)

func (c Command) String() string {
	switch c {
	case CommandSave:
		return cmdSave
	case CommandClose:
		return cmdClose
	default:
		return "unknown"
	}
}

// ParseCommand decodes a command line.  Anything other than "save" or
// "close" is CommandUnknown.
func ParseCommand(line string) Command {
	switch line {
	case cmdSave:
		return CommandSave
	case cmdClose:
		return CommandClose
	default:
		return CommandUnknown
	}
}
