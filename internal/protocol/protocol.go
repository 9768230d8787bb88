// Package protocol holds the wire constants shared by both peers and the
// command codec used to classify control-channel lines.
package protocol

const (
	// DefaultControlPort is the well-known port the interpreter listens on.
	DefaultControlPort = 30021

	// DefaultDataPort is the well-known port the requester listens on for
	// each data connection.
	DefaultDataPort = 30020

	// Prompt is written by the interpreter, with no trailing newline, when it
	// is ready to read the next command line.
	Prompt = ">>"

	// MaxLineLength bounds a single command line (interpreter side) and a
	// single interpreter message (requester side).
	MaxLineLength = 4096

	// FileBufferSize is the chunk size used when streaming file payloads.
	FileBufferSize = 4096

	// ListSeparator follows every entry name in a directory listing.
	ListSeparator = "  "
)

// Messages sent by the interpreter on the control channel.
const (
	MsgInvalidCommand    = "Invalid command\n"
	MsgFileNotExist      = "Invalid filename: file does not exist\n"
	MsgNotRegularFile    = "Invalid filename: not a regular file\n"
	MsgPermissionDenied  = "Error: permission denied\n"
	MsgInvalidDirectory  = "Error: invalid directory\n"
	MsgChangeDirFailed   = "Error: could not change directories\n"
	MsgOpenFileFailed    = "Error: could not open file\n"
	MsgReadFileFailed    = "Error: could not read file\n"
	MsgListFailed        = "Error: could not list directory\n"
	MsgDataConnFailed    = "Error: could not open data connection\n"
	MsgCommandTooLong    = "Error: command too long\n"
	MsgWorkingDirPrefix  = "Remote working directory: "
	MsgServerClosed      = "Server closed connection.\n"
	MsgOverwritePrompt   = "File already exists. Overwrite? "
	MsgInvalidYesNoInput = "Invalid input.  Please try again.\n"
)

// Greeting is sent once when a control session starts, before the first prompt.
const Greeting = "Welcome to the File Transfer Program\nCommands:\n\t" +
	"pwd\t- print working directory\n\t" +
	"list\t- view files in current directory\n\t" +
	"cd <directory>\t- change directory\n\t" +
	"get <filename>\t- get the specified file\n\t" +
	"exit\t- close the connection\n"
