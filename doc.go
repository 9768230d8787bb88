// Package ftransfer implements the requester side of a small two-channel
// file transfer protocol.
//
// # Overview
//
// A session uses one long-lived control connection and one short-lived data
// connection per transfer:
//   - The requester connects to the interpreter's control port (30021 by
//     default) and sends command lines.
//   - The interpreter answers with plain text, and ends every answer with
//     the prompt ">>" (no newline) when it is ready for the next command.
//   - For "list" and "get" the requester listens on the data port (30020 by
//     default) and the interpreter connects to it. The payload ends when the
//     interpreter closes the data connection.
//
// A data connection is accepted only if it comes from the same IP address
// as the control connection. This check is advisory: any process on that
// host can pass it. The protocol has no authentication or encryption.
//
// The interpreter lives in the server subpackage.
//
// # Getting Started
//
//	ctx := context.Background()
//	client, err := ftransfer.Dial(ctx, "files.example.com:30021")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	dir, err := client.ChangeDir(ctx, "docs")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("now in", dir)
//
//	if _, err := client.List(ctx, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := client.Get(ctx, "report.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Status, res.Bytes, res.Path)
//
// # Downloads
//
// Get writes to the download directory (WithDownloadDir) under the last
// element of the remote name. The local file is created only after the
// first payload bytes arrive. If it already exists, the Confirmer
// (WithConfirmer) is asked first; without one the download is declined.
//
// # Interactive use
//
// Run reads commands from an io.Reader and prints replies, reproducing the
// ftclient console:
//
//	client, _ := ftransfer.Dial(ctx, host)
//	_ = client.Run(ctx, os.Stdin, os.Stdout)
//
// # Errors
//
// Failures reported by the interpreter ("Error: invalid directory") are
// returned as *CommandError. Broken framing is *ProtocolError and closes
// the client. Data-channel and local file failures are *DataChannelError
// and leave the session usable.
package ftransfer
