package server

import "github.com/gonzalop/ftransfer/internal/protocol"

// commandHandlers maps each command kind to its handler.
//
// A handler sends whatever the requester should see on the control channel
// and returns an error describing what went wrong, if anything. The error
// is only logged and counted; the session carries on unless the control
// connection itself failed.
var commandHandlers = map[protocol.Kind]func(*session, string) error{
	protocol.Invalid: (*session).handleInvalid,
	protocol.Exit:    (*session).handleExit,
	protocol.Pwd:     (*session).handlePwd,
	protocol.Cd:      (*session).handleCd,
	protocol.List:    (*session).handleList,
	protocol.Get:     (*session).handleGet,
}
