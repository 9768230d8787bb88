package server

import (
	"errors"
	"io/fs"

	"github.com/gonzalop/ftransfer/internal/protocol"
)

func (s *session) handlePwd(_ string) error {
	wd, err := s.fs.GetWd()
	if err != nil {
		// The session's working directory is always known; this only
		// happens with custom drivers.
		_ = s.reply(protocol.MsgChangeDirFailed)
		return err
	}
	return s.reply(protocol.MsgWorkingDirPrefix + wd + "\n")
}

func (s *session) handleCd(path string) error {
	if err := s.fs.ChangeDir(path); err != nil {
		if rerr := s.reply(cdErrorMessage(err)); rerr != nil {
			return rerr
		}
		return err
	}

	wd, err := s.fs.GetWd()
	if err != nil {
		_ = s.reply(protocol.MsgChangeDirFailed)
		return err
	}

	s.server.logger.Debug("directory changed",
		"session_id", s.sessionID,
		"path", wd,
	)
	return s.reply(protocol.MsgWorkingDirPrefix + wd + "\n")
}

// cdErrorMessage maps a ChangeDir failure to its control message.
func cdErrorMessage(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return protocol.MsgPermissionDenied
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrNotDirectory):
		return protocol.MsgInvalidDirectory
	default:
		return protocol.MsgChangeDirFailed
	}
}

// openErrorMessage maps an OpenFile failure to its control message.
func openErrorMessage(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return protocol.MsgFileNotExist
	case errors.Is(err, ErrIsDirectory):
		return protocol.MsgNotRegularFile
	case errors.Is(err, fs.ErrPermission):
		return protocol.MsgPermissionDenied
	default:
		return protocol.MsgOpenFileFailed
	}
}
