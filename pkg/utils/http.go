package utils

import "io"

// maxDrain bounds how much of an unread body is discarded to keep the connection reusable.
const maxDrain = 64 << 10

// DrainAndClose discards up to maxDrain bytes of rc and closes it.
func DrainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, maxDrain))
	return rc.Close()
}
