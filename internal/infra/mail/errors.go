package mail

import (
	"errors"
	"net"
	"net/textproto"
	"strconv"
)

const unknownErrorCode = "Unknown error"

// ErrorCode condenses a send failure into the short code reported to
// callers: the SMTP reply code when the server refused the message,
// otherwise a connection class.
func ErrorCode(err error) string {
	if err == nil {
		return unknownErrorCode
	}

	var reply *textproto.Error
	if errors.As(err, &reply) {
		return strconv.Itoa(reply.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "ETIMEDOUT"
		}
		return "ECONNECTION"
	}
	return unknownErrorCode
}
