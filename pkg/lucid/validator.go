// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lucid

import "fmt"

// CheckReply matches a decoded reply against the command that produced it.
//
// Checks run in severity order: an instance mismatch is a ConnectionError
// (the host is talking to a different unit than it connected to), a rejected
// command is a ProtocolError(NotAcknowledged), and an echo of another command
// is a ProtocolError(UnexpectedCommand), usually a late reply to an earlier
// request.
func CheckReply(reply *ResponseFrame, sent *CommandFrame) error {
	if reply == nil || !reply.Valid() {
		var raw []byte
		if reply != nil {
			raw = reply.Raw()
		}
		return malformed(raw, "reply failed validation")
	}

	if reply.Instance() != sent.Instance() {
		return &ConnectionError{
			Reason: ReasonDeviceMismatch,
			Err: fmt.Errorf("reply from instance %s, connected to instance %s",
				reply.Instance(), sent.Instance()),
		}
	}

	if reply.Rejected() {
		return &ProtocolError{
			Reason: ReasonNotAcknowledged,
			Detail: fmt.Sprintf("%s rejected by device", sent.Key()),
			Raw:    reply.Raw(),
		}
	}

	if reply.Echo() != sent.Key() {
		return &ProtocolError{
			Reason: ReasonUnexpectedCommand,
			Detail: fmt.Sprintf("reply echoes %s, sent %s", reply.Echo(), sent.Key()),
			Raw:    reply.Raw(),
		}
	}

	return nil
}
