// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

// The windows console does not interpret escape sequences by default.

func (s Severity) color() string {
	return ""
}

func endColor() string {
	return ""
}
