// Package link implements the line protocol between the scale and its
// network gateway over a serial byte stream.
//
// A frame is one newline-terminated line with surrounding whitespace
// trimmed. Empty frames are discarded. Every read is bounded by a
// deadline; on expiry ErrTimeout is returned, which no payload can be
// mistaken for.
package link
