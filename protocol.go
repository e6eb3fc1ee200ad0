// Package rsync holds protocol-level constants shared by every package in
// this module: the wire protocol version range, capability bits, file-list
// status flags, and daemon-line prefixes. It intentionally carries no logic.
package rsync

// Protocol version range this implementation negotiates. Versions 29 through
// 31 are the "modern" rsync remote-update protocol generations; anything
// older is out of scope (see spec.md §1 Non-goals).
const (
	MinProtocolVersion = 29
	LatestProtocolVersion = 31

	// ProtocolVersion is the version this implementation sends during
	// negotiation. The peer's version is read and logged; it does not change
	// the version this side uses.
	ProtocolVersion = LatestProtocolVersion
)

// Capability bits exchanged after version negotiation (§4.8). The two peers
// AND their bit-sets together to compute the common capability set.
const (
	CapCodecs uint32 = 1 << iota
	CapACLs
	CapXattrs
	CapHardlinks
)

// Frame message tags, carried in the high byte of a multiplexed frame header
// (§3 Frame, §8.1).
const (
	MsgData  uint8 = 0
	MsgError uint8 = 1
	MsgInfo  uint8 = 2
	MsgWarning uint8 = 3
	MsgVersion uint8 = 4
	MsgDone    uint8 = 5
	MsgCodecs  uint8 = 6
	MsgAuth    uint8 = 7
	MsgMotdLine uint8 = 8
	MsgKeepAlive uint8 = 9
)

// MaxFrameLen bounds an individual frame payload (§3 Frame, §5 Memory budget).
const MaxFrameLen = 16 << 20 // 16 MiB

// File-list status-byte flags (§4.3 File-list codec, classic rsync FLIST_*
// bits). Only the bits this implementation emits/consumes are named; unused
// legacy bits are not defined.
const (
	FlistTopLevel uint8 = 0x01
	FlistSameMode uint8 = 0x02
	FlistSameUID  uint8 = 0x08
	FlistSameGID  uint8 = 0x10
	FlistNameInherit uint8 = 0x20
	FlistNameLong    uint8 = 0x40
	FlistSameTime    uint8 = 0x80
)

// Daemon text-protocol line prefixes (§6.2).
const (
	DaemonGreetingPrefix = "@RSYNCD: "
	DaemonOK             = "@RSYNCD: OK\n"
	DaemonExit           = "@RSYNCD: EXIT\n"
	DaemonErrorPrefix    = "@ERROR: "
)
