// Package property implements PropertyDecoder: a registry mapping Spinel
// property identifiers to the format they decode with (spec.md §4.3), plus
// the handful of property and command identifiers this package needs to
// exercise that registry. The full numeric enumeration of property and
// command identifiers is explicitly out of scope (spec.md §1, "the large
// enum of numeric property identifiers and command identifiers (content of
// the constants module)") — a real deployment supplies its own constants
// module and merges additional descriptors in via Registry.Merge. The
// identifiers below are the minimal, well-known subset the core itself
// must recognize to implement the behavior spec.md documents by name.
package property

// ID is a Spinel property identifier.
type ID uint32

// Command is a Spinel command identifier.
type Command uint32

// Command identifiers the CommandDispatcher recognizes (spec.md §4.4) or
// the TransactionMux issues (spec.md §4.5).
const (
	CmdNoop            Command = 0
	CmdReset           Command = 1
	CmdPropValueGet    Command = 2
	CmdPropValueSet    Command = 3
	CmdPropValueInsert Command = 4
	CmdPropValueRemove Command = 5
	CmdPropValueIs     Command = 6
	CmdPropValueInserted Command = 7
	CmdPropValueRemoved  Command = 8
)

// Well-known property identifiers referenced by name in spec.md.
const (
	PropLastStatus       ID = 0
	PropProtocolVersion  ID = 1
	PropNCPVersion       ID = 2
	PropInterfaceType    ID = 3
	PropVendorID         ID = 4
	PropCaps             ID = 5
	PropMACAllowlist     ID = 0x24
	PropThreadChildTable ID = 0x4c
	PropThreadOnMeshNets ID = 0x58
)

// LastStatus values the transaction mux matches on (spec.md §4.5 reset
// handshake, §8 reset-handshake test).
const (
	StatusOK             uint32 = 0
	StatusResetSoftware  uint32 = 114
)
