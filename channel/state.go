// File: channel/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package channel

// lifecycleState is the non-blocking client channel state machine of
// spec.md §3/§4.E, walked in exactly this order (connect failure and
// close both fall through to Unregistering, where a closed channel stays;
// only an explicit deregister of an open channel returns to Unregistered).
type lifecycleState int32

const (
	stateUnregistered lifecycleState = iota
	stateRegistering
	stateRegistered
	stateConnecting
	stateActive
	stateClosing
	stateUnregistering
)

func (s lifecycleState) String() string {
	switch s {
	case stateUnregistered:
		return "Unregistered"
	case stateRegistering:
		return "Registering"
	case stateRegistered:
		return "Registered"
	case stateConnecting:
		return "Connecting"
	case stateActive:
		return "Active"
	case stateClosing:
		return "Closing"
	case stateUnregistering:
		return "Unregistering"
	default:
		return "Unknown"
	}
}
