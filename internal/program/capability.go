package program

import (
	"fmt"
	"strings"
)

// Side is the runtime environment an operation is exclusive to.
type Side uint8

const (
	SideNone Side = iota
	SideServer
	SideClient
)

func (s Side) String() string {
	switch s {
	case SideServer:
		return "server"
	case SideClient:
		return "client"
	}
	return "none"
}

// Capability is a host-exclusive operation tag attached by the type checker.
type Capability uint8

const (
	CapStorage       Capability = iota + 1 // persistent storage / database access
	CapFilesystem                          // host file system
	CapEnv                                 // process environment and secrets
	CapNetworkListen                       // accepting inbound connections
	CapDOM                                 // direct UI-surface access
	CapLocalStorage                        // browser-local storage
)

var capabilityNames = map[Capability]string{
	CapStorage:       "storage",
	CapFilesystem:    "filesystem",
	CapEnv:           "env",
	CapNetworkListen: "network_listen",
	CapDOM:           "dom",
	CapLocalStorage:  "local_storage",
}

func (c Capability) String() string {
	if name, ok := capabilityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Capability(%d)", c)
}

// Side returns the runtime the capability is exclusive to.
func (c Capability) Side() Side {
	switch c {
	case CapStorage, CapFilesystem, CapEnv, CapNetworkListen:
		return SideServer
	case CapDOM, CapLocalStorage:
		return SideClient
	}
	return SideNone
}

// ParseCapability accepts the document spelling of a capability tag.
func ParseCapability(s string) (Capability, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	for c, name := range capabilityNames {
		if name == norm {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", s)
}
