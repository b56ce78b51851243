// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// HookFlags is a bitmap of transfer hook points
type HookFlags uint16

const (
	HookPreTransferIn HookFlags = 1 << iota
	HookPostTransferIn
	HookPreTransferOut
	HookPostTransferOut
)

// hookOrder is the fixed order in which hook points fire during settlement
var hookOrder = []HookFlags{
	HookPreTransferIn,
	HookPostTransferIn,
	HookPreTransferOut,
	HookPostTransferOut,
}

func (f HookFlags) String() string {
	switch f {
	case HookPreTransferIn:
		return "preTransferIn"
	case HookPostTransferIn:
		return "postTransferIn"
	case HookPreTransferOut:
		return "preTransferOut"
	case HookPostTransferOut:
		return "postTransferOut"
	default:
		return "mixed"
	}
}

// HookPermissions contains the flags derived from a hook address
type HookPermissions struct {
	PreTransferIn   bool
	PostTransferIn  bool
	PreTransferOut  bool
	PostTransferOut bool
}

// Hook errors
var (
	ErrHookNotRegistered  = errors.New("hook not registered")
	ErrHookCallFailed     = errors.New("hook call failed")
	ErrHookInvalidAddress = errors.New("hook address doesn't match capabilities")
	ErrHookRegistered     = errors.New("hook already registered")
)

// Hook is a maker- or taker-supplied callback run around transfers. The
// hookData is the caller's own data from the request.
type Hook interface {
	OnTransfer(point HookFlags, req *Request, hookData []byte) error
}

// HookFunc adapts a function to the Hook interface
type HookFunc func(point HookFlags, req *Request, hookData []byte) error

func (f HookFunc) OnTransfer(point HookFlags, req *Request, hookData []byte) error {
	return f(point, req, hookData)
}

// EncodeHookPermissions encodes permissions into a HookFlags bitmap
func EncodeHookPermissions(p HookPermissions) HookFlags {
	var flags HookFlags

	if p.PreTransferIn {
		flags |= HookPreTransferIn
	}
	if p.PostTransferIn {
		flags |= HookPostTransferIn
	}
	if p.PreTransferOut {
		flags |= HookPreTransferOut
	}
	if p.PostTransferOut {
		flags |= HookPostTransferOut
	}

	return flags
}

// DecodeHookPermissions decodes a HookFlags bitmap into permissions
func DecodeHookPermissions(flags HookFlags) HookPermissions {
	return HookPermissions{
		PreTransferIn:   flags&HookPreTransferIn != 0,
		PostTransferIn:  flags&HookPostTransferIn != 0,
		PreTransferOut:  flags&HookPreTransferOut != 0,
		PostTransferOut: flags&HookPostTransferOut != 0,
	}
}

// AddressFlags returns the hook flags encoded in the first two bytes of an address
func AddressFlags(addr common.Address) HookFlags {
	return HookFlags(binary.BigEndian.Uint16(addr[0:2]))
}

// ValidateHookAddress validates that a hook address encodes the claimed permissions
func ValidateHookAddress(addr common.Address, permissions HookPermissions) error {
	if AddressFlags(addr) != EncodeHookPermissions(permissions) {
		return ErrHookInvalidAddress
	}
	return nil
}

// GenerateHookAddress derives a hook address for the given permissions from
// a deployer and salt
func GenerateHookAddress(deployer common.Address, salt [32]byte, permissions HookPermissions) common.Address {
	h := blake3.New()
	h.Write([]byte{0xff})
	h.Write(deployer.Bytes())
	h.Write(salt[:])

	var hash [32]byte
	h.Digest().Read(hash[:])

	var addr common.Address
	copy(addr[:], hash[12:32])
	binary.BigEndian.PutUint16(addr[0:2], uint16(EncodeHookPermissions(permissions)))
	return addr
}

type registeredHook struct {
	hook  Hook
	flags HookFlags
}

// HookRegistry maps hook addresses to their implementations
type HookRegistry struct {
	hooks map[common.Address]registeredHook
}

// NewHookRegistry creates a new hook registry
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{
		hooks: make(map[common.Address]registeredHook),
	}
}

// RegisterHook registers a hook whose capabilities are taken from its address
func (hr *HookRegistry) RegisterHook(addr common.Address, permissions HookPermissions, hook Hook) error {
	if err := ValidateHookAddress(addr, permissions); err != nil {
		return err
	}
	if _, ok := hr.hooks[addr]; ok {
		return ErrHookRegistered
	}
	hr.hooks[addr] = registeredHook{hook: hook, flags: EncodeHookPermissions(permissions)}
	return nil
}

// GetHookFlags returns the flags for a registered hook
func (hr *HookRegistry) GetHookFlags(addr common.Address) (HookFlags, bool) {
	h, ok := hr.hooks[addr]
	return h.flags, ok
}

// IsHookEnabled checks if a specific hook point is enabled for an address
func (hr *HookRegistry) IsHookEnabled(addr common.Address, flag HookFlags) bool {
	h, ok := hr.hooks[addr]
	return ok && h.flags&flag != 0
}

// call runs the hook registered at addr for one point, if enabled
func (hr *HookRegistry) call(addr common.Address, point HookFlags, req *Request, hookData []byte) error {
	h, ok := hr.hooks[addr]
	if !ok || h.flags&point == 0 {
		return nil
	}
	return h.hook.OnTransfer(point, req, hookData)
}
