// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"fmt"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/luxfi/swapvm/curves"
)

const (
	DefaultMaxFeeBps       uint16 = 5_000
	DefaultMaxProgramSize         = 4096
	DefaultDefaultGasLimit uint64 = 100_000
)

// Config fixes the instruction set and execution limits of an Engine.
// It is read once when the engine is built.
type Config struct {
	// MaxFeeBps caps the rate of every fee instruction
	MaxFeeBps uint16 `json:"maxFeeBps" toml:"max-fee-bps"`
	// MaxProgramSize caps the encoded program length in bytes
	MaxProgramSize int `json:"maxProgramSize" toml:"max-program-size"`
	// DefaultGasLimit applies to requests without a gas limit; zero means unmetered
	DefaultGasLimit uint64 `json:"defaultGasLimit" toml:"default-gas-limit"`
	// DisabledOpcodes lists opcode names removed from the instruction set
	DisabledOpcodes []string `json:"disabledOpcodes,omitempty" toml:"disabled-opcodes"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		MaxFeeBps:       DefaultMaxFeeBps,
		MaxProgramSize:  DefaultMaxProgramSize,
		DefaultGasLimit: DefaultDefaultGasLimit,
	}
}

// LoadConfig reads a TOML file over the defaults and verifies the result
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Verify(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Verify checks the configuration is usable
func (c *Config) Verify() error {
	if uint64(c.MaxFeeBps) >= curves.FeeDenominator {
		return fmt.Errorf("max fee %d bps must be below %d", c.MaxFeeBps, curves.FeeDenominator)
	}
	if c.MaxProgramSize <= 0 {
		return fmt.Errorf("max program size must be positive, got %d", c.MaxProgramSize)
	}
	for _, name := range c.DisabledOpcodes {
		if _, ok := StringToOp(name); !ok {
			return fmt.Errorf("unknown disabled opcode %q", name)
		}
	}
	return nil
}

func (c *Config) Equal(other *Config) bool {
	if other == nil {
		return false
	}
	return c.MaxFeeBps == other.MaxFeeBps &&
		c.MaxProgramSize == other.MaxProgramSize &&
		c.DefaultGasLimit == other.DefaultGasLimit &&
		slices.Equal(c.DisabledOpcodes, other.DisabledOpcodes)
}

func (c *Config) disabled(op OpCode) bool {
	return slices.Contains(c.DisabledOpcodes, op.String())
}
