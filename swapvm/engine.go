// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/swapvm/balances"
	"github.com/luxfi/swapvm/metrics"
	"github.com/luxfi/swapvm/settlement"
)

// Request is one taker call against a maker program
type Request struct {
	Program  Program
	OrderID  [32]byte
	Maker    common.Address
	Taker    common.Address
	TokenIn  common.Address
	TokenOut common.Address
	// Amount is the input when IsExactIn, otherwise the output
	Amount    *uint256.Int
	IsExactIn bool
	// AllowZeroAmountIn lets a trade resolve to a zero input
	AllowZeroAmountIn bool
	// GasLimit of zero falls back to the configured default
	GasLimit uint64

	MakerHookData []byte
	TakerHookData []byte
}

// Result holds the settled amounts of one execution
type Result struct {
	AmountIn    *uint256.Int
	AmountOut   *uint256.Int
	Fees        []FeeCharge
	GasUsed     uint64
	ProgramHash [32]byte
}

// Engine executes swap programs against a fixed instruction set. It keeps no
// state between calls and is safe for concurrent use when its collaborators
// are.
type Engine struct {
	cfg Config
	set *InstructionSet

	source      balances.Source
	feeProvider FeeProvider
	chain       ChainContext
	settler     settlement.Settler

	log     log.Logger
	metrics *metrics.Metrics
}

// Option configures an Engine
type Option func(*Engine)

// WithBalanceSource serves DynamicBalances. A balances.Store also receives
// post-trade reserves after a settled swap.
func WithBalanceSource(source balances.Source) Option {
	return func(e *Engine) { e.source = source }
}

func WithFeeProvider(provider FeeProvider) Option {
	return func(e *Engine) { e.feeProvider = provider }
}

func WithChainContext(chain ChainContext) Option {
	return func(e *Engine) { e.chain = chain }
}

// WithSettler moves tokens for Swap before pending effects are committed
func WithSettler(settler settlement.Settler) Option {
	return func(e *Engine) { e.settler = settler }
}

func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.log = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an engine, linking the instruction set once from cfg
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	set, err := newInstructionSet(&cfg)
	if err != nil {
		return nil, err
	}
	e := &Engine{cfg: cfg, set: set}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = log.NewTestLogger(log.InfoLevel)
	}
	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Quote prices a request without touching mutating collaborators
func (e *Engine) Quote(req *Request) (*Result, error) {
	return e.execute(req, ModeQuote)
}

// Swap prices a request, settles it and commits pending effects. It returns
// the same amounts Quote would.
func (e *Engine) Swap(req *Request) (*Result, error) {
	return e.execute(req, ModeSwap)
}

// Decode splits a program and checks every entry against the instruction
// set and the program layout
func (e *Engine) Decode(p Program) ([]Instruction, error) {
	if len(p) > e.cfg.MaxProgramSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrProgramTooLarge, len(p), e.cfg.MaxProgramSize)
	}
	ins, err := p.Instructions()
	if err != nil {
		return nil, err
	}
	for i, in := range ins {
		op := e.set[in.Op]
		if op == nil {
			return nil, fmt.Errorf("%w: 0x%02x at entry %d", ErrUnknownOpcode, byte(in.Op), i)
		}
		if err := op.validate(in.Args); err != nil {
			return nil, fmt.Errorf("%s at entry %d: %w", op.name, i, err)
		}
	}
	if err := e.validateLayout(ins); err != nil {
		return nil, err
	}
	return ins, nil
}

// validateLayout requires exactly one balances instruction followed by
// exactly one swap, with fees in between. DynamicProtocolFee must come
// before the balances. Control instructions may appear anywhere.
func (e *Engine) validateLayout(ins []Instruction) error {
	balancesAt, swapAt := -1, -1
	for i, in := range ins {
		switch e.set[in.Op].family {
		case FamilyBalances:
			if balancesAt >= 0 {
				return fmt.Errorf("%w: second balances instruction at entry %d", ErrInvalidLayout, i)
			}
			balancesAt = i
		case FamilySwaps:
			if swapAt >= 0 {
				return fmt.Errorf("%w: second swap instruction at entry %d", ErrInvalidLayout, i)
			}
			if balancesAt < 0 {
				return fmt.Errorf("%w: swap before balances", ErrInvalidLayout)
			}
			swapAt = i
		case FamilyFees:
			if in.Op == DynamicProtocolFee {
				if balancesAt >= 0 {
					return fmt.Errorf("%w: %s must precede balances", ErrInvalidLayout, in.Op)
				}
				continue
			}
			if balancesAt < 0 || swapAt >= 0 {
				return fmt.Errorf("%w: %s at entry %d outside balances..swap", ErrInvalidLayout, in.Op, i)
			}
		}
	}
	if balancesAt < 0 {
		return fmt.Errorf("%w: no balances instruction", ErrInvalidLayout)
	}
	if swapAt < 0 {
		return fmt.Errorf("%w: no swap instruction", ErrInvalidLayout)
	}
	return nil
}

func checkRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if req.TokenIn == req.TokenOut {
		return ErrSameToken
	}
	if req.Amount == nil || req.Amount.IsZero() {
		return ErrZeroAmount
	}
	return nil
}

func (e *Engine) execute(req *Request, mode Mode) (res *Result, err error) {
	var gasUsed uint64
	defer func() {
		e.metrics.ObserveExecution(mode.String(), err, gasUsed)
		if err != nil {
			e.log.Debug("swap program aborted", "mode", mode, "err", err)
		}
	}()

	if err := checkRequest(req); err != nil {
		return nil, err
	}
	ins, err := e.Decode(req.Program)
	if err != nil {
		return nil, err
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = e.cfg.DefaultGasLimit
	}
	ctx := newContext(e, req, mode)
	for i, in := range ins {
		op := e.set[in.Op]
		if gasLimit > 0 && ctx.gasUsed+op.constantGas > gasLimit {
			gasUsed = ctx.gasUsed
			return nil, fmt.Errorf("%w: %s at entry %d needs %d, %d left", ErrOutOfGas, op.name, i, op.constantGas, gasLimit-ctx.gasUsed)
		}
		ctx.gasUsed += op.constantGas
		if err := op.execute(ctx, in.Args); err != nil {
			gasUsed = ctx.gasUsed
			return nil, fmt.Errorf("%s at entry %d: %w", op.name, i, err)
		}
		e.metrics.ObserveInstruction(op.name)
	}
	gasUsed = ctx.gasUsed

	if err := checkOutcome(ctx, req); err != nil {
		return nil, err
	}
	res = &Result{
		AmountIn:    ctx.AmountIn,
		AmountOut:   ctx.AmountOut,
		Fees:        ctx.Fees,
		GasUsed:     ctx.gasUsed,
		ProgramHash: req.Program.Hash(),
	}

	if mode == ModeSwap {
		if err := e.settle(ctx, req); err != nil {
			return nil, err
		}
	}

	e.log.Debug("swap program executed",
		"mode", mode,
		"program", common.Hash(res.ProgramHash),
		"tokenIn", req.TokenIn,
		"tokenOut", req.TokenOut,
		"amountIn", res.AmountIn.Dec(),
		"amountOut", res.AmountOut.Dec(),
		"gas", res.GasUsed,
	)
	return res, nil
}

func checkOutcome(ctx *Context, req *Request) error {
	if !ctx.swapped {
		return ErrSwapNotExecuted
	}
	if ctx.AmountIn.IsZero() && !req.AllowZeroAmountIn {
		return ErrZeroAmountIn
	}
	if ctx.AmountOut.IsZero() {
		return ErrZeroAmountOut
	}
	if ctx.AmountOut.Cmp(ctx.BalanceOut) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrOutputExceedsBalance, ctx.AmountOut.Dec(), ctx.BalanceOut.Dec())
	}
	return nil
}

// settle hands the amounts to the settler, then commits pending effects.
// Nothing is committed when settlement fails.
func (e *Engine) settle(ctx *Context, req *Request) error {
	if e.settler != nil {
		err := e.settler.Settle(&settlement.Request{
			Maker:         req.Maker,
			Taker:         req.Taker,
			TokenIn:       req.TokenIn,
			TokenOut:      req.TokenOut,
			AmountIn:      ctx.AmountIn,
			AmountOut:     ctx.AmountOut,
			OrderHash:     req.OrderID,
			MakerHookData: req.MakerHookData,
			TakerHookData: req.TakerHookData,
		})
		if err != nil {
			return fmt.Errorf("settlement failed: %w", err)
		}
	}
	for _, commit := range ctx.effects {
		if err := commit(); err != nil {
			return fmt.Errorf("failed to commit swap effects: %w", err)
		}
	}
	return nil
}
