// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"fmt"

	"github.com/luxfi/log"
)

// Dispatcher settles a request through a Transferer, running the maker's and
// then the taker's registered hooks at each point:
//
//	preTransferIn, transfer in, postTransferIn,
//	preTransferOut, transfer out, postTransferOut
//
// The first failing hook or transfer aborts. A completed inbound transfer is
// returned to the taker before the error is reported.
type Dispatcher struct {
	transferer Transferer
	hooks      *HookRegistry
	log        log.Logger
}

// NewDispatcher creates a dispatcher. hooks may be nil.
func NewDispatcher(transferer Transferer, hooks *HookRegistry, logger log.Logger) *Dispatcher {
	if hooks == nil {
		hooks = NewHookRegistry()
	}
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}
	return &Dispatcher{
		transferer: transferer,
		hooks:      hooks,
		log:        logger,
	}
}

// Settle implements Settler
func (d *Dispatcher) Settle(req *Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if err := d.runHooks(HookPreTransferIn, req); err != nil {
		return err
	}
	if err := d.transferer.Transfer(req.TokenIn, req.Taker, req.Maker, req.AmountIn); err != nil {
		return fmt.Errorf("%w: in: %w", ErrTransferFailed, err)
	}

	err := d.runHooks(HookPostTransferIn, req)
	if err == nil {
		err = d.runHooks(HookPreTransferOut, req)
	}
	if err == nil {
		if terr := d.transferer.Transfer(req.TokenOut, req.Maker, req.Taker, req.AmountOut); terr != nil {
			err = fmt.Errorf("%w: out: %w", ErrTransferFailed, terr)
		}
	}
	if err != nil {
		d.refundIn(req)
		return err
	}

	if err := d.runHooks(HookPostTransferOut, req); err != nil {
		if terr := d.transferer.Transfer(req.TokenOut, req.Taker, req.Maker, req.AmountOut); terr != nil {
			d.log.Warn("settlement rollback failed", "token", req.TokenOut, "error", terr)
		}
		d.refundIn(req)
		return err
	}
	return nil
}

func (d *Dispatcher) refundIn(req *Request) {
	if err := d.transferer.Transfer(req.TokenIn, req.Maker, req.Taker, req.AmountIn); err != nil {
		d.log.Warn("settlement rollback failed", "token", req.TokenIn, "error", err)
	}
}

func (d *Dispatcher) runHooks(point HookFlags, req *Request) error {
	if err := d.hooks.call(req.Maker, point, req, req.MakerHookData); err != nil {
		d.log.Debug("maker hook failed", "point", point.String(), "maker", req.Maker, "error", err)
		return fmt.Errorf("%w: maker %s: %w", ErrHookCallFailed, point, err)
	}
	if err := d.hooks.call(req.Taker, point, req, req.TakerHookData); err != nil {
		d.log.Debug("taker hook failed", "point", point.String(), "taker", req.Taker, "error", err)
		return fmt.Errorf("%w: taker %s: %w", ErrHookCallFailed, point, err)
	}
	return nil
}

// HookOrder returns the order in which hook points fire
func HookOrder() []HookFlags {
	return append([]HookFlags(nil), hookOrder...)
}
