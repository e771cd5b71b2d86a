// Package audit computes the tax adjustment owed on the latest
// Expenditure/Sales pair of a chain.
package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/gitzhang10/auditchain/chain"
)

const (
	// ThresholdPercent is the share of expenditure a profit must exceed to need no adjustment.
	ThresholdPercent = 14.5
	// AdjustmentRate is applied to the shortfall below the threshold.
	AdjustmentRate = 0.25

	// FromAccount and ToAccount label every adjustment block.
	FromAccount = "Company"
	ToAccount   = "CBDT"
)

// ErrProtocolOrder is returned unless exactly one of the last two blocks is an Expenditure.
var ErrProtocolOrder = errors.New("the ordering of the blocks should be Expenditure->Sales or Sales->Expenditure")

// Adjustment is the outcome of inspecting a chain.
type Adjustment struct {
	Sales       float64
	Expenditure float64
	Profit      float64
	Threshold   float64
	// Required is false when the profit exceeds the threshold.
	Required bool
	Amount   float64
}

// ComputeAdjustment inspects the last two blocks of c. Exactly one of them
// must be an Expenditure block; the other one supplies the sales amount,
// whatever its type.
func ComputeAdjustment(c *chain.Chain) (Adjustment, error) {
	tail := c.Tail(2)
	if len(tail) < 2 {
		return Adjustment{}, fmt.Errorf("%w: need two blocks, have %d", ErrProtocolOrder, len(tail))
	}
	var sales, expenditure *chain.Block
	switch {
	case tail[0].Type == chain.Expenditure && tail[1].Type != chain.Expenditure:
		expenditure, sales = &tail[0], &tail[1]
	case tail[1].Type == chain.Expenditure && tail[0].Type != chain.Expenditure:
		sales, expenditure = &tail[0], &tail[1]
	default:
		return Adjustment{}, fmt.Errorf("%w: last blocks are %s and %s", ErrProtocolOrder, tail[0].Type, tail[1].Type)
	}

	a := Adjustment{
		Sales:       sales.Amount,
		Expenditure: expenditure.Amount,
		Profit:      sales.Amount - expenditure.Amount,
		Threshold:   ThresholdPercent * expenditure.Amount / 100,
	}
	if a.Profit > a.Threshold {
		return a, nil
	}
	a.Required = true
	a.Amount = (a.Threshold - a.Profit) * AdjustmentRate
	return a, nil
}

// Block returns an unmined adjustment block for a, or nil if none is required.
func (a Adjustment) Block(nonce uint64, ts time.Time) *chain.Block {
	if !a.Required {
		return nil
	}
	return chain.NewBlock(chain.Adjustment, nonce, ts, a.Amount, FromAccount, ToAccount)
}
