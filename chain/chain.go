package chain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultDifficulty is the number of leading zero hex characters a mined block needs.
const DefaultDifficulty = 3

// MaxDifficulty is the width of a hex encoded sha256 digest.
const MaxDifficulty = 64

var (
	// ErrStaleTip is returned by Append when the block was not linked to the current tip.
	ErrStaleTip = errors.New("block does not extend the current tip")
	// ErrUnmined is returned by Append when the block's hash is wrong or too easy.
	ErrUnmined = errors.New("block is not mined")
)

// TamperError describes the first inconsistency Verify finds.
type TamperError struct {
	Index  int
	Reason string
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("blockchain tampered at block %d: %s", e.Index, e.Reason)
}

// Chain is an ordered sequence of blocks rooted at a genesis block.
// A Chain is not safe for concurrent use; its owner serializes access.
type Chain struct {
	entries    []*Block
	difficulty int
}

// NewGenesisBlock returns the unmined first block of every chain.
func NewGenesisBlock(ts time.Time) *Block {
	return NewBlock(Genesis, 0, ts, 0, "", "")
}

// New creates a chain holding only a fresh genesis block.
func New(difficulty int) *Chain {
	return &Chain{
		entries:    []*Block{NewGenesisBlock(time.Now())},
		difficulty: difficulty,
	}
}

func (c *Chain) Difficulty() int {
	return c.difficulty
}

func (c *Chain) Len() int {
	return len(c.entries)
}

// Tip returns the last block. The block stays owned by the chain.
func (c *Chain) Tip() *Block {
	return c.entries[len(c.entries)-1]
}

// At returns the block at index i, or nil when i is out of range.
// The block stays owned by the chain.
func (c *Chain) At(i int) *Block {
	if i < 0 || i >= len(c.entries) {
		return nil
	}
	return c.entries[i]
}

// Tail returns copies of the last n blocks, oldest first. It returns fewer
// blocks when the chain is shorter than n.
func (c *Chain) Tail(n int) []Block {
	if n > len(c.entries) {
		n = len(c.entries)
	}
	out := make([]Block, 0, n)
	for _, b := range c.entries[len(c.entries)-n:] {
		out = append(out, *b)
	}
	return out
}

// AppendMined links b to the tip, mines it under the chain's difficulty and appends it.
func (c *Chain) AppendMined(b *Block) {
	b.PrevHash = c.Tip().Hash
	b.Mine(c.difficulty)
	c.entries = append(c.entries, b)
}

// Append appends a block that was linked and mined elsewhere. The block must
// extend the current tip and satisfy the chain's difficulty.
func (c *Chain) Append(b *Block) error {
	if b.PrevHash != c.Tip().Hash {
		return ErrStaleTip
	}
	if b.Hash != b.ComputeHash() || !MeetsDifficulty(b.Hash, c.difficulty) {
		return ErrUnmined
	}
	c.entries = append(c.entries, b)
	return nil
}

// Verify recomputes every hash and link from index 1 onwards and returns a
// *TamperError for the first mismatch.
func (c *Chain) Verify() error {
	if len(c.entries) == 0 {
		return &TamperError{Index: 0, Reason: "missing genesis block"}
	}
	if g := c.entries[0]; g.Type != Genesis || g.PrevHash != "" {
		return &TamperError{Index: 0, Reason: "malformed genesis block"}
	}
	for i := 1; i < len(c.entries); i++ {
		prev, curr := c.entries[i-1], c.entries[i]
		if curr.Hash != curr.ComputeHash() {
			return &TamperError{Index: i, Reason: "error in computing hash"}
		}
		if curr.PrevHash != prev.Hash {
			return &TamperError{Index: i, Reason: "previous hash does not match"}
		}
	}
	return nil
}

// Validate reports the outcome of Verify as a message and a validity flag.
func (c *Chain) Validate() (string, bool) {
	if err := c.Verify(); err != nil {
		return err.Error(), false
	}
	return "blockchain is valid", true
}

// AccountTotal aggregates one account's transfers. Outgoing is negative.
type AccountTotal struct {
	Account  string
	Incoming float64
	Outgoing float64
}

// TotalsByAccount sums received and sent amounts for every account after
// genesis, in order of first appearance (receiver before sender per block).
func (c *Chain) TotalsByAccount() []AccountTotal {
	var totals []AccountTotal
	index := make(map[string]int)
	slot := func(account string) *AccountTotal {
		i, ok := index[account]
		if !ok {
			i = len(totals)
			index[account] = i
			totals = append(totals, AccountTotal{Account: account})
		}
		return &totals[i]
	}
	for _, b := range c.entries[1:] {
		slot(b.ToAccount)
		slot(b.FromAccount)
	}
	for _, b := range c.entries[1:] {
		slot(b.ToAccount).Incoming += b.Amount
		slot(b.FromAccount).Outgoing -= b.Amount
	}
	return totals
}

// Report renders TotalsByAccount as text.
func (c *Chain) Report() string {
	var sb strings.Builder
	for _, t := range c.TotalsByAccount() {
		fmt.Fprintf(&sb, "################ Net transactions for %s ################\n", t.Account)
		fmt.Fprintf(&sb, "Incoming transactions: %s\n", FormatAmount(t.Incoming))
		fmt.Fprintf(&sb, "Outgoing transactions: %s\n", FormatAmount(t.Outgoing))
	}
	return sb.String()
}

// Render dumps every block in order.
func (c *Chain) Render() string {
	var sb strings.Builder
	for i, b := range c.entries {
		fmt.Fprintf(&sb, "######################### Block %d #########################\n", i)
		sb.WriteString(b.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Clone returns an independent deep copy.
func (c *Chain) Clone() *Chain {
	entries := make([]*Block, len(c.entries))
	for i, b := range c.entries {
		entries[i] = b.clone()
	}
	return &Chain{entries: entries, difficulty: c.difficulty}
}

// FormatAmount prints an amount without a trailing exponent or zeros.
func FormatAmount(a float64) string {
	return strconv.FormatFloat(a, 'f', -1, 64)
}
