/*
Package chain implements the hashed block and the proof-of-work ledger that
every participant keeps a copy of.

A block's hash covers only its nonce, timestamp, amount and previous hash.
The block type and both account fields are outside the hash domain, so
relabelling accounts on a block is not detected by Verify. Existing chains
depend on this hash form and it must not be widened silently.

The hashed text is compact JSON with sorted keys and the amount written in
its shortest decimal form, so 100 hashes as "transaction":100 with no space
after separators and no trailing ".0". Hashes are therefore not
interchangeable with ledgers that hashed Python json.dumps output.
*/
package chain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the layout of block timestamps. The timestamp is hashed as
// text, so the layout is part of the hash domain.
const TimeLayout = "2006-01-02 15:04:05.000000"

// ErrInvalidBlockType is returned when a block type is unknown or may not be proposed.
var ErrInvalidBlockType = errors.New("invalid block type")

// BlockType tags the transaction carried by a block.
type BlockType string

const (
	Genesis     BlockType = "Genesis"
	Sales       BlockType = "Sales"
	Expenditure BlockType = "Expenditure"
	Adjustment  BlockType = "Adjustment"
)

// ParseBlockType accepts the types a participant may propose: Sales and Expenditure.
func ParseBlockType(s string) (BlockType, error) {
	switch t := BlockType(s); t {
	case Sales, Expenditure:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q, only %s and %s blocks can be proposed", ErrInvalidBlockType, s, Sales, Expenditure)
	}
}

// Block is a single ledger entry. It is mutated by Mine and is immutable afterwards.
type Block struct {
	Type        BlockType `codec:"blockType" json:"blockType"`
	Nonce       uint64    `codec:"nonce" json:"nonce"`
	Timestamp   string    `codec:"timestamp" json:"timestamp"`
	Amount      float64   `codec:"amount" json:"amount"`
	ToAccount   string    `codec:"toAccount" json:"toAccount"`
	FromAccount string    `codec:"fromAccount" json:"fromAccount"`
	PrevHash    string    `codec:"prevHash" json:"prevHash"`
	Hash        string    `codec:"hash" json:"hash"`
}

// NewBlock creates a block and computes its hash from the given nonce.
// PrevHash is left empty; it is set when the block is linked into a chain.
func NewBlock(t BlockType, nonce uint64, ts time.Time, amount float64, from, to string) *Block {
	b := &Block{
		Type:        t,
		Nonce:       nonce,
		Timestamp:   ts.Format(TimeLayout),
		Amount:      amount,
		ToAccount:   to,
		FromAccount: from,
	}
	b.Hash = b.ComputeHash()
	return b
}

// ComputeHash returns the sha256 hex digest of the block's hashed fields.
func (b *Block) ComputeHash() string {
	return hashAsString(hashInput(b.Nonce, b.PrevHash, b.Timestamp, b.Amount))
}

// Mine increments the nonce until the hash starts with difficulty zero hex
// characters. It does not return before a nonce is found.
func (b *Block) Mine(difficulty int) {
	b.Hash = b.ComputeHash()
	for !MeetsDifficulty(b.Hash, difficulty) {
		b.Nonce++
		b.Hash = b.ComputeHash()
	}
}

// MeetsDifficulty reports whether hash has at least difficulty leading '0' characters.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(hash) {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}

func (b *Block) clone() *Block {
	c := *b
	return &c
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Block Type:\t%s\n", b.Type)
	fmt.Fprintf(&sb, "Nonce:\t\t%d\n", b.Nonce)
	fmt.Fprintf(&sb, "Timestamp:\t%s\n", b.Timestamp)
	fmt.Fprintf(&sb, "Amount:\t\t%s\n", FormatAmount(b.Amount))
	fmt.Fprintf(&sb, "To Account:\t%s\n", b.ToAccount)
	fmt.Fprintf(&sb, "From Account:\t%s\n", b.FromAccount)
	fmt.Fprintf(&sb, "Previous Hash:\t%s\n", b.PrevHash)
	fmt.Fprintf(&sb, "Current Hash:\t%s", b.Hash)
	return sb.String()
}
