package chain

import (
	"errors"
	"fmt"
)

// persistedChain is the stored form of a chain. Blocks keep every field,
// but only the hashed ones are needed to re-verify the chain after loading.
type persistedChain struct {
	Difficulty int      `codec:"difficulty"`
	Blocks     []*Block `codec:"blocks"`
}

// MarshalBinary encodes the chain with msgpack.
func (c *Chain) MarshalBinary() ([]byte, error) {
	return Encode(persistedChain{Difficulty: c.difficulty, Blocks: c.entries})
}

// UnmarshalBinary decodes a chain written by MarshalBinary. It does not
// verify hashes; callers run Verify on the result.
func (c *Chain) UnmarshalBinary(data []byte) error {
	var p persistedChain
	if err := Decode(data, &p); err != nil {
		return fmt.Errorf("decode chain: %w", err)
	}
	if len(p.Blocks) == 0 {
		return errors.New("decode chain: no genesis block")
	}
	for i, b := range p.Blocks {
		if b == nil {
			return fmt.Errorf("decode chain: block %d is empty", i)
		}
	}
	if p.Difficulty < 0 || p.Difficulty > MaxDifficulty {
		return fmt.Errorf("decode chain: difficulty %d out of range", p.Difficulty)
	}
	c.entries = p.Blocks
	c.difficulty = p.Difficulty
	return nil
}
