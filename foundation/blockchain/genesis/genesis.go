// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultPath is where the node looks for the genesis file.
const DefaultPath = "zblock/genesis.json"

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time `json:"date"`
	ChainID       uint16    `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	Version       uint32    `json:"version"`         // The block version used for the genesis block.
	TransPerBlock uint16    `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	Difficulty    uint32    `json:"difficulty"`      // Number of leading zero bits a block hash needs.
	MiningReward  uint64    `json:"mining_reward"`   // Reward minted by the coinbase of every block.
	TimeStamp     uint64    `json:"timestamp"`       // Timestamp written into the genesis block header.
}

// =============================================================================

// Load opens and consumes the genesis file at the specified path.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the genesis values are usable.
func (g Genesis) Validate() error {
	switch {
	case g.Difficulty > 256:
		return fmt.Errorf("difficulty %d can't be met by a 256 bit hash", g.Difficulty)
	case g.MiningReward == 0:
		return errors.New("mining reward must be greater than zero")
	case g.TransPerBlock == 0:
		return errors.New("trans per block must be greater than zero")
	}

	return nil
}
