package coordinator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gitzhang10/auditchain/chain"
)

// snapshot is the on-disk form of the replica store.
type snapshot struct {
	Replicas map[string][]byte `codec:"replicas"`
}

// SaveSnapshot writes every replica to path. The file is replaced atomically.
func SaveSnapshot(path string, replicas map[string]*chain.Chain) error {
	s := snapshot{Replicas: make(map[string][]byte, len(replicas))}
	for name, c := range replicas {
		data, err := c.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encode replica %s: %w", name, err)
		}
		s.Replicas[name] = data
	}
	data, err := chain.Encode(s)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadSnapshot reads the replicas written by SaveSnapshot. A missing file
// yields an empty map. Chains are returned as stored, without verification.
func LoadSnapshot(path string) (map[string]*chain.Chain, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*chain.Chain{}, nil
	}
	if err != nil {
		return nil, err
	}
	var s snapshot
	if err := chain.Decode(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	out := make(map[string]*chain.Chain, len(s.Replicas))
	for name, raw := range s.Replicas {
		c := &chain.Chain{}
		if err := c.UnmarshalBinary(raw); err != nil {
			return nil, fmt.Errorf("replica %s: %w", name, err)
		}
		out[name] = c
	}
	return out, nil
}

// Restore loads the snapshot configured for the node into its store. Every
// hash is recomputed; a replica that fails verification is kept as is and
// reported in the log.
func (n *Node) Restore() error {
	if n.snapshotPath == "" {
		return nil
	}
	replicas, err := LoadSnapshot(n.snapshotPath)
	if err != nil {
		return err
	}
	n.lock.Lock()
	defer n.lock.Unlock()
	for name, c := range replicas {
		if err := c.Verify(); err != nil {
			n.logger.Warn("restored replica failed verification", "participant", name, "error", err)
		}
		n.store.Replace(name, c)
	}
	n.logger.Info("restored snapshot", "path", n.snapshotPath, "replicas", len(replicas))
	return nil
}

// saveSnapshotLocked persists the store when a snapshot path is configured.
// n.lock must be held.
func (n *Node) saveSnapshotLocked() {
	if n.snapshotPath == "" {
		return
	}
	if err := SaveSnapshot(n.snapshotPath, n.store.Snapshot()); err != nil {
		n.logger.Error("failed to save snapshot", "path", n.snapshotPath, "error", err)
	}
}
