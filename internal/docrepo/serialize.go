package docrepo

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
)

// encodePatch gob-encodes a single Patch for fingerprinting and for
// storage inside a Change block.
func encodePatch(p Patch) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeChange(c Change) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeChange(data []byte) (Change, error) {
	var c Change
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		return Change{}, err
	}
	return c, nil
}

// decodeChangeBlocks turns the block map a StorageBackend hands back on
// Load into a causally ordered Change slice. Block ids are zero-padded
// sequence numbers, so a lexicographic sort recovers log order.
func decodeChangeBlocks(blocks map[string][]byte) ([]Change, error) {
	ids := make([]string, 0, len(blocks))
	for id := range blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Change, 0, len(ids))
	for _, id := range ids {
		c, err := decodeChange(blocks[id])
		if err != nil {
			return nil, fmt.Errorf("decode block %q: %w", id, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// persist writes newChanges to the backend, one block per change, keyed
// by its zero-padded sequence number so LoadBlocks can recover order by
// sorting keys lexicographically.
func (r *Repo) persist(docID string, newChanges []Change) error {
	for _, c := range newChanges {
		data, err := encodeChange(c)
		if err != nil {
			return err
		}
		blockID := fmt.Sprintf("%020d", c.Seq)
		if err := r.backend.SaveBlock(docID, blockID, data); err != nil {
			return err
		}
	}
	return nil
}
