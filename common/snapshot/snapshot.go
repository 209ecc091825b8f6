package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/qefaraki/lineage/common/models"
)

// Marshal encodes a person row as an audit snapshot. The snapshot is the
// whole row: enough to reverse any single mutation without consulting
// other entries.
func Marshal(p *models.Person) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// ChangedFields returns the names of top-level fields that differ between
// two snapshots, derived from their JSON merge patch. A nil old snapshot
// (creation) yields a nil list.
func ChangedFields(oldData, newData []byte) ([]string, error) {
	if len(oldData) == 0 {
		return nil, nil
	}

	patch, err := jsonpatch.CreateMergePatch(oldData, newData)
	if err != nil {
		return nil, fmt.Errorf("diff snapshots: %w", err)
	}

	var delta map[string]json.RawMessage
	if err := json.Unmarshal(patch, &delta); err != nil {
		return nil, fmt.Errorf("decode merge patch: %w", err)
	}

	fields := make([]string, 0, len(delta))
	for name := range delta {
		// Bookkeeping columns change on every mutation; they are not
		// part of the edit itself.
		switch name {
		case "version", "updated_at", "updated_by":
			continue
		}
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields, nil
}

// Restore decodes a snapshot back into a person row.
func Restore(data []byte) (*models.Person, error) {
	var p models.Person
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &p, nil
}
