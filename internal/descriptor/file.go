package descriptor

import (
	"fmt"

	"github.com/opmodel/lmctl/internal/tree"
)

// Load reads and parses the descriptor at rel within t.
func Load(t *tree.Tree, rel string) (*Descriptor, error) {
	data, err := t.ReadFile(rel)
	if err != nil {
		return nil, err
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Path(rel), err)
	}
	return d, nil
}

// Save writes d to rel within t.
func Save(t *tree.Tree, rel string, d *Descriptor) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	return t.WriteFile(rel, data)
}
