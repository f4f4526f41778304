package swift

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
)

// InventoryPath is where the file inventory is kept, relative to the scope.
const InventoryPath = ".files.json"

// Inventory is the persisted list of remote paths in a scope. It lets a
// listing be rebuilt without a recursive scan. Every mutation is written
// back immediately.
type Inventory struct {
	client *Client

	mu    sync.Mutex
	paths []string
}

// LoadInventory reads the inventory of c's scope. A missing inventory is empty.
func LoadInventory(ctx context.Context, c *Client) (*Inventory, error) {
	inv := &Inventory{client: c}

	data, err := c.Get(ctx, InventoryPath)
	switch {
	case IsNotFound(err):
		return inv, nil
	case err != nil:
		return nil, err
	}

	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("swift: decode %s: %w", InventoryPath, err)
	}
	for _, p := range paths {
		inv.insert(p)
	}
	return inv, nil
}

// Paths returns the inventory in sorted order.
func (inv *Inventory) Paths() []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return slices.Clone(inv.paths)
}

// Contains reports whether p is listed.
func (inv *Inventory) Contains(p string) bool {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	_, ok := slices.BinarySearch(inv.paths, pathx.Normalize(p))
	return ok
}

// Add lists paths and saves the inventory.
func (inv *Inventory) Add(ctx context.Context, paths ...string) error {
	inv.mu.Lock()
	for _, p := range paths {
		inv.insert(p)
	}
	inv.mu.Unlock()
	return inv.Save(ctx)
}

// Remove unlists paths and saves the inventory.
func (inv *Inventory) Remove(ctx context.Context, paths ...string) error {
	inv.mu.Lock()
	for _, p := range paths {
		if i, ok := slices.BinarySearch(inv.paths, pathx.Normalize(p)); ok {
			inv.paths = slices.Delete(inv.paths, i, i+1)
		}
	}
	inv.mu.Unlock()
	return inv.Save(ctx)
}

// Replace sets the inventory to exactly paths and saves it.
func (inv *Inventory) Replace(ctx context.Context, paths []string) error {
	inv.mu.Lock()
	inv.paths = nil
	for _, p := range paths {
		inv.insert(p)
	}
	inv.mu.Unlock()
	return inv.Save(ctx)
}

// Save writes the inventory to storage.
func (inv *Inventory) Save(ctx context.Context) error {
	paths := inv.Paths()
	if paths == nil {
		paths = []string{}
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	return inv.client.Upload(ctx, InventoryPath, bytes.NewReader(data), int64(len(data)),
		UploadOptions{ContentType: "application/json"}, nil)
}

// insert adds p keeping paths sorted and unique. Callers hold mu.
func (inv *Inventory) insert(p string) {
	p = pathx.Normalize(p)
	if p == "" || p == InventoryPath {
		return
	}
	i, ok := slices.BinarySearch(inv.paths, p)
	if !ok {
		inv.paths = slices.Insert(inv.paths, i, p)
	}
}
