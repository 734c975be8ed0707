package catalog

import (
	"context"
	"fmt"
	"strings"
)

// namespaceEntry is the persisted record for one namespace.
type namespaceEntry struct {
	Properties map[string]string `json:"properties"`
}

// CreateNamespace registers ns with the given properties.
func (c *Catalog) CreateNamespace(ctx context.Context, ns []string, props map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := namespaceKey(ns)
	if _, ok := c.namespaces[key]; ok {
		return ErrNamespaceAlreadyExists
	}
	if props == nil {
		props = map[string]string{}
	}
	c.namespaces[key] = &namespaceEntry{Properties: props}
	if err := c.saveNamespaces(ctx); err != nil {
		delete(c.namespaces, key)
		return err
	}
	return nil
}

// ListNamespaces returns the direct children of parent (or the top-level
// namespaces, if parent is nil/empty). Order is stable within a call but
// not otherwise guaranteed.
func (c *Catalog) ListNamespaces(parent []string) [][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out [][]string
	for key := range c.namespaces {
		parts := splitNamespaceKey(key)
		if len(parts) != len(parent)+1 {
			continue
		}
		if !hasPrefix(parts, parent) {
			continue
		}
		out = append(out, parts)
	}
	return out
}

// DropNamespace removes ns, failing if it still contains tables or child
// namespaces.
func (c *Catalog) DropNamespace(ctx context.Context, ns []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := namespaceKey(ns)
	if _, ok := c.namespaces[key]; !ok {
		return ErrNamespaceNotFound
	}

	for otherKey := range c.namespaces {
		if otherKey == key {
			continue
		}
		other := splitNamespaceKey(otherKey)
		if len(other) > len(ns) && hasPrefix(other, ns) {
			return ErrNamespaceNotEmpty
		}
	}

	tables, err := c.listTableNamesOnStorage(ctx, ns)
	if err != nil {
		return fmt.Errorf("checking namespace %q for tables: %w", key, err)
	}
	if len(tables) > 0 {
		return ErrNamespaceNotEmpty
	}

	saved := c.namespaces[key]
	delete(c.namespaces, key)
	if err := c.saveNamespaces(ctx); err != nil {
		c.namespaces[key] = saved
		return err
	}
	return nil
}

// GetNamespaceProperties returns ns's properties.
func (c *Catalog) GetNamespaceProperties(ns []string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.namespaces[namespaceKey(ns)]
	if !ok {
		return nil, ErrNamespaceNotFound
	}
	out := make(map[string]string, len(entry.Properties))
	for k, v := range entry.Properties {
		out[k] = v
	}
	return out, nil
}

// SetNamespaceProperties merges updates into ns's properties.
func (c *Catalog) SetNamespaceProperties(ctx context.Context, ns []string, updates map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.namespaces[namespaceKey(ns)]
	if !ok {
		return ErrNamespaceNotFound
	}
	previous := make(map[string]string, len(entry.Properties))
	for k, v := range entry.Properties {
		previous[k] = v
	}
	for k, v := range updates {
		entry.Properties[k] = v
	}
	if err := c.saveNamespaces(ctx); err != nil {
		entry.Properties = previous
		return err
	}
	return nil
}

func splitNamespaceKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, ".")
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i, p := range prefix {
		if parts[i] != p {
			return false
		}
	}
	return true
}
