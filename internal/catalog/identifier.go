// Package catalog implements the table/namespace contract (spec §4.L) over
// a storage.Blob backend: namespace and table lifecycle operations, and an
// atomically-retried commitTable.
package catalog

import "strings"

// TableIdentifier names a table within a namespace.
type TableIdentifier struct {
	Namespace []string
	Name      string
}

// String renders id the conventional dotted way ("db.schema.table").
func (id TableIdentifier) String() string {
	if len(id.Namespace) == 0 {
		return id.Name
	}
	return strings.Join(id.Namespace, ".") + "." + id.Name
}

func namespaceKey(ns []string) string {
	return strings.Join(ns, ".")
}

func tablePrefix(ns []string, name string) string {
	return strings.Join(ns, "/") + "/" + name
}
