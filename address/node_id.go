package address

import (
	"fmt"
	"strings"
)

// IDKind tells whether a NodeID carries a numeric or a string identifier.
type IDKind uint8

const (
	NumericID IDKind = iota
	StringID
)

// NodeID is a remote node handle: a namespace index plus a numeric or string identifier.
type NodeID struct {
	Namespace uint16
	Kind      IDKind
	Numeric   uint32
	Name      string
}

// ObjectsFolder is the standard starting node of browse paths.
var ObjectsFolder = NewNumericNodeID(0, 85)

// HierarchicalReferences is the reference type followed by browse path elements.
var HierarchicalReferences = NewNumericNodeID(0, 33)

func NewNumericNodeID(ns uint16, id uint32) NodeID {
	return NodeID{Namespace: ns, Kind: NumericID, Numeric: id}
}

func NewStringNodeID(ns uint16, id string) NodeID {
	return NodeID{Namespace: ns, Kind: StringID, Name: id}
}

// IsNull reports whether n is the null node id (ns=0;i=0), used for unresolved items.
func (n NodeID) IsNull() bool {
	return n.Namespace == 0 && n.Kind == NumericID && n.Numeric == 0
}

func (n NodeID) String() string {
	if n.Kind == StringID {
		return fmt.Sprintf("ns=%d;s=%s", n.Namespace, n.Name)
	}

	return fmt.Sprintf("ns=%d;i=%d", n.Namespace, n.Numeric)
}

// QualifiedName is a namespace qualified browse name.
type QualifiedName struct {
	Namespace uint16
	Name      string
}

func (q QualifiedName) String() string {
	return fmt.Sprintf("%d:%s", q.Namespace, q.Name)
}

// BrowsePath is a path of browse names starting at Start and following hierarchical
// references, subtypes included.
type BrowsePath struct {
	Start    NodeID
	Elements []QualifiedName
}

func (p BrowsePath) String() string {
	parts := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		parts[i] = e.String()
	}

	return strings.Join(parts, "/")
}
