package bsp

import "math"

// Node is a packed 64-bit BSP node, per spec.md §4.5: the low 32 bits
// hold either a float32 splitter position (interior) or a leaf-list
// index (leaf); the high 32 bits hold a 2-bit kind field (an Axis
// value, or 3 for a leaf) and, for interior nodes, a 30-bit
// right-child index packed above it. Interior nodes are always
// stored with their left child immediately following them in a
// Tree's Nodes slice, so only the right child's index needs storing.
type Node uint64

const leafKind = 3

func makeInterior(axis Axis, splitPos float32, rightChild int) Node {
	lo := uint64(math.Float32bits(splitPos))
	hi := uint64(rightChild)<<2 | uint64(axis)
	return Node(hi<<32 | lo)
}

func makeLeaf(leafIndex int) Node {
	lo := uint64(uint32(leafIndex))
	hi := uint64(leafKind)
	return Node(hi<<32 | lo)
}

// IsLeaf reports whether n is a leaf node.
func (n Node) IsLeaf() bool { return (uint64(n)>>32)&0x3 == leafKind }

// Axis returns an interior node's split axis.
func (n Node) Axis() Axis { return Axis((uint64(n) >> 32) & 0x3) }

// SplitPos returns an interior node's split-plane position.
func (n Node) SplitPos() float32 { return math.Float32frombits(uint32(n)) }

// RightChild returns an interior node's right-child index.
func (n Node) RightChild() int { return int((uint64(n) >> 32) >> 2) }

// LeafIndex returns a leaf node's index into Tree.Leaves.
func (n Node) LeafIndex() int { return int(uint32(n)) }
