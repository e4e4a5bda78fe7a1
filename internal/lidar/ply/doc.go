// Package ply reads and writes the binary little-endian PLY point files
// produced by mobile LiDAR mapping runs.
//
// Input files carry an ASCII header followed by fixed-size 42-byte vertex
// records (see Point). Corrected output is a stream of fixed-size 66-byte
// records (see CorrectedPoint), optionally preceded by a PLY header and
// optionally compressed.
//
// Records are encoded and decoded field by field in little-endian order
// with no padding; struct memory layout is never relied upon.
package ply
