package ply

import (
	"encoding/binary"
	"math"
)

// Record sizes in bytes. Both layouts are packed with no inter-field padding.
const (
	PointSize          = 8*4 + 4 + 1 + 1 + 4
	CorrectedPointSize = 8*7 + 4 + 1 + 1 + 4
)

var le = binary.LittleEndian

// Point is one raw sensor measurement as stored in the input file.
//
// Wire layout (little-endian):
//
//	time f64 | x f64 | y f64 | z f64 | intensity f32 | ring u8 | return_num u8 | range f32
type Point struct {
	Time      float64
	X, Y, Z   float64
	Intensity float32
	Ring      uint8
	ReturnNum uint8
	Range     float32
}

// CorrectedPoint is one output record.
//
// Wire layout (little-endian):
//
//	x f64 | y f64 | z f64 | time f64 | nx f64 | ny f64 | nz f64 |
//	intensity f32 | ring u8 | return_num u8 | range f32
type CorrectedPoint struct {
	X, Y, Z    float64
	Time       float64
	NX, NY, NZ float64
	Intensity  float32
	Ring       uint8
	ReturnNum  uint8
	Range      float32
}

// AppendPoint appends the encoded form of p to dst.
func AppendPoint(dst []byte, p Point) []byte {
	dst = le.AppendUint64(dst, math.Float64bits(p.Time))
	dst = le.AppendUint64(dst, math.Float64bits(p.X))
	dst = le.AppendUint64(dst, math.Float64bits(p.Y))
	dst = le.AppendUint64(dst, math.Float64bits(p.Z))
	dst = le.AppendUint32(dst, math.Float32bits(p.Intensity))
	dst = append(dst, p.Ring, p.ReturnNum)
	dst = le.AppendUint32(dst, math.Float32bits(p.Range))
	return dst
}

// DecodePoint decodes a Point from the first PointSize bytes of b.
// It panics if b is shorter than PointSize.
func DecodePoint(b []byte) Point {
	_ = b[PointSize-1]
	return Point{
		Time:      math.Float64frombits(le.Uint64(b[0:])),
		X:         math.Float64frombits(le.Uint64(b[8:])),
		Y:         math.Float64frombits(le.Uint64(b[16:])),
		Z:         math.Float64frombits(le.Uint64(b[24:])),
		Intensity: math.Float32frombits(le.Uint32(b[32:])),
		Ring:      b[36],
		ReturnNum: b[37],
		Range:     math.Float32frombits(le.Uint32(b[38:])),
	}
}

// AppendCorrectedPoint appends the encoded form of cp to dst.
func AppendCorrectedPoint(dst []byte, cp CorrectedPoint) []byte {
	dst = le.AppendUint64(dst, math.Float64bits(cp.X))
	dst = le.AppendUint64(dst, math.Float64bits(cp.Y))
	dst = le.AppendUint64(dst, math.Float64bits(cp.Z))
	dst = le.AppendUint64(dst, math.Float64bits(cp.Time))
	dst = le.AppendUint64(dst, math.Float64bits(cp.NX))
	dst = le.AppendUint64(dst, math.Float64bits(cp.NY))
	dst = le.AppendUint64(dst, math.Float64bits(cp.NZ))
	dst = le.AppendUint32(dst, math.Float32bits(cp.Intensity))
	dst = append(dst, cp.Ring, cp.ReturnNum)
	dst = le.AppendUint32(dst, math.Float32bits(cp.Range))
	return dst
}

// DecodeCorrectedPoint decodes a CorrectedPoint from the first
// CorrectedPointSize bytes of b. It panics if b is too short.
func DecodeCorrectedPoint(b []byte) CorrectedPoint {
	_ = b[CorrectedPointSize-1]
	return CorrectedPoint{
		X:         math.Float64frombits(le.Uint64(b[0:])),
		Y:         math.Float64frombits(le.Uint64(b[8:])),
		Z:         math.Float64frombits(le.Uint64(b[16:])),
		Time:      math.Float64frombits(le.Uint64(b[24:])),
		NX:        math.Float64frombits(le.Uint64(b[32:])),
		NY:        math.Float64frombits(le.Uint64(b[40:])),
		NZ:        math.Float64frombits(le.Uint64(b[48:])),
		Intensity: math.Float32frombits(le.Uint32(b[56:])),
		Ring:      b[60],
		ReturnNum: b[61],
		Range:     math.Float32frombits(le.Uint32(b[62:])),
	}
}

// Passthrough returns the corrected record for p with its raw position and a
// zero correction vector.
func (p Point) Passthrough() CorrectedPoint {
	return CorrectedPoint{
		X:         p.X,
		Y:         p.Y,
		Z:         p.Z,
		Time:      p.Time,
		Intensity: p.Intensity,
		Ring:      p.Ring,
		ReturnNum: p.ReturnNum,
		Range:     p.Range,
	}
}
