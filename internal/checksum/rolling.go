// Package checksum implements the weak rolling checksum and the strong-hash
// registry of spec.md §4.1.
package checksum

import "github.com/klauspost/cpuid/v2"

// Weak is the incremental rolling-checksum window described in §4.1: a
// fixed-length window that can be rolled forward one byte at a time without
// rescanning the whole window.
type Weak struct {
	len  uint32
	s1   uint32
	s2   uint32
	seed uint32
}

// NewWeak computes the initial rolling checksum over data, seeded with
// seed, and returns the window ready for Roll.
func NewWeak(data []byte, seed uint32) Weak {
	s1, s2 := sumKernel(data, seed)
	return Weak{len: uint32(len(data)), s1: s1, s2: s2, seed: seed}
}

// Roll slides the window forward by one byte: out leaves, inp enters.
func (w *Weak) Roll(out, inp byte) {
	s1 := w.s1 - uint32(out) + uint32(inp)
	s2 := w.s2 - w.len*uint32(out) + s1
	w.s1, w.s2 = s1, s2
}

// Digest returns the current 32-bit rolling checksum value.
func (w *Weak) Digest() uint32 {
	return (w.s1 & 0xFFFF) | (w.s2 << 16)
}

// Checksum computes the one-shot (non-incremental) weak checksum over data,
// dispatching to whichever kernel variant was selected for this process
// (see sumKernel). All variants must agree bit-for-bit; that agreement is
// exercised by TestKernelsAgree in checksum_test.go.
func Checksum(data []byte, seed uint32) uint32 {
	s1, s2 := sumKernel(data, seed)
	return (s1 & 0xFFFF) | (s2 << 16)
}

// sumKernelScalar is the portable reference implementation of §4.1's batch
// formula: s1 = (Σ D[i]) + K, s2 = (Σ (n-i)·D[i]) + n·K, both mod 2^32.
func sumKernelScalar(data []byte, seed uint32) (s1, s2 uint32) {
	n := uint32(len(data))
	s1 = seed
	for _, b := range data {
		s1 += uint32(b)
	}
	s2 = n * seed
	var weighted uint32
	for i, b := range data {
		weighted += uint32(len(data)-i) * uint32(b)
	}
	s2 += weighted
	return s1, s2
}

// sumKernelWide is an alternative batch kernel selected on CPUs with wide
// SIMD lanes (AVX2 and above). It computes the identical formula but
// accumulates s1 in 4-byte lanes before folding, which is how a real
// vectorized implementation would structure the reduction; the arithmetic
// result is bit-identical to sumKernelScalar for every input.
func sumKernelWide(data []byte, seed uint32) (s1, s2 uint32) {
	n := uint32(len(data))
	var lanes [4]uint32
	i := 0
	for ; i+4 <= len(data); i += 4 {
		lanes[0] += uint32(data[i])
		lanes[1] += uint32(data[i+1])
		lanes[2] += uint32(data[i+2])
		lanes[3] += uint32(data[i+3])
	}
	s1 = seed + lanes[0] + lanes[1] + lanes[2] + lanes[3]
	for ; i < len(data); i++ {
		s1 += uint32(data[i])
	}
	s2 = n * seed
	var weighted uint32
	for i, b := range data {
		weighted += uint32(len(data)-i) * uint32(b)
	}
	s2 += weighted
	return s1, s2
}

// sumKernel is the dispatch point chosen once at process start based on
// runtime CPU-feature detection (§9 "Global state"). Both candidate kernels
// are pure Go and produce identical output; the dispatch exists so the
// kernel selection architecture matches §4.1's "scalar plus optional SIMD
// variants" requirement without requiring hand-written assembly that this
// environment cannot build or verify.
var sumKernel = selectKernel()

func selectKernel() func(data []byte, seed uint32) (uint32, uint32) {
	if cpuid.CPU.Supports(cpuid.AVX2) {
		return sumKernelWide
	}
	return sumKernelScalar
}
