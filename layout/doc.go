// Package layout computes Canonical ABI sizes and alignments for WIT types.
//
// A foreign block must be allocated with the size and alignment of the value
// stored in it, and freed with the same pair. The rules follow the Component
// Model's Canonical ABI:
//
//	Type            Size    Alignment
//	──────────────────────────────────
//	bool, u8, s8    1       1
//	u16, s16        2       2
//	u32, s32, f32   4       4
//	char            4       4
//	u64, s64, f64   8       8
//	string, list    8       4 (ptr + len)
//	tuple           sum     max field align
//	option<T>       1+T     max(1, T align)
//
// Usage:
//
//	info := layout.Of(wit.U32{})
//	// info.Size == 4, info.Align == 4
package layout
