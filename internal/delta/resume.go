package delta

// FilterResume implements the resume/skip logic of §4.4 "Resume": ops from
// a freshly generated delta are adjusted so that the first skip bytes of
// destination output (already known-good from a partial previous transfer)
// are not re-written. Ops (Data or Copy) no longer than the remaining skip
// are dropped entirely; the op that straddles the skip boundary is truncated
// from its prefix, which for a Copy op also advances its basis Offset by the
// truncated amount; ops after the boundary pass through unchanged.
func FilterResume(ops []Op, skip int64) []Op {
	if skip <= 0 {
		return ops
	}
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		if skip <= 0 {
			out = append(out, op)
			continue
		}
		n := opLen(op)
		if n <= skip {
			skip -= n
			continue
		}
		out = append(out, truncatePrefix(op, skip))
		skip = 0
	}
	return out
}

func opLen(op Op) int64 {
	if op.IsCopy {
		return op.Len
	}
	return int64(len(op.Data))
}

func truncatePrefix(op Op, skip int64) Op {
	if op.IsCopy {
		return Op{IsCopy: true, Offset: op.Offset + skip, Len: op.Len - skip}
	}
	return Op{Data: op.Data[skip:]}
}
