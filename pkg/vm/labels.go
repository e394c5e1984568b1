package vm

// ResolveLabels scans every offset below progLen for LABEL definitions and
// maps each key to the address just after it. The first definition of a
// key wins. Offsets are inspected one at a time, so a LABEL pattern
// embedded inside another instruction's operand is also recorded, and
// definitions whose key runs off the end of src are ignored.
func ResolveLabels(src SymbolSource, progLen int) map[Label]int {
	labels := make(map[Label]int)
	for ip := 0; ip < progLen; ip++ {
		inst := Identify(src, ip)
		if inst == nil || inst.Op != OpLabel {
			continue
		}
		at := ip + len(inst.Pattern)
		key, n, err := DecodeLabel(src, at)
		if err != nil {
			continue
		}
		if _, ok := labels[key]; !ok {
			labels[key] = at + n
		}
	}
	return labels
}
