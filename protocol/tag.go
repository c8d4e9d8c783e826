package protocol

import "strconv"

// tagAllocator issues the command identifiers sent to the server: "A1",
// "A2" and so on. Each client owns its own counter.
type tagAllocator struct {
	counter uint64
}

func (a *tagAllocator) next() string {
	a.counter++
	return "A" + strconv.FormatUint(a.counter, 10)
}
