package registry

import (
	"github.com/zeusync/scenewalk/internal/core/memory"
	"github.com/zeusync/scenewalk/internal/core/observability/log"
)

// listStop records why a list walk ended.
type listStop uint8

const (
	stopTail listStop = iota
	stopNull
	stopLoop
	stopReadFailed
	stopCap
)

func (s listStop) String() string {
	switch s {
	case stopTail:
		return "tail"
	case stopNull:
		return "null"
	case stopLoop:
		return "loop"
	case stopReadFailed:
		return "read_failed"
	default:
		return "cap"
	}
}

// walkList walks an intrusive list starting at head and emits every non-null
// payload. The tail sentinel is read once from the head's sibling slot. Each
// stop condition is checked before advancing: tail reached, null next, next
// looping back to head or to any visited node. The walk never exceeds
// Limits.MaxListNodes nodes.
func (w *Walker) walkList(head memory.Address, emit func(payload memory.Address)) (int, listStop) {
	lay := w.layout.List
	limit := w.layout.Limits.MaxListNodes

	tail, err := memory.ReadPointer(w.mem, head.Add(lay.Prev))
	if err != nil {
		tail = 0
	}

	visited := make(map[memory.Address]struct{})
	node := head
	for i := 0; i < limit; i++ {
		visited[node] = struct{}{}

		payload, err := memory.ReadPointer(w.mem, node.Add(lay.Payload))
		if err != nil {
			w.log.Debug("list walk stopped on payload read",
				log.Hex("node", uint64(node)), log.Int("visited", i), log.Error(err))
			return i, stopReadFailed
		}
		if !payload.IsNull() {
			emit(payload)
		}

		if node == tail {
			return i + 1, stopTail
		}
		next, err := memory.ReadPointer(w.mem, node.Add(lay.Next))
		if err != nil {
			w.log.Debug("list walk stopped on next read",
				log.Hex("node", uint64(node)), log.Int("visited", i+1), log.Error(err))
			return i + 1, stopReadFailed
		}
		if next.IsNull() {
			return i + 1, stopNull
		}
		if next == head {
			return i + 1, stopLoop
		}
		if _, seen := visited[next]; seen {
			w.log.Debug("list walk stopped on cycle",
				log.Hex("node", uint64(node)), log.Hex("next", uint64(next)), log.Int("visited", i+1))
			return i + 1, stopLoop
		}
		node = next
	}

	w.log.Warn("list walk hit node cap", log.Hex("head", uint64(head)), log.Int("cap", limit))
	return limit, stopCap
}
