package game

import "blocknet/proto"

// IDAllocator 分配 NetworkID。0 保留为无效值，取值范围为 1..max。
// 已分配的 ID 在释放前不会再次分配；分配按轮转进行，刚释放的 ID 不会立刻被复用。
type IDAllocator struct {
	max  int
	used []bool // 下标即 ID
	next int
	n    int
}

func NewIDAllocator(max int) *IDAllocator {
	if max < 1 {
		max = 1
	}
	if max > 0xFFFF {
		max = 0xFFFF
	}
	return &IDAllocator{max: max, used: make([]bool, max+1), next: 1}
}

// Allocate 返回一个未使用的 ID；已满时返回 false
func (a *IDAllocator) Allocate() (proto.NetworkID, bool) {
	if a.n >= a.max {
		return proto.InvalidNetworkID, false
	}
	for i := 0; i < a.max; i++ {
		id := a.next
		a.next++
		if a.next > a.max {
			a.next = 1
		}
		if !a.used[id] {
			a.used[id] = true
			a.n++
			return proto.NetworkID(id), true
		}
	}
	return proto.InvalidNetworkID, false
}

// Release 归还 ID。未分配或越界的 ID 返回 false。
func (a *IDAllocator) Release(id proto.NetworkID) bool {
	i := int(id)
	if i < 1 || i > a.max || !a.used[i] {
		return false
	}
	a.used[i] = false
	a.n--
	return true
}

// InUse 当前已分配的数量
func (a *IDAllocator) InUse() int { return a.n }
