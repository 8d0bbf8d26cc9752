package server

import "sync"

// queue 无界队列：网络协程写入永不因游戏循环消费慢而阻塞。
// push 返回后，元素对下一次 tryRecv 立即可见。
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{}
}

// push 在 close 之后调用时元素被丢弃
func (q *queue[T]) push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, v)
}

// close 所有写入方结束后调用；已排队的元素仍可被取出
func (q *queue[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}

// tryRecv 非阻塞：每次最多取出一个
func (q *queue[T]) tryRecv() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// 释放底层数组
		q.items = nil
	}
	return v, true
}
