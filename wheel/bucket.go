package wheel

// entry 时间轮中的一个定时器节点, 同时是所在bucket的链表节点
type entry struct {
	id         string
	seq        uint64 // 0表示已离开时间轮, token随之失效
	deadline   uint64 // 到期tick(绝对值)
	tier, slot int
	prev, next *entry
}

func (e *entry) linked() bool {
	return e.prev != nil && e.next != nil
}

// bucket 双向循环链表, 支持O(1)删除
type bucket struct {
	root *entry //哨兵
	len  int
}

func newBucket() *bucket {
	b := new(bucket)
	b.root = new(entry)
	b.root.prev = b.root
	b.root.next = b.root
	return b
}

func (b *bucket) pushBack(e *entry) {
	tail := b.root.prev
	tail.next = e
	e.prev = tail
	e.next = b.root
	b.root.prev = e
	b.len++
}

func (b *bucket) remove(e *entry) bool {
	if e == b.root || !e.linked() {
		return false
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
	b.len--
	return true
}

func (b *bucket) isEmpty() bool {
	return b.root.next == b.root
}

// popRange 按插入顺序逐个摘下节点, fn里可以把节点放入其他bucket
func (b *bucket) popRange(fn func(e *entry)) {
	for !b.isEmpty() {
		e := b.root.next
		b.remove(e)
		fn(e)
	}
}
