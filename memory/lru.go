package memory

// lruList is an intrusive doubly-linked list of textures. The head is the
// most recently used, the tail the least.
type lruList struct {
	head *TextureResource
	tail *TextureResource
	len  int
}

func (l *lruList) Len() int { return l.len }

// PushFront inserts t as the most recently used entry.
func (l *lruList) PushFront(t *TextureResource) {
	t.prev = nil
	t.next = l.head
	if l.head != nil {
		l.head.prev = t
	} else {
		l.tail = t
	}
	l.head = t
	l.len++
}

// MoveToFront marks t as the most recently used entry.
func (l *lruList) MoveToFront(t *TextureResource) {
	if t == l.head {
		return
	}
	l.unlink(t)
	l.PushFront(t)
}

// Remove takes t out of the list.
func (l *lruList) Remove(t *TextureResource) {
	l.unlink(t)
}

// Oldest returns the least recently used entry, or nil.
func (l *lruList) Oldest() *TextureResource { return l.tail }

// Each visits entries from least to most recently used. fn may not mutate
// the list.
func (l *lruList) Each(fn func(*TextureResource)) {
	for t := l.tail; t != nil; t = t.prev {
		fn(t)
	}
}

func (l *lruList) Clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}

func (l *lruList) unlink(t *TextureResource) {
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		l.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		l.tail = t.prev
	}
	t.prev = nil
	t.next = nil
	l.len--
}
