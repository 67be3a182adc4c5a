package shm

// slot is a region of a MultiPool reserved for one key.
type slot[K comparable] struct {
	key    K
	offset int
	// size is the reserved length, used the length of the current buffer.
	size   int
	used   int
	buffer *Buffer

	// removed slots keep their range until the compositor releases them.
	removed bool
}

func (s *slot[K]) free() bool {
	return s.buffer == nil || s.buffer.Released()
}

func (s *slot[K]) dropBuffer() {
	if s.buffer != nil {
		_ = s.buffer.Destroy()
		s.buffer = nil
	}
}

// MultiPool hands out buffers reused by key. A key maps to at most one live
// buffer; slots are laid out in insertion order and padded to 64 bytes.
type MultiPool[K comparable] struct {
	pool  *RawPool
	slots []*slot[K]
}

// NewMultiPool creates a keyed pool of initial bytes.
func NewMultiPool[K comparable](s *Shm, initial int) (*MultiPool[K], error) {
	pool, err := s.NewRawPool(initial)
	if err != nil {
		return nil, err
	}
	return &MultiPool[K]{pool: pool}, nil
}

// Len returns the pool length in bytes.
func (m *MultiPool[K]) Len() int {
	return m.pool.Len()
}

// Resize grows the underlying pool.
func (m *MultiPool[K]) Resize(size int) error {
	return m.pool.Resize(size)
}

// find returns the index of the live slot for key, or -1.
func (m *MultiPool[K]) find(key K) int {
	for i, s := range m.slots {
		if s.key == key && !s.removed {
			return i
		}
	}
	return -1
}

// Remove forgets key. A buffer still held by the compositor keeps its range
// reserved until it is released, then it is destroyed.
func (m *MultiPool[K]) Remove(key K) error {
	i := m.find(key)
	if i < 0 {
		return ErrNotFound
	}
	s := m.slots[i]
	if s.buffer != nil && !s.buffer.Released() {
		s.removed = true
		s.buffer.OnRelease(func() { m.reclaim(s) })
		return nil
	}
	m.slots = append(m.slots[:i], m.slots[i+1:]...)
	s.dropBuffer()
	return nil
}

// reclaim drops a removed slot once its buffer came back.
func (m *MultiPool[K]) reclaim(s *slot[K]) {
	for i, other := range m.slots {
		if other == s {
			m.slots = append(m.slots[:i], m.slots[i+1:]...)
			break
		}
	}
	s.dropBuffer()
}

// Insert reserves a slot for key and returns its offset. An existing slot
// for key is reused, growing in place when it is free; released slots
// after a grown one are shifted. If a buffer the compositor holds would
// have to move, the call fails with ErrInUse and nothing changes.
func (m *MultiPool[K]) Insert(key K, width, stride, height int, format uint32) (int, error) {
	i, err := m.insert(key, width, stride, height, format)
	if err != nil {
		return 0, err
	}
	return m.slots[i].offset, nil
}

func (m *MultiPool[K]) insert(key K, width, stride, height int, format uint32) (int, error) {
	size := stride * height
	index := m.find(key)
	if index < 0 {
		end := 0
		if n := len(m.slots); n > 0 {
			last := m.slots[n-1]
			end = last.offset + align64(last.size)
		}
		return m.appendSlot(end, key, width, stride, height, format)
	}

	s := m.slots[index]
	if !s.free() {
		return -1, ErrInUse
	}
	// grow with 5% headroom
	grown := max(s.size, size+size/20)

	// every slot the grown one runs into moves, so all of them must be free
	shifted := 0
	offset := s.offset + align64(grown)
	for _, next := range m.slots[index+1:] {
		if offset <= next.offset {
			break
		}
		if !next.free() {
			return -1, ErrInUse
		}
		shifted++
		offset += align64(next.size)
	}

	if s.buffer != nil && (size != s.used || !s.buffer.sameGeometry(width, height, stride, format)) {
		s.dropBuffer()
	}
	s.size = grown
	offset = s.offset + align64(grown)
	for _, next := range m.slots[index+1 : index+1+shifted] {
		next.dropBuffer()
		next.offset = offset
		offset += align64(next.size)
	}
	return index, nil
}

func (m *MultiPool[K]) appendSlot(end int, key K, width, stride, height int, format uint32) (int, error) {
	offset := align64(end + end/20)
	size := stride * height
	if m.pool.Len() < offset+size {
		if err := m.pool.Resize(offset + size + size/20); err != nil {
			return -1, err
		}
	}

	buf, err := m.pool.CreateBuffer(offset, width, height, stride, format)
	if err != nil {
		return -1, err
	}
	m.slots = append(m.slots, &slot[K]{
		key:    key,
		offset: offset,
		size:   size,
		used:   size,
		buffer: buf,
	})
	return len(m.slots) - 1, nil
}

// Get returns the buffer of an existing key, creating the wire buffer when
// the slot has none, and marks it busy.
func (m *MultiPool[K]) Get(key K, width, stride, height int, format uint32) (int, *Buffer, []byte, error) {
	i := m.find(key)
	if i < 0 {
		return 0, nil, nil, ErrNotFound
	}
	if !m.slots[i].free() {
		return 0, nil, nil, ErrInUse
	}
	return m.getAt(i, width, stride, height, format)
}

// CreateBuffer inserts key and returns its offset, buffer and memory. The
// buffer is marked busy.
func (m *MultiPool[K]) CreateBuffer(key K, width, stride, height int, format uint32) (int, *Buffer, []byte, error) {
	i, err := m.insert(key, width, stride, height, format)
	if err != nil {
		return 0, nil, nil, err
	}
	return m.getAt(i, width, stride, height, format)
}

func (m *MultiPool[K]) getAt(i, width, stride, height int, format uint32) (int, *Buffer, []byte, error) {
	s := m.slots[i]
	size := stride * height
	if size > s.size {
		return 0, nil, nil, ErrOverlap
	}

	if s.buffer != nil && !s.buffer.sameGeometry(width, height, stride, format) {
		s.dropBuffer()
	}
	if s.buffer == nil {
		if s.offset+size > m.pool.Len() {
			if err := m.pool.Resize(s.offset + size + size/20); err != nil {
				return 0, nil, nil, ErrOverlap
			}
		}
		buf, err := m.pool.CreateBuffer(s.offset, width, height, stride, format)
		if err != nil {
			return 0, nil, nil, err
		}
		s.buffer = buf
	}
	s.used = size
	s.buffer.MarkBusy()
	return s.offset, s.buffer, m.pool.Mmap()[s.offset : s.offset+size], nil
}

// Keys returns the keys in slot order.
func (m *MultiPool[K]) Keys() []K {
	keys := make([]K, 0, len(m.slots))
	for _, s := range m.slots {
		if !s.removed {
			keys = append(keys, s.key)
		}
	}
	return keys
}

// Close destroys every buffer and the pool.
func (m *MultiPool[K]) Close() error {
	for _, s := range m.slots {
		s.dropBuffer()
	}
	m.slots = nil
	return m.pool.Close()
}

func align64(n int) int {
	return (n + 63) &^ 63
}
