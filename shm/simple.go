package shm

// SimplePool holds a single buffer at offset 0, recreated whenever the
// requested geometry changes.
type SimplePool struct {
	pool   *RawPool
	buffer *Buffer
}

// NewSimplePool creates a single-buffer pool of initial bytes.
func NewSimplePool(s *Shm, initial int) (*SimplePool, error) {
	pool, err := s.NewRawPool(initial)
	if err != nil {
		return nil, err
	}
	return &SimplePool{pool: pool}, nil
}

// Busy reports whether the compositor still holds the buffer.
func (p *SimplePool) Busy() bool {
	return p.buffer != nil && !p.buffer.Released()
}

// Len returns the pool length in bytes.
func (p *SimplePool) Len() int {
	return p.pool.Len()
}

// Buffer returns a buffer of the requested geometry and its memory.
func (p *SimplePool) Buffer(width, height, stride int, format uint32) (*Buffer, []byte, error) {
	if p.Busy() {
		return nil, nil, ErrInUse
	}

	size := stride * height
	if p.buffer != nil && !p.buffer.sameGeometry(width, height, stride, format) {
		_ = p.buffer.Destroy()
		p.buffer = nil
	}
	if err := p.pool.Resize(size); err != nil {
		return nil, nil, err
	}
	if p.buffer == nil {
		buf, err := p.pool.CreateBuffer(0, width, height, stride, format)
		if err != nil {
			return nil, nil, err
		}
		p.buffer = buf
	}
	return p.buffer, p.pool.Mmap()[:size], nil
}

// Close destroys the buffer and the pool.
func (p *SimplePool) Close() error {
	if p.buffer != nil {
		_ = p.buffer.Destroy()
		p.buffer = nil
	}
	return p.pool.Close()
}
