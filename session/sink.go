package session

// Block is one chunk of samples as delivered by a single capture callback.
type Block struct {
	Channels int
	Samples  []int16
}

// sink is the per-session audio buffer. It is not safe for concurrent use;
// the Controller serializes access under its mutex.
type sink struct {
	blocks []Block
	frames int
}

func (s *sink) reset() {
	s.blocks = nil
	s.frames = 0
}

func (s *sink) push(b Block) {
	if len(b.Samples) == 0 {
		return
	}
	s.blocks = append(s.blocks, b)
	ch := b.Channels
	if ch < 1 {
		ch = 1
	}
	s.frames += len(b.Samples) / ch
}

func (s *sink) len() int { return len(s.blocks) }

// drain returns every pushed sample in arrival order and empties the sink.
func (s *sink) drain() []int16 {
	n := 0
	for _, b := range s.blocks {
		n += len(b.Samples)
	}
	out := make([]int16, 0, n)
	for _, b := range s.blocks {
		out = append(out, b.Samples...)
	}
	s.reset()
	return out
}
