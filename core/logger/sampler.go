package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler passes the first n of every d events. A zero ratio passes everything.
type sampler struct {
	ratio   atomic.Uint64 // n<<32 | d
	counter atomic.Uint64
}

func newSampler(n, d int) *sampler {
	s := &sampler{}
	s.set(n, d)
	return s
}

func (s *sampler) set(n, d int) {
	if n <= 0 || d <= 0 {
		n, d = 0, 0
	}
	if n > d {
		n = d
	}
	s.ratio.Store(uint64(n)<<32 | uint64(uint32(d)))
	s.counter.Store(0)
}

func (s *sampler) allow() bool {
	r := s.ratio.Load()
	n, d := r>>32, r&0xffffffff
	if d == 0 {
		return true
	}
	return (s.counter.Add(1)-1)%d < n
}

// parseRatio reads "n/d" or "d" (meaning 1/d). Anything else, or a non-positive part, is 0/0.
func parseRatio(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	num, den, found := strings.Cut(spec, "/")
	if !found {
		num, den = "1", spec
	}
	n, err1 := strconv.Atoi(strings.TrimSpace(num))
	d, err2 := strconv.Atoi(strings.TrimSpace(den))
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return 0, 0
	}
	return n, d
}
