package capture

import (
	"sync/atomic"

	"github.com/smazurov/sdinode/internal/frame"
)

const (
	slotMask  = 0x3
	freshFlag = 0x4
)

// latestFrame is a single-producer single-consumer latest-value cell built
// as a triple buffer. The producer owns bufs[back], the consumer owns
// bufs[front], and the third slot is exchanged through an atomic word that
// also carries a fresh flag. Neither side ever waits for the other and a
// slot is never shared while being written.
type latestFrame struct {
	bufs   [3]frame.Buffer
	back   int // producer only
	front  int // consumer only
	middle atomic.Uint32
}

func newLatestFrame() *latestFrame {
	l := &latestFrame{back: 0, front: 1}
	l.middle.Store(2)
	return l
}

// publish copies pixels into the producer slot and makes it the latest
// frame. It reports whether an unconsumed frame was overwritten.
func (l *latestFrame) publish(pixels []byte, width, height, rowBytes int) (dropped bool) {
	l.bufs[l.back].Fill(pixels, width, height, rowBytes)
	prev := l.middle.Swap(uint32(l.back) | freshFlag)
	l.back = int(prev & slotMask)
	return prev&freshFlag != 0
}

// take copies the latest frame into out if one arrived since the previous
// take.
func (l *latestFrame) take(out *frame.Buffer) bool {
	if l.middle.Load()&freshFlag == 0 {
		return false
	}
	prev := l.middle.Swap(uint32(l.front))
	l.front = int(prev & slotMask)
	if prev&freshFlag == 0 {
		return false
	}
	out.CopyFrom(&l.bufs[l.front])
	return true
}

// discard drops any unconsumed frame. Only called while the producer is
// stopped.
func (l *latestFrame) discard() {
	for {
		s := l.middle.Load()
		if s&freshFlag == 0 || l.middle.CompareAndSwap(s, s&^freshFlag) {
			return
		}
	}
}
