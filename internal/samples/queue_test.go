package samples

import (
	"testing"
	"time"

	"github.com/smazurov/sdinode/internal/frame"
	"github.com/smazurov/sdinode/internal/media"
)

func sampleAt(t time.Duration, released *[]time.Duration) *media.VideoSample {
	return media.NewVideoSample(frame.NewBuffer(1, 1, 4), media.SampleFormatCharBGRA, t, 0, func(*frame.Buffer) {
		*released = append(*released, t)
	})
}

func TestQueue_FIFO(t *testing.T) {
	var released []time.Duration
	q := NewQueue(3)
	for i := range 3 {
		q.AddVideo(sampleAt(time.Duration(i), &released))
	}

	for i := range 3 {
		s, ok := q.Pop()
		if !ok || s.Time != time.Duration(i) {
			t.Fatalf("Pop %d = %v, %v", i, s, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop on empty queue succeeded")
	}
	if len(released) != 0 {
		t.Errorf("released %v without eviction", released)
	}
}

func TestQueue_EvictsOldest(t *testing.T) {
	var released []time.Duration
	q := NewQueue(2)
	for i := range 5 {
		q.AddVideo(sampleAt(time.Duration(i), &released))
	}

	if q.Len() != 2 || q.Dropped() != 3 {
		t.Errorf("Len = %d Dropped = %d, want 2 and 3", q.Len(), q.Dropped())
	}
	want := []time.Duration{0, 1, 2}
	if len(released) != 3 || released[0] != want[0] || released[2] != want[2] {
		t.Errorf("released = %v, want %v", released, want)
	}

	got := q.Drain()
	if len(got) != 2 || got[0].Time != 3 || got[1].Time != 4 {
		t.Errorf("Drain returned wrong samples")
	}
}

func TestQueue_Flush(t *testing.T) {
	var released []time.Duration
	q := NewQueue(0)
	q.AddVideo(sampleAt(7, &released))
	q.AddVideo(sampleAt(8, &released))
	q.Flush()

	if q.Len() != 0 || len(released) != 2 {
		t.Errorf("Len = %d released = %v", q.Len(), released)
	}
}
