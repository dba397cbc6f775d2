package dispatch

import (
	"container/heap"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

func TestEntryHeap_OrdersByExecuteAtThenSequence(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := &entryHeap{}
	heap.Init(h)

	heapPush(h, &Entry{Event: domain.DonationEvent{ID: "late"}, ExecuteAt: base.Add(time.Second), seq: 0})
	heapPush(h, &Entry{Event: domain.DonationEvent{ID: "tie-b"}, ExecuteAt: base, seq: 2})
	heapPush(h, &Entry{Event: domain.DonationEvent{ID: "tie-a"}, ExecuteAt: base, seq: 1})
	heapPush(h, &Entry{Event: domain.DonationEvent{ID: "early"}, ExecuteAt: base.Add(-time.Second), seq: 3})

	var got []string
	for h.Len() > 0 {
		got = append(got, heapRemoveAt(h, 0).Event.ID)
	}
	assert.Equal(t, []string{"early", "tie-a", "tie-b", "late"}, got)
}

func TestEntryHeap_EarliestDeadline(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := &entryHeap{}
	assert.Equal(t, -1, h.earliestDeadline())

	heapPush(h, &Entry{Event: domain.DonationEvent{ID: "a"}, ExecuteAt: base, Deadline: base.Add(10 * time.Second), seq: 0})
	heapPush(h, &Entry{Event: domain.DonationEvent{ID: "b"}, ExecuteAt: base.Add(time.Second), Deadline: base.Add(2 * time.Second), seq: 1})

	idx := h.earliestDeadline()
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "b", (*h)[idx].Event.ID)
}
