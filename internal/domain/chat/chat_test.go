package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDirectKeyIsOrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	if DirectKeyFor(a, b) != DirectKeyFor(b, a) {
		t.Fatalf("direct key depends on argument order")
	}
	if DirectKeyFor(a, b) == DirectKeyFor(a, uuid.New()) {
		t.Fatalf("distinct pairs share a key")
	}
}

func TestDisplayName(t *testing.T) {
	viewer := uuid.New()
	ids := []uuid.UUID{viewer}
	names := map[uuid.UUID]string{viewer: "me"}
	for _, n := range []string{"ann", "bob", "cat", "dan", "eve"} {
		id := uuid.New()
		ids = append(ids, id)
		names[id] = n
	}

	direct := &Chat{}
	if got := DisplayName(direct, viewer, ids[:2], names); got != "ann" {
		t.Fatalf("direct: got=%q", got)
	}
	named := &Chat{IsGroupChat: true, Name: "Climbers"}
	if got := DisplayName(named, viewer, ids, names); got != "Climbers" {
		t.Fatalf("named group: got=%q", got)
	}
	small := &Chat{IsGroupChat: true}
	if got := DisplayName(small, viewer, ids[:4], names); got != "ann, bob, cat" {
		t.Fatalf("small group: got=%q", got)
	}
	if got := DisplayName(small, viewer, ids, names); got != "ann, bob, cat and 2 others" {
		t.Fatalf("large group: got=%q", got)
	}
	if got := DisplayName(small, viewer, ids[:1], names); got != DefaultGroupName {
		t.Fatalf("empty group: got=%q", got)
	}
}

func TestNormalizeContent(t *testing.T) {
	got, err := NormalizeContent("  hi  ", MessageTypeText, false)
	if err != nil || got != "hi" {
		t.Fatalf("trim: got=%q err=%v", got, err)
	}
	if _, err := NormalizeContent("   ", MessageTypeText, false); err != ErrEmptyContent {
		t.Fatalf("empty: want ErrEmptyContent got=%v", err)
	}
	got, err = NormalizeContent("", MessageTypeImage, true)
	if err != nil || got != "Sent a image" {
		t.Fatalf("attachment: got=%q err=%v", got, err)
	}
	if _, err := NormalizeContent(strings.Repeat("x", MaxContentLength+1), MessageTypeText, false); err != ErrContentTooLong {
		t.Fatalf("too long: got=%v", err)
	}
	if _, err := NormalizeContent(strings.Repeat("é", MaxContentLength), MessageTypeText, false); err != nil {
		t.Fatalf("rune bound: %v", err)
	}
}

func TestStatusAdvanceIsMonotonic(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	st := &MessageStatus{Status: StatusSent, CreatedAt: t0}

	if !st.Advance(StatusRead, t0.Add(time.Minute)) {
		t.Fatalf("sent -> read should advance")
	}
	if st.DeliveredAt == nil || !st.DeliveredAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("read should backfill delivered_at, got=%v", st.DeliveredAt)
	}
	if st.Advance(StatusDelivered, t0.Add(2*time.Minute)) {
		t.Fatalf("read -> delivered must not regress")
	}
	if st.Advance(StatusRead, t0.Add(3*time.Minute)) {
		t.Fatalf("second read must be a no-op")
	}
	if !st.ReadAt.Equal(t0.Add(time.Minute)) {
		t.Fatalf("read_at rewritten: %v", st.ReadAt)
	}
	if ts := st.Timestamp(); ts == nil || !ts.Equal(*st.ReadAt) {
		t.Fatalf("timestamp should be read_at")
	}
}

func TestStatusDeliveredThenRead(t *testing.T) {
	t0 := time.Now().UTC()
	st := &MessageStatus{Status: StatusSent}
	st.Advance(StatusDelivered, t0)
	st.Advance(StatusRead, t0.Add(time.Second))
	if !st.DeliveredAt.Equal(t0) {
		t.Fatalf("delivered_at should keep first write")
	}
	if st.Status != StatusRead {
		t.Fatalf("want read got=%s", st.Status)
	}
}
