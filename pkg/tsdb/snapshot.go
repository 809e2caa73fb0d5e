package tsdb

import (
	"container/list"
	"encoding/json"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/grafana/tsdb/pkg/timebase"
)

// RewoundSnapshot is the diagnostic metadata recorded for a trace that was
// renamed aside by the rewind-backup policy: its kind, observation count
// and span at the moment of rewind. It is kept in process memory only,
// zstd-compressed, and never written to disk — a rewound trace's full data
// is still reachable under its backup name, this is purely a
// cheap-to-inspect fingerprint.
type RewoundSnapshot struct {
	Kind  TrackKind
	Count int64
	Span  timebase.Span
}

type snapshotPayload struct {
	Kind  TrackKind      `json:"kind"`
	Count int64          `json:"count"`
	Span  timebase.Span  `json:"span"`
}

// rewindSnapshots is a bounded, in-memory ring of compressed rewind
// snapshots, oldest evicted first.
type rewindSnapshots struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

type snapshotEntry struct {
	name       string
	compressed []byte
}

func newRewindSnapshots(capacity int) *rewindSnapshots {
	if capacity <= 0 {
		capacity = 64
	}
	enc, _ := zstd.NewWriter(nil)
	dec, _ := zstd.NewReader(nil)
	return &rewindSnapshots{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		encoder:  enc,
		decoder:  dec,
	}
}

func (s *rewindSnapshots) record(name string, track *Track) {
	span, _ := track.Span()
	payload := snapshotPayload{Kind: track.Kind(), Count: track.Len(), Span: span}

	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	compressed := s.encoder.EncodeAll(raw, nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[name]; ok {
		s.order.MoveToFront(el)
		el.Value.(*snapshotEntry).compressed = compressed
		return
	}
	el := s.order.PushFront(&snapshotEntry{name: name, compressed: compressed})
	s.entries[name] = el

	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*snapshotEntry).name)
	}
}

func (s *rewindSnapshots) get(name string) (RewoundSnapshot, bool) {
	s.mu.Lock()
	el, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return RewoundSnapshot{}, false
	}
	compressed := el.Value.(*snapshotEntry).compressed
	s.mu.Unlock()

	raw, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return RewoundSnapshot{}, false
	}
	var payload snapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return RewoundSnapshot{}, false
	}
	return RewoundSnapshot{Kind: payload.Kind, Count: payload.Count, Span: payload.Span}, true
}
