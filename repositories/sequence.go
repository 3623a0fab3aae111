package repositories

import (
	"fmt"
	"sync"

	"chat-broker/domain"

	"github.com/dgraph-io/badger/v4"
)

const sequenceBandwidth = 64

// roomSequences hands out monotonically increasing per-room sequence numbers
// backed by badger sequences, so ordering survives restarts.
type roomSequences struct {
	mu   sync.Mutex
	db   *badger.DB
	seqs map[domain.RoomID]*badger.Sequence
}

func newRoomSequences(db *badger.DB) *roomSequences {
	return &roomSequences{db: db, seqs: make(map[domain.RoomID]*badger.Sequence)}
}

// release hands unissued numbers back to badger. Gaps after a restart are
// fine, only monotonicity matters.
func (r *roomSequences) release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room, seq := range r.seqs {
		if err := seq.Release(); err != nil {
			return err
		}
		delete(r.seqs, room)
	}
	return nil
}

func (r *roomSequences) next(room domain.RoomID) (uint64, error) {
	r.mu.Lock()
	seq, ok := r.seqs[room]
	if !ok {
		var err error
		seq, err = r.db.GetSequence([]byte(fmt.Sprintf("seq:%s", room)), sequenceBandwidth)
		if err != nil {
			r.mu.Unlock()
			return 0, err
		}
		r.seqs[room] = seq
	}
	r.mu.Unlock()
	return seq.Next()
}
