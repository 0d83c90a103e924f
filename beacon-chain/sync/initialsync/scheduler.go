package initialsync

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "initialsync")

// PeerAccountant scores peers for reporting/penalization, decoupled from
// the concrete p2p host the way the teacher's mockP2P/mockSyncService test
// doubles decouple sync from transport.
type PeerAccountant interface {
	ReportPeer(p PeerID, reason string)
	CreditPeer(p PeerID)
}

// Scheduler owns the in-flight batch set for a backfill run, advancing each
// batch's state machine and resuming from the last validated Done batch on
// restart.
type Scheduler struct {
	mu          sync.Mutex
	batches     []*Batch
	accountant  PeerAccountant
	highestDone uint64 // startSlot of the highest contiguous validated batch
}

func NewScheduler(accountant PeerAccountant) *Scheduler {
	return &Scheduler{accountant: accountant}
}

// Enqueue adds a new batch to the schedule.
func (s *Scheduler) Enqueue(b *Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
}

// Advance processes one step: for every batch in AwaitingValidation whose
// chronological successor has reached AwaitingValidation or Done, confirm validation
// with that successor's imported-block status, then garbage-collect
// validated-and-contiguous batches, updating the resume cursor.
func (s *Scheduler) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < len(s.batches)-1; i++ {
		cur, next := s.batches[i], s.batches[i+1]
		if cur.state == StateAwaitingValidation && (next.state == StateDone || next.state == StateAwaitingValidation) {
			next.NotifyNextBatchImported(len(next.Blocks()) > 0)
			cur.NotifyNextBatchImported(len(next.Blocks()) > 0)
		}
	}

	kept := s.batches[:0]
	for _, b := range s.batches {
		if b.state == StateDone && b.Validated() && b.StartSlot >= s.highestDone {
			s.highestDone = b.StartSlot + b.Count
			continue
		}
		kept = append(kept, b)
	}
	s.batches = kept
}

// ResumeFrom reports the slot the scheduler should next request a batch
// for, after a restart: the highest contiguous validated-and-imported slot.
func (s *Scheduler) ResumeFrom() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highestDone
}

func (s *Scheduler) ReportPeerFailure(p PeerID, reason string) {
	if s.accountant != nil {
		s.accountant.ReportPeer(p, reason)
	}
}
