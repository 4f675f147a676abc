// Package results keeps the append-only log of generated emails and send
// attempts for a session.
package results

import (
	"sync"
	"time"

	"github.com/freshstart/outreach/internal/hybrid"
	"github.com/freshstart/outreach/internal/prospect"
)

// Record is one generated email plus its latest delivery status.
type Record struct {
	RunID    string             `json:"run_id"`
	Index    int                `json:"index"`
	Prospect prospect.Prospect  `json:"prospect"`
	Result   hybrid.EmailResult `json:"result"`

	Sent      bool      `json:"sent"`
	SentAt    time.Time `json:"sent_at,omitempty"`
	SendError string    `json:"send_error,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
}

// SendRecord is one delivery attempt.
type SendRecord struct {
	CompanyName string    `json:"company_name"`
	Email       string    `json:"email"`
	Timestamp   time.Time `json:"timestamp"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
}

// SendCounts summarizes delivery attempts.
type SendCounts struct {
	Attempted int
	Succeeded int
	Failed    int
}

// Tracker is safe for concurrent use. Appends are serialized; readers get
// copies.
type Tracker struct {
	mu      sync.RWMutex
	records []Record
	sends   []SendRecord
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordGeneration appends a generated email.
func (t *Tracker) RecordGeneration(runID string, index int, p prospect.Prospect, res hybrid.EmailResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, Record{RunID: runID, Index: index, Prospect: p, Result: res})
}

// Add appends a previously exported record, keeping its delivery status.
func (t *Tracker) Add(r Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, r)
}

// RecordSend appends a delivery attempt and updates the matching generation
// records.
func (t *Tracker) RecordSend(s SendRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, s)

	key := prospect.Prospect{CompanyName: s.CompanyName, Email: s.Email}.Key()
	for i := range t.records {
		if t.records[i].Prospect.Key() != key {
			continue
		}
		// A later failure does not undo an earlier delivery.
		if s.Success {
			t.records[i].Sent = true
			t.records[i].SentAt = s.Timestamp
			t.records[i].SendError = ""
			t.records[i].MessageID = s.MessageID
		} else if !t.records[i].Sent {
			t.records[i].SendError = s.Error
		}
	}
}

// Edit replaces the subject and body of the record at position i.
func (t *Tracker) Edit(i int, subject, body string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.records) {
		return false
	}
	t.records[i].Result.Edit(subject, body)
	return true
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// CountsByMethod tallies generated emails by method.
func (t *Tracker) CountsByMethod() map[hybrid.Method]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := map[hybrid.Method]int{hybrid.AIFast: 0, hybrid.AISlow: 0, hybrid.Template: 0}
	for _, r := range t.records {
		out[r.Result.Method]++
	}
	return out
}

func (t *Tracker) SendCounts() SendCounts {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var c SendCounts
	for _, s := range t.sends {
		c.Attempted++
		if s.Success {
			c.Succeeded++
		} else {
			c.Failed++
		}
	}
	return c
}

// Export returns a copy of every generation record in append order.
func (t *Tracker) Export() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Unsent returns records that have not been delivered yet.
func (t *Tracker) Unsent() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Record
	for _, r := range t.records {
		if !r.Sent {
			out = append(out, r)
		}
	}
	return out
}

// Sends returns a copy of every delivery attempt.
func (t *Tracker) Sends() []SendRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]SendRecord, len(t.sends))
	copy(out, t.sends)
	return out
}
