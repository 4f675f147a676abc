package results_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshstart/outreach/internal/hybrid"
	"github.com/freshstart/outreach/internal/prospect"
	"github.com/freshstart/outreach/internal/results"
)

func TestConcurrentAppends(t *testing.T) {
	tr := results.NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			method := hybrid.Template
			if i%2 == 0 {
				method = hybrid.AIFast
			}
			p := prospect.Prospect{CompanyName: fmt.Sprintf("Co %d", i), Email: fmt.Sprintf("c%d@x.test", i)}
			tr.RecordGeneration("run", i, p, hybrid.EmailResult{Subject: "s", Body: "b", Method: method})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, tr.Len())
	counts := tr.CountsByMethod()
	assert.Equal(t, 25, counts[hybrid.AIFast])
	assert.Equal(t, 25, counts[hybrid.Template])
	assert.Equal(t, 0, counts[hybrid.AISlow])
}

func TestRecordSendJoinsByProspect(t *testing.T) {
	tr := results.NewTracker()
	turner := prospect.Prospect{CompanyName: "Turner Industries", Email: "facilities@turner.com"}
	acme := prospect.Prospect{CompanyName: "Acme", Email: "ops@acme.test"}
	tr.RecordGeneration("run", 0, turner, hybrid.EmailResult{Method: hybrid.AIFast})
	tr.RecordGeneration("run", 1, acme, hybrid.EmailResult{Method: hybrid.Template})

	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	tr.RecordSend(results.SendRecord{CompanyName: "Acme", Email: "OPS@acme.test", Timestamp: at, Success: false, Error: "421 try later"})
	tr.RecordSend(results.SendRecord{CompanyName: "Turner Industries", Email: "facilities@turner.com", Timestamp: at, Success: true, MessageID: "<id@x>"})
	tr.RecordSend(results.SendRecord{CompanyName: "Turner Industries", Email: "facilities@turner.com", Timestamp: at.Add(time.Minute), Success: false, Error: "dup"})

	recs := tr.Export()
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Sent)
	assert.Equal(t, at, recs[0].SentAt)
	assert.Equal(t, "<id@x>", recs[0].MessageID)
	assert.Empty(t, recs[0].SendError)
	assert.False(t, recs[1].Sent)
	assert.Equal(t, "421 try later", recs[1].SendError)

	assert.Equal(t, results.SendCounts{Attempted: 3, Succeeded: 1, Failed: 2}, tr.SendCounts())
	assert.Len(t, tr.Sends(), 3)

	unsent := tr.Unsent()
	require.Len(t, unsent, 1)
	assert.Equal(t, "Acme", unsent[0].Prospect.CompanyName)
}

func TestExportReturnsCopy(t *testing.T) {
	tr := results.NewTracker()
	tr.RecordGeneration("run", 0, prospect.Prospect{CompanyName: "A", Email: "a@a.test"}, hybrid.EmailResult{Subject: "orig"})

	recs := tr.Export()
	recs[0].Result.Subject = "changed"

	assert.Equal(t, "orig", tr.Export()[0].Result.Subject)
}

func TestEdit(t *testing.T) {
	tr := results.NewTracker()
	tr.RecordGeneration("run", 0, prospect.Prospect{CompanyName: "A", Email: "a@a.test"}, hybrid.EmailResult{Subject: "s", Body: "b", Method: hybrid.AISlow})

	assert.True(t, tr.Edit(0, "s2", "b2"))
	assert.False(t, tr.Edit(3, "x", "y"))

	rec := tr.Export()[0]
	assert.True(t, rec.Result.Edited)
	assert.Equal(t, hybrid.AISlow, rec.Result.Method)
	assert.Equal(t, "s2", rec.Result.Subject)
}
