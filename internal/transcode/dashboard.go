package transcode

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type multiDashboard struct {
	mu sync.Mutex

	workers map[int]*liveProgress
	events  []string

	processed  int
	target     int
	committed  int
	skipped    int
	rolledBack int
	failed     int
	savedBytes int64
	workersN   int

	stop chan struct{}
}

func newMultiDashboard(workers int) *multiDashboard {
	return &multiDashboard{
		workers:  make(map[int]*liveProgress),
		events:   make([]string, 0, 8),
		workersN: workers,
		stop:     make(chan struct{}),
	}
}

func (d *multiDashboard) Start() {
	go func() {
		t := time.NewTicker(700 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-d.stop:
				return
			case <-t.C:
				d.render()
			}
		}
	}()
}

func (d *multiDashboard) Stop() {
	close(d.stop)
	d.render()
}

func (d *multiDashboard) SetTotals(processed, target, committed, skipped, rolledBack, failed int, savedBytes int64) {
	d.mu.Lock()
	d.processed = processed
	d.target = target
	d.committed = committed
	d.skipped = skipped
	d.rolledBack = rolledBack
	d.failed = failed
	d.savedBytes = savedBytes
	d.mu.Unlock()
}

func (d *multiDashboard) SetWorker(workerID int, p *liveProgress) {
	d.mu.Lock()
	d.workers[workerID] = p
	d.mu.Unlock()
}

func (d *multiDashboard) RemoveWorker(workerID int, event string) {
	d.mu.Lock()
	delete(d.workers, workerID)
	if strings.TrimSpace(event) != "" {
		d.events = append([]string{event}, d.events...)
		if len(d.events) > 8 {
			d.events = d.events[:8]
		}
	}
	d.mu.Unlock()
}

func (d *multiDashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ids := make([]int, 0, len(d.workers))
	for id := range d.workers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	totalMbp := 0.0
	for _, id := range ids {
		totalMbp += d.workers[id].rateMbp
	}
	totalMBps := totalMbp / 8.0

	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	savedPart := ""
	if d.savedBytes > 0 {
		savedPart = fmt.Sprintf(" | saved ~ %s", formatBytesIEC(d.savedBytes))
	}
	b.WriteString(fmt.Sprintf("jellyshrink live | active %d/%d | processed %d/%d | committed %d | skipped %d | rolled back %d | failed %d | total %.2f MB/s%s\n",
		len(ids), d.workersN, d.processed, d.target, d.committed, d.skipped, d.rolledBack, d.failed, totalMBps, savedPart))
	b.WriteString(strings.Repeat("-", 120) + "\n")

	if len(ids) == 0 {
		b.WriteString("(no active workers)\n")
	} else {
		for _, id := range ids {
			b.WriteString(d.workers[id].render() + "\n")
		}
	}

	if len(d.events) > 0 {
		b.WriteString(strings.Repeat("-", 120) + "\n")
		for _, e := range d.events {
			b.WriteString(e + "\n")
		}
	}

	fmt.Print(b.String())
}

func formatBytesIEC(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for q := n / unit; q >= unit; q /= unit {
		div *= unit
		exp++
	}
	value := float64(n) / float64(div)
	suffix := "KMGTPE"[exp]
	return strconv.FormatFloat(value, 'f', 1, 64) + " " + string(suffix) + "iB"
}
