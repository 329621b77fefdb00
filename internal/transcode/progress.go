package transcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"jellyshrink/internal/ffmpeg"
)

var (
	reSpeed   = regexp.MustCompile(`\bspeed=\s*([^\s]+)`)
	reBitrate = regexp.MustCompile(`\bbitrate=\s*([0-9.]+)\s*([kKmMgG])bits/s`)
	reClock   = regexp.MustCompile(`\btime=\s*([0-9:.]+)`)
	reFPS     = regexp.MustCompile(`\bfps=\s*([0-9.]+)`)
)

type liveProgress struct {
	enabled bool

	worker int
	name   string
	done   int
	target int
	failed int

	mu      sync.Mutex
	phase   string
	codec   string
	speed   string
	fps     string
	rate    string
	rateMbp float64
	clock   string
	last    string

	stop chan struct{}
}

func newLiveProgress(enabled bool, worker int, name string, done, target, failed int) *liveProgress {
	return &liveProgress{
		enabled: enabled,
		worker:  worker,
		name:    name,
		done:    done,
		target:  target,
		failed:  failed,
		phase:   "starting",
		stop:    make(chan struct{}),
	}
}

func (p *liveProgress) Start() {
	if !p.enabled {
		return
	}
	go func() {
		t := time.NewTicker(700 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				fmt.Printf("\r\033[2K%s", p.render())
			}
		}
	}()
}

func (p *liveProgress) Stop(final string) {
	if !p.enabled {
		return
	}
	close(p.stop)
	fmt.Printf("\r\033[2K%s\n", final)
}

func (p *liveProgress) SetPhase(phase string) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	p.phase = phase
	p.mu.Unlock()
}

func (p *liveProgress) SetCodec(codec string) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	p.codec = codec
	p.mu.Unlock()
}

// Handle parses ffmpeg's stderr stats line (frame= fps= time= bitrate=
// speed=) into display fields.
func (p *liveProgress) Handle(stream ffmpeg.OutputStream, line string) {
	if !p.enabled {
		return
	}
	l := strings.TrimSpace(line)
	if l == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = l
	if stream != ffmpeg.StreamStderr {
		return
	}
	if m := reSpeed.FindStringSubmatch(l); len(m) > 1 {
		p.speed = m[1]
		if p.phase == "starting" {
			p.phase = "encoding"
		}
	}
	if m := reFPS.FindStringSubmatch(l); len(m) > 1 {
		p.fps = m[1]
	}
	if m := reClock.FindStringSubmatch(l); len(m) > 1 {
		p.clock = m[1]
	}
	if m := reBitrate.FindStringSubmatch(l); len(m) > 2 {
		p.rate, p.rateMbp = bitrateToDisplay(m[1], m[2])
	}
}

func (p *liveProgress) render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := p.name
	if len(name) > 52 {
		name = name[:52] + "..."
	}

	parts := []string{fmt.Sprintf("[w%d] %s", p.worker, name), p.phase}
	if p.codec != "" {
		parts = append(parts, p.codec)
	}
	if p.target > 0 {
		parts = append(parts, fmt.Sprintf("processed %d/%d", p.done, p.target))
	}
	if p.failed > 0 {
		parts = append(parts, fmt.Sprintf("failed %d", p.failed))
	}
	if p.clock != "" {
		parts = append(parts, "time "+p.clock)
	}
	if p.fps != "" {
		parts = append(parts, p.fps+" fps")
	}
	if p.speed != "" {
		parts = append(parts, p.speed)
	}
	if p.rate != "" {
		parts = append(parts, p.rate)
	}
	return strings.Join(parts, "  ")
}

func bitrateToDisplay(num, unit string) (string, float64) {
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f <= 0 {
		return "", 0
	}
	var mbps float64
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "K":
		mbps = f / 1000.0
	case "M":
		mbps = f
	case "G":
		mbps = f * 1000.0
	default:
		return "", 0
	}
	return fmt.Sprintf("%.2f Mb/s", mbps), mbps
}
