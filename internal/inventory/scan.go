package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"jellyshrink/internal/model"
	"jellyshrink/internal/runstore"
	"jellyshrink/internal/transcode"
	"jellyshrink/internal/version"
	"jellyshrink/internal/worklist"
)

// DefaultSaveRatio is the assumed share of bytes a re-encode frees.
const DefaultSaveRatio = 0.40

type ScanOptions struct {
	ServerURL         string
	Token             string
	UserID            string
	InefficientCodecs []string
	SaveRatio         float64
	ReportsDir        string
	ListPath          string
	BaseDir           string
	WriteList         bool
	Progress          bool
}

type ScanResult struct {
	ScanID              string
	ReportPath          string
	ItemsSeen           int
	ItemsSkipped        int
	Codecs              []model.CodecStat
	InefficientCount    int
	InefficientBytes    int64
	EstimatedSavedBytes int64
	Listed              int
	ListPath            string
}

type candidate struct {
	path  string
	bytes int64
}

// Scan inventories the library by codec and, when asked, rewrites the
// job list with re-encode candidates ordered largest first. Items the
// server cannot describe are counted and skipped, never fatal.
func Scan(opts ScanOptions) (ScanResult, error) {
	client, err := NewClient(opts.ServerURL, opts.Token)
	if err != nil {
		return ScanResult{}, err
	}
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		return ScanResult{}, fmt.Errorf("user ID is required")
	}
	ratio := opts.SaveRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = DefaultSaveRatio
	}
	inefficient := transcode.CodecSet(opts.InefficientCodecs)
	if len(inefficient) == 0 {
		return ScanResult{}, fmt.Errorf("at least one codec to look for is required")
	}

	reportsDir := strings.TrimSpace(opts.ReportsDir)
	if reportsDir != "" {
		lock, err := runstore.AcquireScanLock(reportsDir)
		if err != nil {
			return ScanResult{}, err
		}
		defer func() {
			_ = lock.Release()
		}()
	}

	startedAt := time.Now().UTC()
	items, err := client.Items(userID)
	if err != nil {
		return ScanResult{}, err
	}

	statsByCodec := make(map[string]*model.CodecStat)
	candidates := make([]candidate, 0)
	var inefficientCount int
	var inefficientBytes int64
	skipped := 0

	for i, item := range items {
		if opts.Progress && (i+1)%500 == 0 {
			fmt.Printf("scanned %d/%d items\n", i+1, len(items))
		}

		info, err := client.PlaybackInfo(item.ID, userID)
		if err != nil || len(info.MediaSources) == 0 {
			skipped++
			continue
		}
		source := info.MediaSources[0]
		codec := source.VideoCodec()
		if codec == "" {
			skipped++
			continue
		}

		stat, ok := statsByCodec[codec]
		if !ok {
			stat = &model.CodecStat{Codec: codec}
			statsByCodec[codec] = stat
		}
		stat.Count++
		stat.Bytes += source.Size

		if inefficient[codec] {
			inefficientCount++
			inefficientBytes += source.Size
			if strings.TrimSpace(source.Path) != "" {
				candidates = append(candidates, candidate{path: source.Path, bytes: source.Size})
			}
		}
	}

	codecs := make([]model.CodecStat, 0, len(statsByCodec))
	for _, stat := range statsByCodec {
		codecs = append(codecs, *stat)
	}
	sort.Slice(codecs, func(a, b int) bool {
		if codecs[a].Count != codecs[b].Count {
			return codecs[a].Count > codecs[b].Count
		}
		if codecs[a].Bytes != codecs[b].Bytes {
			return codecs[a].Bytes > codecs[b].Bytes
		}
		return codecs[a].Codec < codecs[b].Codec
	})

	// Largest files first so early runs reclaim the most space.
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].bytes != candidates[b].bytes {
			return candidates[a].bytes > candidates[b].bytes
		}
		return candidates[a].path < candidates[b].path
	})

	result := ScanResult{
		ScanID:              newScanID(),
		ItemsSeen:           len(items),
		ItemsSkipped:        skipped,
		Codecs:              codecs,
		InefficientCount:    inefficientCount,
		InefficientBytes:    inefficientBytes,
		EstimatedSavedBytes: int64(float64(inefficientBytes) * ratio),
	}

	if opts.WriteList {
		listPath := strings.TrimSpace(opts.ListPath)
		if listPath == "" {
			return ScanResult{}, fmt.Errorf("list path is required to write the job list")
		}
		lines := make([]string, 0, len(candidates))
		for _, c := range candidates {
			lines = append(lines, c.path)
		}
		store := worklist.NewStore(listPath, opts.BaseDir)
		if err := store.WriteAll(lines); err != nil {
			return ScanResult{}, fmt.Errorf("write job list: %w", err)
		}
		result.Listed = len(lines)
		result.ListPath = listPath
	}

	if reportsDir != "" {
		report := model.ScanReport{
			ScanID:              result.ScanID,
			Version:             version.Value,
			StartedAt:           startedAt.Format(time.RFC3339),
			FinishedAt:          time.Now().UTC().Format(time.RFC3339),
			ServerURL:           strings.TrimRight(strings.TrimSpace(opts.ServerURL), "/"),
			UserID:              userID,
			ItemsSeen:           result.ItemsSeen,
			ItemsSkipped:        result.ItemsSkipped,
			Codecs:              result.Codecs,
			InefficientCount:    result.InefficientCount,
			InefficientBytes:    result.InefficientBytes,
			EstimatedSavedBytes: result.EstimatedSavedBytes,
			ListPath:            result.ListPath,
			Listed:              result.Listed,
		}
		reportPath := runstore.ScanReportPath(reportsDir, result.ScanID)
		if err := runstore.WriteJSON(reportPath, report); err != nil {
			return ScanResult{}, fmt.Errorf("write scan report: %w", err)
		}
		result.ReportPath = reportPath
	}

	return result, nil
}

func newScanID() string {
	return time.Now().UTC().Format("20060102T150405Z") + "_" + uuid.NewString()[:8]
}
