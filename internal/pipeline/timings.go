package pipeline

import (
	"sync"
	"time"
)

const (
	StageDetect            = "detect"
	StageSettings          = "settings"
	StageEmbedPrimary      = "embed_primary"
	StageSearchPrimary     = "search_primary"
	StageTranslateQuestion = "translate_question"
	StageEmbedFallback     = "embed_fallback"
	StageSearchFallback    = "search_fallback"
	StageContext           = "context"
	StageLiveFetch         = "live_fetch"
	StageGenerate          = "generate"
	StageBackTranslate     = "back_translate"
)

type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// Timings accumulates stage durations in the order stages ran.
type Timings struct {
	mu      sync.Mutex
	entries []StageTiming
}

func (t *Timings) Add(stage string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, StageTiming{Stage: stage, Duration: d})
}

func (t *Timings) Entries() []StageTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageTiming, len(t.entries))
	copy(out, t.entries)
	return out
}

// Millis returns stage durations in milliseconds, summed per stage.
func (t *Timings) Millis() map[string]int64 {
	out := map[string]int64{}
	for _, e := range t.Entries() {
		out[e.Stage] += e.Duration.Milliseconds()
	}
	return out
}

// Total is the time spent inside timed stages; latency minus Total is
// untimed overhead.
func (t *Timings) Total() time.Duration {
	var total time.Duration
	for _, e := range t.Entries() {
		total += e.Duration
	}
	return total
}
