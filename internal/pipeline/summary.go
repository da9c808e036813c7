package pipeline

import (
	"log"
	"time"
)

// SourceResult 单个站点在一轮中的结果
type SourceResult struct {
	Name       string `json:"name"`
	Discovered int    `json:"discovered"`
	Persisted  int    `json:"persisted"`
	Skipped    int    `json:"skipped"`
	Discarded  int    `json:"discarded"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

func (r SourceResult) fail(err error) SourceResult {
	log.Printf("pipeline: %s aborted: %v", r.Name, err)
	r.Failed++
	r.Error = err.Error()
	return r
}

// RunSummary 一轮采集的汇总，手动刷新接口直接返回
type RunSummary struct {
	RunID      string         `json:"runId"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Sources    []SourceResult `json:"sources"`
	Persisted  int            `json:"persisted"`
	Skipped    int            `json:"skipped"`
	Discarded  int            `json:"discarded"`
	Failed     int            `json:"failed"`
}

func (s *RunSummary) add(r SourceResult) {
	s.Sources = append(s.Sources, r)
	s.Persisted += r.Persisted
	s.Skipped += r.Skipped
	s.Discarded += r.Discarded
	s.Failed += r.Failed
}
