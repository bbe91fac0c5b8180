package ledger

import (
	"context"
	"time"

	"github.com/andrewyi/sitemirror/src/entity"
	"github.com/andrewyi/sitemirror/src/enum"
)

// Recorder 为记录统一补上run id与时间
type Recorder struct {
	ledger Ledger
	runID  string
}

func NewRecorder(l Ledger, runID string) *Recorder {
	if l == nil {
		l = Nop{}
	}
	return &Recorder{ledger: l, runID: runID}
}

func (r *Recorder) Page(ctx context.Context, t entity.CrawlTarget, state uint8, remark string) error {
	return r.ledger.Record(ctx, Record{
		RunID:     r.runID,
		URL:       t.NormalizedURL,
		Kind:      enum.KindPage,
		Level:     t.Depth,
		Parent:    t.Parent,
		State:     state,
		LocalPath: t.LocalPath,
		Remark:    remark,
		UpdatedAt: time.Now(),
	})
}

func (r *Recorder) Asset(ctx context.Context, ref entity.AssetRef, page entity.CrawlTarget, state uint8, remark string) error {
	return r.ledger.Record(ctx, Record{
		RunID:     r.runID,
		URL:       ref.RelativeHref,
		Kind:      enum.KindAsset,
		Level:     page.Depth,
		Parent:    page.NormalizedURL,
		State:     state,
		LocalPath: ref.ResolvedLocalPath,
		Remark:    remark,
		UpdatedAt: time.Now(),
	})
}
