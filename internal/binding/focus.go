package binding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/celltrack-tui/internal/logger"
	"github.com/j-veylop/celltrack-tui/internal/models"
)

// Hover focuses a plotted point. cell is -1 for image averages. The highlight
// images are requested after the hover delay, and only when the target differs
// from the previous hover; a newer hover before the delay replaces the pending one.
func (b *Binding) Hover(date string, cell int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.snap.Ready() {
		return
	}

	next := b.snap.clone()
	next.Focus.Active = true
	next.Focus.Date = date
	next.Focus.Cell = cell
	b.commit(next)
	b.publish(Event{Type: EventFocusChanged})

	key := fmt.Sprintf("%s#%d", date, cell)
	if key == b.hoverKey {
		return
	}
	b.hoverKey = key
	// A new target outdates any fetch already in flight.
	b.focusSeq++
	token := b.focusSeq

	project := next.Project
	b.hover.Trigger(func() {
		if err := b.loadFocus(b.ctx, token, project, date, cell); err != nil && err != ErrStale {
			logger.Warn("failed to fetch highlight images", "project", project, "date", date, "cell", cell, "error", err)
		}
	})
}

// Leave hides the focus overlay. A pending or in-flight fetch still completes
// and lands on the hidden focus.
func (b *Binding) Leave() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.snap.Focus.Active {
		return
	}
	next := b.snap.clone()
	next.Focus.Active = false
	b.commit(next)
	b.publish(Event{Type: EventFocusChanged})
}

// Scrub maps a legend position (0-255) to the nearest point by blue channel
// and focuses it. In average and all-cells mode the nearest image date is
// previewed; in single-image mode the nearest cell is highlighted.
func (b *Binding) Scrub(ctx context.Context, pos int) (*Snapshot, error) {
	pos = min(max(pos, 0), 255)
	b.hover.Cancel()

	b.mu.Lock()
	cur := b.snap
	if !cur.Ready() {
		b.mu.Unlock()
		return nil, ErrNoData
	}
	idx := models.NearestBlue(cur.palette(), pos)
	if idx < 0 {
		b.mu.Unlock()
		return nil, ErrNoData
	}

	next := cur.clone()
	next.Focus = models.FocusState{Active: true, Cell: -1}
	if cur.Granularity == models.GranularitySingleImage {
		p := cur.Points[idx]
		next.Focus.Date = cur.Date
		next.Focus.Cell = p.Cell
		next.Focus.Value = p.Values[len(p.Values)-1]
	} else {
		next.Focus.Date = cur.Dates[idx]
	}
	b.hoverKey = ""
	b.focusSeq++
	token := b.focusSeq
	b.commit(next)
	b.publish(Event{Type: EventFocusChanged})
	b.mu.Unlock()

	if err := b.loadFocus(ctx, token, next.Project, next.Focus.Date, next.Focus.Cell); err != nil {
		return nil, err
	}
	return b.Snapshot(), nil
}

// loadFocus fetches the focus images and applies them if token is still current.
// Image-level focus fetches the raw image; cell focus fetches the highlighted
// whole image and the cropped cell together.
func (b *Binding) loadFocus(ctx context.Context, token uint64, project, date string, cell int) error {
	var whole, crop []byte
	if cell < 0 {
		img, err := b.fetcher.SpecificImage(ctx, project, date)
		if err != nil {
			b.fail(err)
			return err
		}
		whole = img
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			img, err := b.fetcher.HighlightedImage(gctx, project, date, cell)
			whole = img
			return err
		})
		g.Go(func() error {
			img, err := b.fetcher.SegmentedCell(gctx, project, date, cell)
			crop = img
			return err
		})
		if err := g.Wait(); err != nil {
			b.fail(err)
			return err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	f := b.snap.Focus
	if token != b.focusSeq || project != b.snap.Project || f.Date != date || f.Cell != cell {
		return ErrStale
	}
	next := b.snap.clone()
	next.Focus.WholeImage = whole
	next.Focus.CellImage = crop
	b.commit(next)
	b.publish(Event{Type: EventFocusChanged})
	return nil
}
