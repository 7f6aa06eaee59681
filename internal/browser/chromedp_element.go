package browser

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/copyleftdev/sablcheck/internal/dom"
	"github.com/copyleftdev/sablcheck/internal/failure"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"go.uber.org/zap"
)

// chromeElement addresses the index-th match of a descriptor. The node is
// looked up again for every call so handles never go stale across renders.
type chromeElement struct {
	s     *chromeSession
	desc  locator.Descriptor
	index int
}

var _ locator.Element = (*chromeElement)(nil)

func (e *chromeElement) with(ctx context.Context, fn func(ctx context.Context, id runtime.RemoteObjectID) error) error {
	expr, err := dom.NthExpression(e.desc, e.index)
	if err != nil {
		return err
	}
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var obj *runtime.RemoteObject
		if err := dom.EvaluateHandleAction(expr, &obj).Do(ctx); err != nil {
			return err
		}
		if obj == nil || obj.ObjectID == "" {
			return failure.New(failure.ElementNotFound, "%s match %d is gone", e.desc, e.index)
		}
		defer func() {
			_ = dom.ReleaseAction(obj.ObjectID).Do(ctx)
		}()
		return fn(ctx, obj.ObjectID)
	}))
}

func (e *chromeElement) probe(ctx context.Context) (dom.Probe, error) {
	var p dom.Probe
	err := e.with(ctx, func(ctx context.Context, id runtime.RemoteObjectID) error {
		return dom.CallOnAction(id, dom.ProbeFunction, &p).Do(ctx)
	})
	return p, err
}

func (e *chromeElement) Capabilities(ctx context.Context) (locator.Capability, error) {
	p, err := e.probe(ctx)
	if err != nil {
		return locator.None, err
	}
	return p.Capabilities(), nil
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.with(ctx, func(ctx context.Context, id runtime.RemoteObjectID) error {
		return dom.CallOnAction(id, dom.TextFunction, &text).Do(ctx)
	})
	return text, err
}

func (e *chromeElement) Fill(ctx context.Context, value string) error {
	err := e.with(ctx, func(ctx context.Context, id runtime.RemoteObjectID) error {
		return dom.CallOnAction(id, dom.FillFunction(value), nil).Do(ctx)
	})
	e.s.pause(ctx)
	return err
}

func (e *chromeElement) Click(ctx context.Context) error {
	err := e.with(ctx, func(ctx context.Context, id runtime.RemoteObjectID) error {
		var pt struct {
			X   float64 `json:"x"`
			Y   float64 `json:"y"`
			Hit bool    `json:"hit"`
		}
		if err := dom.CallOnAction(id, dom.ClickPointFunction, &pt).Do(ctx); err != nil {
			return err
		}
		if pt.Hit {
			return dom.ClickXYAction(pt.X, pt.Y).Do(ctx)
		}
		e.s.logger.Debug("click point covered, dispatching programmatic click",
			zap.Stringer("locator", e.desc), zap.Int("index", e.index))
		return dom.CallOnAction(id, dom.ClickFunction, nil).Do(ctx)
	})
	e.s.pause(ctx)
	return err
}

func (e *chromeElement) Check(ctx context.Context) error {
	p, err := e.probe(ctx)
	if err != nil {
		return err
	}
	if p.Checked {
		return nil
	}
	if err := e.Click(ctx); err != nil {
		return err
	}
	p, err = e.probe(ctx)
	if err != nil {
		return err
	}
	if !p.Checked {
		return fmt.Errorf("%s did not become checked after click", e.desc)
	}
	return nil
}

func (e *chromeElement) SetFiles(ctx context.Context, paths []string) error {
	abs := make([]string, len(paths))
	for i, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve upload path %q: %w", p, err)
		}
		abs[i] = a
	}
	err := e.with(ctx, func(ctx context.Context, id runtime.RemoteObjectID) error {
		return dom.SetFilesAction(id, abs).Do(ctx)
	})
	e.s.pause(ctx)
	return err
}

func (e *chromeElement) ScrollIntoView(ctx context.Context) error {
	return e.with(ctx, func(ctx context.Context, id runtime.RemoteObjectID) error {
		return dom.CallOnAction(id, dom.ScrollFunction, nil).Do(ctx)
	})
}
