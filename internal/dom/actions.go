package dom

import (
	"context"
	"encoding/json"
	"fmt"

	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

func GetFullHTMLAction(res *string) chromedp.Action {
	return chromedp.Evaluate(`document.documentElement.outerHTML`, res)
}

func ScreenshotAction(fullPage bool, res *[]byte) chromedp.Action {
	if fullPage {
		// quality 100 keeps the PNG encoding
		return chromedp.FullScreenshot(res, 100)
	}
	return chromedp.CaptureScreenshot(res)
}

func LocationAction(res *string) chromedp.Action {
	return chromedp.Location(res)
}

// EvaluateHandleAction evaluates expr and keeps the result as a remote object
// so it can be used as the receiver of later calls.
func EvaluateHandleAction(expr string, res **runtime.RemoteObject) chromedp.Action {
	return chromedp.Evaluate(expr, res)
}

// CallOnAction calls fn with the remote object bound to this and decodes the
// returned value into res, which may be nil.
func CallOnAction(objectID runtime.RemoteObjectID, fn string, res interface{}) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		obj, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(objectID).
			WithReturnByValue(true).
			WithAwaitPromise(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("javascript exception: %s", exc.Text)
		}
		if res == nil || obj == nil || len(obj.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(obj.Value), res)
	})
}

func ReleaseAction(objectID runtime.RemoteObjectID) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.ReleaseObject(objectID).Do(ctx)
	})
}

func SetFilesAction(objectID runtime.RemoteObjectID, files []string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return cdpdom.SetFileInputFiles(files).WithObjectID(objectID).Do(ctx)
	})
}

func ClickXYAction(x, y float64) chromedp.Action {
	return chromedp.MouseClickXY(x, y)
}
