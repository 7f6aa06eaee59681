package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/copyleftdev/sablcheck/internal/browser"
	"github.com/copyleftdev/sablcheck/internal/locator"
	"github.com/spf13/cobra"
)

const doctorPage = `<html><body><h1>sablcheck doctor</h1>` +
	`<label for="probe">Probe</label><input id="probe">` +
	`<button>Ready</button></body></html>`

// doctorCheck is one line of the doctor report.
type doctorCheck struct {
	name string
	err  error
}

func newDoctorCmd(a *app) *cobra.Command {
	var (
		driverName string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Launch the configured browser and verify it can render and query a page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if driverName != "" {
				cfg.Browser.Driver = driverName
			}
			logger, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(contextOrBackground(cmd), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "driver: %s (headless=%t)\n", cfg.Browser.Driver, cfg.Browser.Headless)

			driver, err := a.newDriver(&cfg.Browser, logger)
			if err != nil {
				fmt.Fprintf(out, "FAIL start driver: %v\n", err)
				return errChecksFailed
			}
			defer shutdownDriver(driver, cfg, logger)

			session, err := driver.NewSession(ctx)
			if err != nil {
				fmt.Fprintf(out, "FAIL open session: %v\n", err)
				return errChecksFailed
			}
			defer session.Close()

			failed := false
			for _, c := range runDoctor(ctx, session, cfg.Timeouts.PollInterval) {
				if c.err != nil {
					failed = true
					fmt.Fprintf(out, "FAIL %s: %v\n", c.name, c.err)
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", c.name)
			}
			if failed {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&driverName, "driver", "", "browser driver: chromedp or playwright")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall budget for the checks")
	return cmd
}

// runDoctor renders a data: URL and exercises navigation, each locator
// strategy, capability probing and screenshots. Checks after a failed
// navigation are skipped.
func runDoctor(ctx context.Context, session browser.Session, interval time.Duration) []doctorCheck {
	target := "data:text/html," + url.PathEscape(doctorPage)
	checks := []doctorCheck{{name: "navigate", err: session.Navigate(ctx, target, browser.LoadStateLoad)}}
	if checks[0].err != nil {
		return checks
	}

	loc := locator.New(session, 5*time.Second, interval, nil)
	probe := func(name string, d locator.Descriptor, want locator.Capability) {
		el, err := loc.Resolve(ctx, d)
		if err == nil && want != locator.None {
			var caps locator.Capability
			caps, err = el.Capabilities(ctx)
			if err == nil && !caps.Has(want) {
				err = fmt.Errorf("%s is %s, expected %s", d, caps, want)
			}
		}
		checks = append(checks, doctorCheck{name: name, err: err})
	}
	probe("locate by text", locator.Text("sablcheck doctor"), locator.Visible)
	probe("locate by role", locator.Role("button", "Ready"), locator.Clickable)
	probe("locate by label", locator.Label("Probe"), locator.Fillable)

	shot, err := session.Screenshot(ctx, false)
	if err == nil && len(shot) == 0 {
		err = fmt.Errorf("empty screenshot")
	}
	checks = append(checks, doctorCheck{name: "screenshot", err: err})
	return checks
}
