// Package describe captures a live page with a headless browser and turns it
// into a page description the extraction pipeline can work from.
package describe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Options configures a capture
type Options struct {
	Width   int
	Height  int
	Timeout time.Duration
	// ProfileDir is a Chrome/Chromium profile directory for authenticated sessions
	ProfileDir string
	Logger     *zap.Logger
}

const (
	defaultWidth   = 1280
	defaultHeight  = 800
	defaultTimeout = 30 * time.Second
	settleTimeout  = 5 * time.Second
)

// Capture opens url in a headless browser and extracts its interactive elements
func Capture(ctx context.Context, url string, opts Options) (*PageMap, error) {
	if opts.Timeout == 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Width == 0 {
		opts.Width = defaultWidth
	}
	if opts.Height == 0 {
		opts.Height = defaultHeight
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("url", url))

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(true).Context(ctx)
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}).Call(page); err != nil {
		log.Warn("Failed to set viewport", zap.Error(err))
	}

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page did not load: %w", err)
	}

	// Persistent connections (websockets, polling) never go idle
	page.Timeout(settleTimeout).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()

	var isSPA bool
	if err := evalInto(page, detectSPAJS, &isSPA); err != nil {
		return nil, err
	}
	if isSPA {
		waitForInteractiveElements(ctx, page, settleTimeout)
	}

	pm := &PageMap{URL: url, IsSPA: isSPA}
	if err := evalInto(page, `() => document.title`, &pm.Title); err != nil {
		return nil, err
	}
	if err := evalInto(page, extractElementsJS, &pm.Elements); err != nil {
		return nil, err
	}
	if err := evalInto(page, extractNavigationJS, &pm.Navigation); err != nil {
		return nil, err
	}

	log.Info("Captured page",
		zap.String("title", pm.Title),
		zap.Int("elements", len(pm.Elements)),
		zap.Int("navigation", len(pm.Navigation)),
		zap.Bool("spa", pm.IsSPA))
	return pm, nil
}

// evalInto runs js on the page and decodes its JSON result into v
func evalInto(page *rod.Page, js string, v any) error {
	res, err := page.Evaluate(rod.Eval(js))
	if err != nil {
		return fmt.Errorf("page evaluation failed: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation result: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode evaluation result: %w", err)
	}
	return nil
}

// waitForInteractiveElements polls until interactive elements appear or timeout
func waitForInteractiveElements(ctx context.Context, page *rod.Page, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		var count int
		if err := evalInto(page, countVisibleJS, &count); err == nil && count > 0 {
			// let the final renders land
			time.Sleep(300 * time.Millisecond)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

const countVisibleJS = `() => {
	const els = document.querySelectorAll('button, [role="button"], input:not([type="hidden"]), textarea, a[href]');
	let visible = 0;
	els.forEach(el => { if (el.offsetParent) visible++; });
	return visible;
}`

const detectSPAJS = `() => {
	if (window.__REACT_DEVTOOLS_GLOBAL_HOOK__ || document.querySelector('[data-reactroot]') || document.querySelector('#__next')) return true;
	if (window.__VUE__ || document.querySelector('[data-v-app]')) return true;
	if (window.ng || document.querySelector('[ng-version]') || document.querySelector('app-root')) return true;
	if (document.querySelector('[class*="svelte-"]')) return true;
	return false;
}`

const extractElementsJS = `() => {
	const elements = [];
	const seen = new Set();

	function validIdent(s) {
		if (!s) return false;
		if (/^-?[0-9]/.test(s)) return false;
		return !/[.:#\[\]()>~+*\/\\]/.test(s);
	}

	function selectorFor(el) {
		if (el.id && validIdent(el.id)) return '#' + el.id;
		if (el.getAttribute('data-testid')) return '[data-testid="' + el.getAttribute('data-testid') + '"]';
		if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';

		if (el.className && typeof el.className === 'string') {
			const classes = el.className.trim().split(/\s+/).filter(validIdent).slice(0, 2);
			if (classes.length > 0) {
				const sel = el.tagName.toLowerCase() + '.' + classes.join('.');
				try {
					if (document.querySelectorAll(sel).length === 1) return sel;
				} catch (e) {}
			}
		}

		const parent = el.parentElement;
		if (parent) {
			const index = Array.from(parent.children).indexOf(el) + 1;
			const parentSel = selectorFor(parent);
			if (parentSel) return parentSel + ' > ' + el.tagName.toLowerCase() + ':nth-child(' + index + ')';
		}
		return el.tagName.toLowerCase();
	}

	function labelFor(el) {
		if (el.labels && el.labels.length > 0) return el.labels[0].textContent.trim().slice(0, 50);
		return (el.getAttribute('aria-label') || '').slice(0, 50);
	}

	function add(el, type, extra) {
		if (!el.offsetParent) return;
		const selector = selectorFor(el);
		if (seen.has(selector)) return;
		seen.add(selector);
		elements.push(Object.assign({
			selector: selector,
			type: type,
			label: labelFor(el),
			id: el.id || '',
			name: el.name || ''
		}, extra));
	}

	document.querySelectorAll('button, [role="button"], input[type="submit"], input[type="button"]').forEach(el => {
		add(el, 'button', {text: (el.textContent || el.value || '').trim().slice(0, 50)});
	});
	document.querySelectorAll('input:not([type="hidden"]):not([type="submit"]):not([type="button"]):not([type="checkbox"]):not([type="radio"]), textarea').forEach(el => {
		add(el, el.type || 'text', {placeholder: el.placeholder || ''});
	});
	document.querySelectorAll('a[href]').forEach(el => {
		const href = el.getAttribute('href');
		if (href.startsWith('#') || href.startsWith('javascript:')) return;
		add(el, 'link', {text: (el.textContent || '').trim().slice(0, 50)});
	});
	document.querySelectorAll('select').forEach(el => add(el, 'select', {}));
	document.querySelectorAll('input[type="checkbox"], input[type="radio"]').forEach(el => add(el, el.type, {}));

	return elements;
}`

const extractNavigationJS = `() => {
	const items = [];
	const seen = new Set();
	document.querySelectorAll('nav a, header a, [role="navigation"] a').forEach(el => {
		if (!el.offsetParent) return;
		const href = el.getAttribute('href');
		if (!href || href === '#' || href.startsWith('javascript:')) return;
		if (seen.has(href)) return;
		seen.add(href);
		items.push({
			selector: el.id ? '#' + el.id : 'a[href="' + href + '"]',
			text: (el.textContent || '').trim().slice(0, 30),
			href: href
		});
	});
	return items;
}`
