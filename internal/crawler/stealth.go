package crawler

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/peto/internal/common"
)

// userAgents is the pool used when random_user_agent is enabled. All entries
// are current desktop Chrome strings so the UA matches the real browser build
// closely enough to pass consistency checks.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
}

// PickUserAgent returns a random user agent from the pool
func PickUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

// AllocatorOptions builds the Chrome launch options for an undetected
// session. Automation tells are suppressed at the launch level; runtime
// tells are handled by InjectStealthScript.
func AllocatorOptions(cfg *common.Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(cfg.Browser.WindowWidth, cfg.Browser.WindowHeight),
	)

	if cfg.Crawler.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	if cfg.Browser.DisableExtensions {
		opts = append(opts, chromedp.Flag("disable-extensions", true))
	}
	if cfg.Browser.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	if cfg.Crawler.UseProxy && cfg.Crawler.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Crawler.ProxyURL))
	}

	if cfg.Crawler.RandomUserAgent {
		opts = append(opts, chromedp.UserAgent(PickUserAgent()))
	}

	return opts
}

// stealthScript masks the runtime fingerprints headless Chrome leaves behind.
// Evaluated on every new document before page scripts run.
const stealthScript = `
// navigator.webdriver is the first thing bot checks look at
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

// Plausible plugin and language surfaces
Object.defineProperty(navigator, 'plugins', {
	get: () => [
		{ name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
		{ name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
		{ name: 'Native Client', filename: 'internal-nacl-plugin' }
	]
});
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });

// window.chrome is absent in headless builds
if (!window.chrome) {
	window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {} };
}

// Permissions API reports 'denied' for notifications in headless mode
const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications'
		? Promise.resolve({ state: Notification.permission })
		: originalQuery(parameters)
);

// Tiny deterministic-looking noise on canvas reads
const origToDataURL = HTMLCanvasElement.prototype.toDataURL;
HTMLCanvasElement.prototype.toDataURL = function() {
	const ctx = this.getContext('2d');
	if (ctx && this.width > 0 && this.height > 0) {
		const imageData = ctx.getImageData(0, 0, this.width, this.height);
		for (let i = 0; i < imageData.data.length; i += 997) {
			imageData.data[i] = imageData.data[i] ^ 1;
		}
		ctx.putImageData(imageData, 0, 0);
	}
	return origToDataURL.apply(this, arguments);
};

// Slight jitter on audio fingerprints
const origGetChannelData = AudioBuffer.prototype.getChannelData;
AudioBuffer.prototype.getChannelData = function() {
	const data = origGetChannelData.apply(this, arguments);
	for (let i = 0; i < data.length; i += 503) {
		data[i] = data[i] + 1e-7;
	}
	return data;
};

// ChromeDriver leaves cdc_ properties on document
for (const key of Object.keys(window.document)) {
	if (key.startsWith('$cdc_') || key.startsWith('cdc_')) {
		delete window.document[key];
	}
}
`

// InjectStealthScript registers the fingerprint masking script so it runs on
// every document the session navigates to
func InjectStealthScript(ctx context.Context) error {
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to inject stealth script: %w", err)
	}
	return nil
}

// bestEffort runs an anti-detection action and swallows its error. Human
// behavior simulation must never fail a crawl.
func bestEffort(ctx context.Context, action chromedp.Action) {
	_ = chromedp.Run(ctx, action)
}

// RandomMouseMove dispatches a few mouse movements to random in-viewport
// coordinates. Best effort.
func RandomMouseMove(ctx context.Context, width, height int) {
	maxX, maxY := width-100, height-100
	if maxX < 1 {
		maxX = 1
	}
	if maxY < 1 {
		maxY = 1
	}
	moves := 2 + rand.Intn(3)
	for i := 0; i < moves; i++ {
		x := 50 + rand.Intn(maxX)
		y := 50 + rand.Intn(maxY)
		js := fmt.Sprintf(`document.dispatchEvent(new MouseEvent('mousemove', {
			clientX: %d, clientY: %d, bubbles: true
		}))`, x, y)
		bestEffort(ctx, chromedp.Evaluate(js, nil))
	}
}

// RandomScroll scrolls the page by a random distance within [min, max] px.
// Best effort.
func RandomScroll(ctx context.Context, min, max int) {
	distance := min
	if max > min {
		distance += rand.Intn(max - min + 1)
	}
	js := fmt.Sprintf("window.scrollBy(0, %d)", distance)
	bestEffort(ctx, chromedp.Evaluate(js, nil))
}
