package infra

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Flag icons are drawn at this size next to each menu entry.
const (
	FlagWidth  = 24
	FlagHeight = 16
)

// currencyCountry covers codes whose first two letters are not the issuing
// country, or that have no single country.
var currencyCountry = map[string]string{
	"EUR": "eu",
	"ANG": "cw",
	"XCD": "ag",
	"XAF": "cm",
	"XOF": "sn",
	"XPF": "pf",
}

// FlagDownloader handles downloading and caching currency flag icons.
type FlagDownloader struct {
	basePath  string
	sourceURL string
	client    *http.Client
}

// NewFlagDownloader creates a downloader storing icons in dir (the user
// config directory when empty). sourceURL has one %s for the lower-case
// ISO 3166 country code.
func NewFlagDownloader(dir, sourceURL string) (*FlagDownloader, error) {
	path := dir
	if path == "" {
		var err error
		path, err = getAssetsPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve assets path: %w", err)
		}
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &FlagDownloader{
		basePath:  path,
		sourceURL: sourceURL,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// Dir is where icons are stored.
func (d *FlagDownloader) Dir() string { return d.basePath }

// DownloadFlag fetches the flag for a currency code unless it is already on
// disk, resizes it to FlagWidth x FlagHeight and returns the local path.
func (d *FlagDownloader) DownloadFlag(ctx context.Context, code string) (string, error) {
	safe := sanitizeCode(code)
	if len(safe) != 3 || len(safe) != len(code) {
		return "", fmt.Errorf("invalid currency code: %q", code)
	}

	filePath := d.FlagPath(safe)
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // cache hit
	}

	url := fmt.Sprintf(d.sourceURL, FlagCountry(safe))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Crop-to-fill keeps the 3:2 shape for flags with other aspect ratios
	resized := imaging.Fill(srcImg, FlagWidth, FlagHeight, imaging.Center, imaging.Lanczos)

	if err := imaging.Save(resized, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}
	return filePath, nil
}

// FlagPath returns the local path for a currency's flag.
func (d *FlagDownloader) FlagPath(code string) string {
	return filepath.Join(d.basePath, strings.ToUpper(sanitizeCode(code))+".png")
}

// FlagCountry maps a currency code to the country whose flag represents it.
func FlagCountry(code string) string {
	code = strings.ToUpper(code)
	if c, ok := currencyCountry[code]; ok {
		return c
	}
	if len(code) < 2 {
		return ""
	}
	return strings.ToLower(code[:2])
}

func getAssetsPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "CurrencySwitcher", "assets", "flags"), nil
}

func sanitizeCode(code string) string {
	res := make([]rune, 0, len(code))
	for _, r := range code {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			res = append(res, r)
		}
	}
	return strings.ToUpper(string(res))
}
