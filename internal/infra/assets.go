package infra

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// PortraitDownloader handles downloading and caching player headshots
type PortraitDownloader struct {
	basePath string
	baseURL  string
	client   *http.Client
}

// NewPortraitDownloader creates a new PortraitDownloader. baseURL is the
// CDN prefix serving "<id>.png" portraits.
func NewPortraitDownloader(baseURL string) (*PortraitDownloader, error) {
	path, err := getAssetsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assets path: %w", err)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &PortraitDownloader{
		basePath: path,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadPortrait downloads the headshot for a player if it doesn't
// exist yet and returns the local file path. Images are resized to
// 96x96 pixels for consistent display.
func (d *PortraitDownloader) DownloadPortrait(playerID string) (string, error) {
	// Security: Sanitize id to prevent path traversal
	safeID := sanitizeID(playerID)
	if safeID == "" {
		return "", fmt.Errorf("invalid player id: %s", playerID)
	}

	fileName := strings.ToLower(safeID) + ".png"
	filePath := filepath.Join(d.basePath, fileName)

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	url := fmt.Sprintf("%s/%s.png", d.baseURL, strings.ToLower(safeID))

	resp, err := d.client.Get(url)
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

	// Resize with high-quality Lanczos filter
	resizedImg := imaging.Resize(srcImg, 96, 96, imaging.Lanczos)

	if err := imaging.Save(resizedImg, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// GetPortraitPath returns the local path for a player's headshot.
func (d *PortraitDownloader) GetPortraitPath(playerID string) string {
	return filepath.Join(d.basePath, strings.ToLower(sanitizeID(playerID))+".png")
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

	return filepath.Join(configDir, "FootyGo", "assets", "portraits"), nil
}

func sanitizeID(id string) string {
	res := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
