package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
)

const imageCacheMaxAge = "public, max-age=2592000" // 30 days

// ImageHandler proxies poster and backdrop images, downscaling and
// re-encoding them as JPEG, with an on-disk cache keyed by URL plus
// target width and quality.
type ImageHandler struct {
	cacheDir   string
	httpc      *http.Client
	mu         sync.Mutex
	inProgress map[string]chan struct{} // dedupes concurrent fetches of the same key
}

func NewImageHandler(cacheDir string) *ImageHandler {
	imgDir := filepath.Join(cacheDir, "images")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		log.Printf("[images] could not create cache dir %s: %v", imgDir, err)
	}

	return &ImageHandler{
		cacheDir:   imgDir,
		httpc:      &http.Client{Timeout: 30 * time.Second},
		inProgress: make(map[string]chan struct{}),
	}
}

// Proxy handles GET /api/images/proxy?url=&w=&q=.
func (h *ImageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	sourceURL := r.URL.Query().Get("url")
	if sourceURL == "" {
		writeJSONError(w, "url parameter required", http.StatusBadRequest)
		return
	}
	if !strings.Contains(sourceURL, "image.tmdb.org") {
		writeJSONError(w, "url not allowed", http.StatusForbidden)
		return
	}

	targetWidth := 0
	if s := r.URL.Query().Get("w"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 2000 {
			targetWidth = n
		}
	}
	quality := 80
	if s := r.URL.Query().Get("q"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 100 {
			quality = n
		}
	}

	key := cacheKey(sourceURL, targetWidth, quality)
	cachePath := filepath.Join(h.cacheDir, key+".jpg")

	if data, err := os.ReadFile(cachePath); err == nil {
		serveJPEG(w, data, "HIT")
		return
	}

	// If another request is already fetching this key, wait for it
	// instead of hitting the upstream twice.
	h.mu.Lock()
	if ch, exists := h.inProgress[key]; exists {
		h.mu.Unlock()
		<-ch
		if data, err := os.ReadFile(cachePath); err == nil {
			serveJPEG(w, data, "HIT")
			return
		}
		writeJSONError(w, "failed to load image", http.StatusInternalServerError)
		return
	}
	ch := make(chan struct{})
	h.inProgress[key] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.inProgress, key)
		close(ch)
		h.mu.Unlock()
	}()

	raw, err := h.fetch(sourceURL)
	if err != nil {
		log.Printf("[images] fetch %s: %v", sourceURL, err)
		writeJSONError(w, "failed to fetch image", http.StatusBadGateway)
		return
	}

	// Sniff before decoding so an upstream error page never reaches
	// the image decoder.
	if mt := mimetype.Detect(raw); !strings.HasPrefix(mt.String(), "image/") {
		log.Printf("[images] upstream returned %s for %s", mt.String(), sourceURL)
		writeJSONError(w, "upstream did not return an image", http.StatusBadGateway)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		log.Printf("[images] decode %s: %v", sourceURL, err)
		writeJSONError(w, "failed to decode image", http.StatusInternalServerError)
		return
	}

	img = downscale(img, targetWidth)

	data, err := h.writeCache(cachePath, img, quality)
	if err != nil {
		// Serve uncached rather than failing the request.
		log.Printf("[images] cache write %s: %v", cachePath, err)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("X-Cache", "MISS-NOCACHE")
		jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
		return
	}

	serveJPEG(w, data, "MISS")
}

func (h *ImageHandler) fetch(url string) ([]byte, error) {
	resp, err := h.httpc.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// writeCache encodes img to cachePath via a temp file and returns the
// encoded bytes.
func (h *ImageHandler) writeCache(cachePath string, img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}

	tmpPath := cachePath + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, cachePath); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	return buf.Bytes(), nil
}

// ClearCache removes every cached image. Wired to the settings surface
// so a cache directory change does not strand stale files.
func (h *ImageHandler) ClearCache() error {
	entries, err := os.ReadDir(h.cacheDir)
	if err != nil {
		return err
	}

	var failed int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jpg") {
			continue
		}
		if err := os.Remove(filepath.Join(h.cacheDir, entry.Name())); err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to remove %d cached images", failed)
	}
	return nil
}

func serveJPEG(w http.ResponseWriter, data []byte, cacheState string) {
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", imageCacheMaxAge)
	w.Header().Set("X-Cache", cacheState)
	w.Write(data)
}

// downscale resizes img to targetWidth preserving aspect ratio. Images
// already at or below the target width pass through untouched.
func downscale(img image.Image, targetWidth int) image.Image {
	if targetWidth <= 0 {
		return img
	}
	bounds := img.Bounds()
	if targetWidth >= bounds.Dx() {
		return img
	}

	ratio := float64(targetWidth) / float64(bounds.Dx())
	targetHeight := int(float64(bounds.Dy()) * ratio)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func cacheKey(url string, width, quality int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", url, width, quality)))
	return hex.EncodeToString(sum[:16])
}
