package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultCacheEntries bounds how many decoded images an ImageCache keeps.
const DefaultCacheEntries = 8

// ImageCache provides thread-safe caching of decoded screenshots.
//
// The MCP tools reference captures by path and frequently run several
// operations (region detection, candidate listing, OCR) on the same file, so
// decoded images are kept keyed by their path. An entry is only reused while
// the file's modification time and size are unchanged; capture tools often
// overwrite the same path. The oldest entry is dropped once the cache holds
// its maximum number of images.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/tmp/capture.png")
//	if err != nil {
//	    return err
//	}
//	cache.Evict("/tmp/capture.png") // Optional: free memory
type ImageCache struct {
	mu         sync.RWMutex
	images     map[string]cacheEntry
	order      []string
	maxEntries int
}

type cacheEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
}

func (e cacheEntry) matches(fi os.FileInfo) bool {
	return e.size == fi.Size() && e.modTime.Equal(fi.ModTime())
}

// NewImageCache creates and initializes a new empty image cache holding up
// to DefaultCacheEntries images.
func NewImageCache() *ImageCache {
	return NewImageCacheSize(DefaultCacheEntries)
}

// NewImageCacheSize creates a cache holding up to n images (at least one).
func NewImageCacheSize(n int) *ImageCache {
	if n < 1 {
		n = 1
	}
	return &ImageCache{
		images:     make(map[string]cacheEntry),
		maxEntries: n,
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. EXIF orientation
// is applied for JPEG files so that photos of screens come out upright.
func (c *ImageCache) Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat image: %w", err)
	}

	c.mu.RLock()
	if e, ok := c.images[path]; ok && e.matches(fi) {
		c.mu.RUnlock()
		return e.img, nil
	}
	c.mu.RUnlock()

	img, err := Decode(f)
	if err != nil {
		c.Evict(path)
		return nil, err
	}

	c.mu.Lock()
	c.store(path, cacheEntry{img: img, modTime: fi.ModTime(), size: fi.Size()})
	c.mu.Unlock()

	return img, nil
}

// store inserts or replaces an entry. c.mu must be held for writing.
func (c *ImageCache) store(path string, e cacheEntry) {
	if _, ok := c.images[path]; ok {
		c.removeOrder(path)
	}
	for len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.images, oldest)
	}
	c.images[path] = e
	c.order = append(c.order, path)
}

func (c *ImageCache) removeOrder(path string) {
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cacheEntry)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	if _, ok := c.images[path]; ok {
		delete(c.images, path)
		c.removeOrder(path)
	}
	c.mu.Unlock()
}

// Len reports how many images are cached.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Decode reads an image from r and validates that it has pixels.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := Validate(img); err != nil {
		return nil, err
	}
	return img, nil
}

// DecodeBytes decodes an in-memory encoded image.
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to decode image: empty buffer")
	}
	return Decode(bytes.NewReader(data))
}

// Validate reports whether img can be processed at all.
func Validate(img image.Image) error {
	if img == nil {
		return fmt.Errorf("image is nil")
	}
	if img.Bounds().Empty() {
		return fmt.Errorf("image has no pixels (%dx%d)", img.Bounds().Dx(), img.Bounds().Dy())
	}
	return nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// Dimensions returns the pixel size of img.
func Dimensions(img image.Image) DimensionsResult {
	b := img.Bounds()
	return DimensionsResult{Width: b.Dx(), Height: b.Dy()}
}
