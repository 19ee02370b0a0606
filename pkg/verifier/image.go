package verifier

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/glaslos/ssdeep"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomedium"
)

// Image is an encoded PNG screenshot.
type Image []byte

// Save writes the image to path, creating the parent directory and
// replacing any existing file.
func (img Image) Save(path string) error {
	if len(img) == 0 {
		return &FilesystemError{Op: "write", Path: path, Err: errors.New("empty image")}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return &FilesystemError{Op: "create", Path: path, Err: err}
	}
	defer file.Close()

	if _, err := file.Write(img); err != nil {
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}

	if err := file.Close(); err != nil {
		return &FilesystemError{Op: "close", Path: path, Err: err}
	}

	return nil
}

// SimilarityTo returns the ssdeep similarity score (0-100) between img and
// other. Inputs too small to hash return an error.
func (img Image) SimilarityTo(other []byte) (int, error) {
	hash1, err := ssdeep.FuzzyBytes(img)
	if err != nil {
		return -1, fmt.Errorf("failed to hash image: %w", err)
	}

	hash2, err := ssdeep.FuzzyBytes(other)
	if err != nil {
		return -1, fmt.Errorf("failed to hash previous image: %w", err)
	}

	score, err := ssdeep.Distance(hash1, hash2)
	if err != nil {
		return -1, fmt.Errorf("failed to compare hashes: %w", err)
	}

	return score, nil
}

// origin returns scheme://host without default ports.
func origin(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	host := parsedURL.Host
	if strings.Contains(host, ":") {
		hostWithoutPort, port, _ := strings.Cut(host, ":")
		if (parsedURL.Scheme == "http" && port == "80") || (parsedURL.Scheme == "https" && port == "443") {
			host = hostWithoutPort
		}
	}

	return parsedURL.Scheme + "://" + host, nil
}

// footerHeight is the band Imprint adds below the screenshot.
const footerHeight = 40

// Imprint returns a copy of the screenshot with the origin of rawURL written
// in a band below it, so the artifact names the app it verified.
func (img Image) Imprint(rawURL string) (Image, error) {
	label, err := origin(rawURL)
	if err != nil {
		return nil, err
	}

	decoded, err := png.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	face, err := loadFont()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, withFooter(decoded, label, face)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// withFooter draws src on a white canvas footerHeight pixels taller, with a
// separator line and label centred in the extra space.
func withFooter(src image.Image, label string, face font.Face) image.Image {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	dc := gg.NewContext(w, h+footerHeight)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(src, 0, 0)

	dc.SetColor(color.Black)
	dc.SetLineWidth(1)
	dc.DrawLine(0, float64(h)+0.5, float64(w), float64(h)+0.5)
	dc.Stroke()

	dc.SetFontFace(face)
	dc.DrawStringAnchored(label, float64(w)/2, float64(h)+footerHeight/2, 0.5, 0.5)

	return dc.Image()
}

var (
	fontOnce sync.Once
	fontFace font.Face
	fontErr  error
)

func loadFont() (font.Face, error) {
	fontOnce.Do(func() {
		f, err := truetype.Parse(gomedium.TTF)
		if err != nil {
			fontErr = fmt.Errorf("failed to parse font: %w", err)
			return
		}
		fontFace = truetype.NewFace(f, &truetype.Options{Size: 16})
	})
	return fontFace, fontErr
}
