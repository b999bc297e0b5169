// utils/file_utils.go
package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	uploadBaseDir = "uploads"
	// Proof images larger than this edge are downscaled before storage.
	maxProofEdge = 1600
	maxFileSize  = 10 * 1024 * 1024
)

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// cleanFilename removes any potentially dangerous characters from the filename
func cleanFilename(filename string) string {
	filename = filepath.Base(filename)
	reg := regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	return reg.ReplaceAllString(filename, "")
}

// InitializeStorage creates necessary directories for file storage
func InitializeStorage() error {
	for _, dir := range []string{uploadBaseDir, filepath.Join(uploadBaseDir, "transfers"), filepath.Join(uploadBaseDir, "products")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %v", dir, err)
		}
	}
	return nil
}

// SaveProofImage stores a bank-transfer proof upload. The image is re-decoded
// and re-encoded (stripping anything that is not valid image data) and
// downscaled when oversized, then written under uploads/transfers.
func SaveProofImage(file *multipart.FileHeader) (string, error) {
	if file.Size > maxFileSize {
		return "", fmt.Errorf("file too large: maximum size is %d bytes", int64(maxFileSize))
	}

	ext := strings.ToLower(filepath.Ext(cleanFilename(file.Filename)))
	if !allowedImageExts[ext] {
		return "", fmt.Errorf("unsupported image format, allowed: jpg, jpeg, png, gif")
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxProofEdge || bounds.Dy() > maxProofEdge {
		img = imaging.Fit(img, maxProofEdge, maxProofEdge, imaging.Lanczos)
	}

	filename := "transfer_" + primitive.NewObjectID().Hex() + ".png"
	outPath := filepath.Join(uploadBaseDir, "transfers", filename)
	if err := imaging.Save(img, outPath); err != nil {
		return "", fmt.Errorf("failed to save proof image: %w", err)
	}

	return strings.ReplaceAll(outPath, "\\", "/"), nil
}

// SaveUploadedFile saves an uploaded file without transformation.
func SaveUploadedFile(file *multipart.FileHeader, directory string) (string, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	ext := filepath.Ext(cleanFilename(file.Filename))
	filename := primitive.NewObjectID().Hex() + ext
	outPath := filepath.Join(directory, filename)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to copy file contents: %w", err)
	}

	return outPath, nil
}
