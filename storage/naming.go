package storage

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
)

// DigestLen is the number of hex characters of the URL digest used in
// artifact file names.
const DigestLen = 10

// Artifact file extensions.
const (
	ImageExt = ".png"
	DataExt  = ".json"
)

// Digest returns the truncated hex MD5 of url. The same URL always yields
// the same digest; distinct URLs sharing a digest share artifacts.
func Digest(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:DigestLen]
}

// Paths returns the image and data artifact paths for url:
// {outputDir}/{imagePrefix}{digest}.png and {outputDir}/{dataPrefix}{digest}.json.
func Paths(url, outputDir, imagePrefix, dataPrefix string) (imagePath, dataPath string) {
	d := Digest(url)
	imagePath = filepath.Join(outputDir, imagePrefix+d+ImageExt)
	dataPath = filepath.Join(outputDir, dataPrefix+d+DataExt)
	return imagePath, dataPath
}
