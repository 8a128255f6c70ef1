package plugin

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// DownloadPlugin fetches a plugin release archive from GitHub, verifies its
// checksum and extracts the binary into destDir as "plugin".
func DownloadPlugin(source, version, destDir string) error {
	owner, repo, err := parseGitHubSource(source)
	if err != nil {
		return err
	}

	// Release tags carry the v prefix even when the config omits it
	tag := version
	if !strings.HasPrefix(tag, "v") {
		tag = "v" + tag
	}

	archiveName := fmt.Sprintf("%s_%s_%s.tar.gz", repo, runtime.GOOS, runtime.GOARCH)
	base := fmt.Sprintf("https://github.com/%s/%s/releases/download/%s", owner, repo, tag)

	expectedHash, err := fetchChecksum(base+"/checksums.txt", archiveName)
	if err != nil {
		return fmt.Errorf("failed to fetch checksum: %w", err)
	}

	tmpFile, err := downloadToTemp(base + "/" + archiveName)
	if err != nil {
		return fmt.Errorf("failed to download archive: %w", err)
	}
	defer os.Remove(tmpFile)

	if err := verifyChecksum(tmpFile, expectedHash); err != nil {
		return fmt.Errorf("checksum verification failed: %w", err)
	}

	if err := extractPluginBinary(tmpFile, destDir, repo); err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}

	return nil
}

// parseGitHubSource extracts owner/repo from "github.com/owner/repo"
func parseGitHubSource(source string) (owner, repo string, err error) {
	source = strings.TrimPrefix(source, "https://")
	source = strings.TrimPrefix(source, "github.com/")
	parts := strings.Split(source, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid GitHub source: %s", source)
	}
	return parts[0], parts[1], nil
}

func fetchURL(url string) (io.ReadCloser, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}

// fetchChecksum downloads checksums.txt and returns the hash for the given file
func fetchChecksum(url, filename string) (string, error) {
	body, err := fetchURL(url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	// checksums.txt format: "hash  filename" per line
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.Fields(line)
		if len(parts) == 2 && parts[1] == filename {
			return parts[0], nil
		}
	}
	return "", fmt.Errorf("checksum not found for %s", filename)
}

// downloadToTemp downloads the URL to a temp file and returns its path
func downloadToTemp(url string) (string, error) {
	body, err := fetchURL(url)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmpFile, err := os.CreateTemp("", "plugin-*.tar.gz")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	_, err = io.Copy(tmpFile, body)
	return tmpFile.Name(), err
}

// verifyChecksum checks the file against the expected SHA256 hash
func verifyChecksum(filePath, expected string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	actual := fmt.Sprintf("%x", h.Sum(nil))
	if actual != expected {
		return fmt.Errorf("hash mismatch: got %s, want %s", actual, expected)
	}
	return nil
}

// extractPluginBinary pulls the plugin executable out of a .tar.gz archive.
// Accepts an entry named "plugin" or one named after the repo (goreleaser
// archives use the project name).
func extractPluginBinary(archivePath, destDir, repo string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Base(header.Name)
		if name != "plugin" && name != repo {
			continue
		}

		if err := os.MkdirAll(destDir, 0755); err != nil {
			return err
		}
		outPath := filepath.Join(destDir, "plugin")
		outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
		if err != nil {
			return err
		}
		if _, err := io.Copy(outFile, tr); err != nil {
			outFile.Close()
			return err
		}
		return outFile.Close()
	}
	return fmt.Errorf("plugin binary not found in archive")
}
