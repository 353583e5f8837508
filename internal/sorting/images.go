package sorting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/neuroinformatics-unit/spikewrap/internal/ctxlog"
)

// DefaultImageBaseURL hosts the prebuilt sorter container images.
const DefaultImageBaseURL = "https://images.neuroinformatics.dev/sorters"

// sorterImages maps the sorters that run inside a container image to the
// image file name. Sorters not listed here run on the host directly.
var sorterImages = map[string]string{
	"kilosort2":     "kilosort2-compiled-base.sif",
	"kilosort2_5":   "kilosort2_5-compiled-base.sif",
	"kilosort3":     "kilosort3-compiled-base.sif",
	"mountainsort5": "mountainsort5-base.sif",
	"spykingcircus": "spykingcircus-base.sif",
	"tridesclous":   "tridesclous-base.sif",
}

// NeedsImage reports whether the named sorter runs from a container image.
func NeedsImage(sorter string) bool {
	_, ok := sorterImages[sorter]
	return ok
}

// SupportedImageSorters lists the sorters with a known container image.
func SupportedImageSorters() []string {
	names := make([]string, 0, len(sorterImages))
	for name := range sorterImages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnsureImage returns the local path of the sorter's container image,
// downloading it into cacheDir on first use. Partial downloads are written
// to a temp file and renamed only on success.
func EnsureImage(ctx context.Context, cacheDir, sorter string) (string, error) {
	fileName, ok := sorterImages[sorter]
	if !ok {
		return "", fmt.Errorf("no container image known for sorter %q: images exist for %v",
			sorter, SupportedImageSorters())
	}

	localPath := filepath.Join(cacheDir, fileName)
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	url := DefaultImageBaseURL + "/" + fileName
	logger := ctxlog.FromContext(ctx)
	logger.Info("Downloading sorter image.", "sorter", sorter, "url", url, "to", localPath)

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download sorter image %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download sorter image %s: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(cacheDir, fileName+".partial-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write sorter image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return "", err
	}
	return localPath, nil
}
