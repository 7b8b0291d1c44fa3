package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

// ProgressFunc is a callback for download progress. total is -1 when the
// server did not send a Content-Length.
type ProgressFunc func(downloaded, total int64)

// StatusError is returned for non-200 responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d", e.URL, e.StatusCode)
}

// Downloader fetches release assets over HTTP.
type Downloader struct {
	Client *http.Client
	// Retries is the number of attempts for transport errors and 5xx responses.
	Retries int
	// Backoff is multiplied by the attempt number between attempts.
	Backoff  time.Duration
	Progress ProgressFunc
}

// New creates a Downloader with three attempts and a one second backoff step.
func New(client *http.Client) *Downloader {
	return &Downloader{
		Client:  client,
		Retries: 3,
		Backoff: time.Second,
	}
}

// Download fetches url into destPath. The file only appears at destPath
// once it has been received completely.
func (d *Downloader) Download(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create destination directory")
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)
	defer tmpFile.Close()

	attempts := d.Retries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.WithError(lastErr).Debugf("retrying download (attempt %d/%d)", attempt+1, attempts)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * d.Backoff):
			}
		}

		retry, err := d.attempt(ctx, url, tmpFile)
		if err == nil {
			if err := tmpFile.Close(); err != nil {
				return errors.Wrap(err, "failed to close temporary file")
			}
			if err := os.Rename(tmpPath, destPath); err != nil {
				return errors.Wrap(err, "failed to move downloaded file")
			}
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return errors.Wrapf(lastErr, "download failed after %d attempts", attempts)
}

// attempt performs one GET into f. It reports whether a failure is worth
// retrying.
func (d *Downloader) attempt(ctx context.Context, url string, f *os.File) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to create request")
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, errors.Wrap(err, "failed to download file")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Client errors will not fix themselves.
		return resp.StatusCode >= 500, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false, errors.Wrap(err, "failed to seek to beginning of file")
	}
	if err := f.Truncate(0); err != nil {
		return false, errors.Wrap(err, "failed to truncate file")
	}

	var src io.Reader = resp.Body
	if d.Progress != nil {
		src = &progressReader{Reader: resp.Body, Total: resp.ContentLength, Progress: d.Progress}
	}
	written, err := io.Copy(f, src)
	if err != nil {
		return true, errors.Wrap(err, "failed to write file")
	}
	if written == 0 {
		return true, errors.New("no content downloaded")
	}
	return false, nil
}

// Exists reports whether url answers a HEAD request with 200.
func (d *Downloader) Exists(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to validate URL")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}

// progressReader wraps an io.Reader to report progress
type progressReader struct {
	Reader   io.Reader
	Total    int64
	Current  int64
	Progress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.Current += int64(n)
		pr.Progress(pr.Current, pr.Total)
	}
	return n, err
}
