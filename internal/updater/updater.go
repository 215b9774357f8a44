package updater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

const (
	// DevVersion is the version string of builds made without ldflags.
	DevVersion = "dev"

	// DefaultHTTPTimeout bounds a single request, body included, made by the
	// default client.
	DefaultHTTPTimeout = 5 * time.Minute
)

var (
	// ErrReleaseNotFound is returned when the requested release does not exist.
	ErrReleaseNotFound = errors.New("release not found")
	// ErrRateLimited is returned when the GitHub API refuses the request.
	ErrRateLimited = errors.New("GitHub API rate limit exceeded, set GITHUB_TOKEN for higher limits")
)

// Release represents a GitHub release.
type Release struct {
	Version   string    `json:"tag_name"`
	Assets    []Asset   `json:"assets"`
	Published time.Time `json:"published_at"`
	HTMLURL   string    `json:"html_url"`
}

// Asset represents a downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Updater checks for and installs new releases of the running binary.
type Updater struct {
	currentVersion string
	httpClient     *http.Client
	apiBase        string
	repo           string
	mirror         string
	configDir      string
	executable     string
	log            logrus.FieldLogger

	timeout      time.Duration
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) { u.httpClient = c }
}

// WithMirror sets a mirror URL for downloading release assets.
func WithMirror(mirror string) Option {
	return func(u *Updater) { u.mirror = mirror }
}

// WithAPIBase points release lookups at a GitHub-compatible API.
func WithAPIBase(base string) Option {
	return func(u *Updater) { u.apiBase = base }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(u *Updater) { u.timeout = d }
}

// WithRetryWait sets the bounds of the default client's wait between retries.
func WithRetryWait(waitMin, waitMax time.Duration) Option {
	return func(u *Updater) {
		u.retryWaitMin = waitMin
		u.retryWaitMax = waitMax
	}
}

// WithConfigDir sets where the version cache is kept. Empty disables caching.
func WithConfigDir(dir string) Option {
	return func(u *Updater) { u.configDir = dir }
}

// WithExecutable sets the binary that Update replaces. Defaults to
// os.Executable().
func WithExecutable(path string) Option {
	return func(u *Updater) { u.executable = path }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(u *Updater) { u.log = l }
}

// New creates an Updater for currentVersion. Without WithHTTPClient it uses a
// retrying client so a single dropped connection does not fail a cycle. Once
// retries run out the last response is returned as is, so rate limiting and
// server errors surface as ErrRateLimited or a status error.
func New(currentVersion, repo string, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		apiBase:        githubAPIBase,
		repo:           repo,
		log:            logrus.StandardLogger(),
		timeout:        DefaultHTTPTimeout,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.httpClient == nil {
		u.httpClient = u.retryingClient()
	}
	return u
}

func (u *Updater) retryingClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = leveledLogger{log: u.log}
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = u.timeout
	if u.retryWaitMin > 0 {
		rc.RetryWaitMin = u.retryWaitMin
	}
	if u.retryWaitMax > 0 {
		rc.RetryWaitMax = u.retryWaitMax
	}
	return rc.StandardClient()
}

// retryPolicy retries what retryablehttp's default policy retries, but never
// turns a response into an error: the caller checks the status code.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	retry, checkErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	if err == nil && resp != nil {
		return retry, nil
	}
	return retry, checkErr
}

// CurrentVersion returns the version the updater believes is installed. It
// moves forward after a successful install.
func (u *Updater) CurrentVersion() string {
	return u.currentVersion
}

// Update runs one update cycle: look up the latest release and install it if
// it is newer than the current version. Development builds only check.
func (u *Updater) Update(ctx context.Context) error {
	release, err := u.CheckLatestVersion(ctx)
	if err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}

	log := u.log.WithFields(logrus.Fields{
		"current": u.currentVersion,
		"latest":  release.Version,
	})

	available, err := IsUpdateAvailable(u.currentVersion, release.Version)
	if err != nil {
		if u.currentVersion == DevVersion {
			log.Info("development build, skipping install")
			return nil
		}
		return fmt.Errorf("comparing versions: %w", err)
	}
	u.RecordCheck(release.Version, available)

	if !available {
		log.Debug("already on latest version")
		return nil
	}

	log.Info("installing update")
	return u.Install(ctx, release)
}

// Install downloads, verifies and installs release over the executable.
func (u *Updater) Install(ctx context.Context, release *Release) error {
	tmpDir, err := os.MkdirTemp("", "divineos-update-*")
	if err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath, err := u.DownloadBinary(ctx, release, tmpDir)
	if err != nil {
		return fmt.Errorf("downloading binary: %w", err)
	}
	if err := u.VerifyChecksum(ctx, release, archivePath); err != nil {
		return fmt.Errorf("checksum verification failed: %w", err)
	}
	binPath, err := ExtractBinary(archivePath, tmpDir)
	if err != nil {
		return fmt.Errorf("extracting binary: %w", err)
	}

	target := u.executable
	if target == "" {
		target, err = os.Executable()
		if err != nil {
			return fmt.Errorf("finding current binary: %w", err)
		}
	}
	if err := ReplaceBinary(ctx, binPath, target, release.Version); err != nil {
		return err
	}

	u.currentVersion = release.Version
	u.RecordCheck(release.Version, false)
	u.log.WithField("version", release.Version).Info("update installed")
	return nil
}

// CachedCheck returns the last recorded check when it was made for the current
// version less than DefaultCacheMaxAge ago, or nil.
func (u *Updater) CachedCheck() *VersionCache {
	if u.configDir == "" {
		return nil
	}
	cache, err := LoadCache(u.configDir)
	if err != nil {
		u.log.WithError(err).Debug("loading version cache")
		return nil
	}
	if IsCacheStale(cache, DefaultCacheMaxAge) || cache.CurrentVersion != u.currentVersion {
		return nil
	}
	return cache
}

// RecordCheck records a check result for CachedCheck. Failures are only logged.
func (u *Updater) RecordCheck(latest string, available bool) {
	if u.configDir == "" {
		return
	}
	cache := &VersionCache{
		LatestVersion:   latest,
		CurrentVersion:  u.currentVersion,
		CheckedAt:       time.Now(),
		UpdateAvailable: available,
	}
	if err := SaveCache(u.configDir, cache); err != nil {
		u.log.WithError(err).Debug("saving version cache")
	}
}
