// Package ana downloads conventional station series from the ANA Hidroweb
// service.
package ana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/httpclient"
	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/storage"
)

// DefaultBaseURL is the public Hidroweb documents endpoint. The service is
// not a stable contract and may move; override it through configuration.
const DefaultBaseURL = "http://www.snirh.gov.br/hidroweb/rest/api/documento/convencionais"

// DefaultDownloadDir is where archives are written.
const DefaultDownloadDir = "data/ana/raw"

// FileType selects the format of the series inside the archive.
type FileType int

const (
	FileTypeMDB FileType = 1
	FileTypeTXT FileType = 2
	FileTypeCSV FileType = 3
)

// StationSeparator joins station codes in a batched request.
const StationSeparator = ";"

// ErrInvalidStationCode is returned for codes that are not non-negative integers.
var ErrInvalidStationCode = errors.New("invalid station code")

// Config holds the endpoint and output settings.
type Config struct {
	BaseURL     string
	FileType    FileType
	DownloadDir string
	// Extract expands the archive next to it after download.
	Extract bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		FileType:    FileTypeCSV,
		DownloadDir: DefaultDownloadDir,
	}
}

// Client requests station archives. It knows nothing about the CLI; it
// only turns station codes into files on disk.
type Client struct {
	http   httpclient.Fetcher
	cfg    Config
	logger *slog.Logger
}

// NewClient builds a client. Zero fields of cfg take their defaults.
func NewClient(fetcher httpclient.Fetcher, cfg Config, logger *slog.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.FileType == 0 {
		cfg.FileType = def.FileType
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = def.DownloadDir
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: fetcher, cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// IntCodes formats integer station codes.
func IntCodes(codes []int) []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		out = append(out, strconv.Itoa(code))
	}
	return out
}

// RequestParams builds the query for a batch of station codes. Codes are
// written in canonical decimal form, so "0111" and "111" name the same
// station.
func (c *Client) RequestParams(codes []string) (httpclient.Params, string, error) {
	canonical := make([]string, 0, len(codes))
	for _, code := range codes {
		n, err := strconv.ParseUint(code, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidStationCode, code)
		}
		canonical = append(canonical, strconv.FormatUint(n, 10))
	}

	joined := strings.Join(canonical, StationSeparator)
	params := httpclient.Params{
		"tipo":       strconv.Itoa(int(c.cfg.FileType)),
		"documentos": joined,
	}
	return params, joined, nil
}

// ArchiveName is the file name used for a batch.
func ArchiveName(joined string) string {
	return fmt.Sprintf("ana_%s.zip", joined)
}

// DownloadStationFiles fetches one archive covering every code and returns
// the path of the saved file. The endpoint answers batched requests with a
// single combined zip, so exactly one request is made. Fetch errors are
// returned unchanged.
func (c *Client) DownloadStationFiles(ctx context.Context, codes []string) ([]string, error) {
	params, joined, err := c.RequestParams(codes)
	if err != nil {
		return nil, err
	}

	c.logger.Info("requesting station download", "stations", joined)
	c.logger.Debug("calling ANA", "base_url", c.cfg.BaseURL, "params", params)

	resp, err := c.http.Get(ctx, c.cfg.BaseURL, params, 0)
	if err != nil {
		return nil, err
	}

	zipPath, err := storage.SaveZip(resp.Content, c.cfg.DownloadDir, ArchiveName(joined), storage.ZipOptions{
		Extract: c.cfg.Extract,
	})
	if err != nil {
		return nil, fmt.Errorf("save archive: %w", err)
	}

	c.logger.Info("download finished", "path", zipPath)
	return []string{zipPath}, nil
}
