package ui

import (
	"fmt"
	"mime"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"climatrend/internal"
)

// maxPortAttempts is the default bound on the chart server port scan
const maxPortAttempts = 10

// plotlyAssetPattern matches relative plotly/require asset references in
// exported chart pages; they are rewritten to the CDN so a chart file opened
// from any host still renders
var plotlyAssetPattern = regexp.MustCompile(`(src|href)="(plotly|require)`)

// ChartServer serves pre-rendered chart files from a directory. It binds the
// first free port at or above the configured base so several instances can
// run side by side.
type ChartServer struct {
	rootDir      string
	basePort     int
	portAttempts int
	logger       *internal.Logger
}

// NewChartServer creates a chart file server rooted at rootDir
func NewChartServer(rootDir string, basePort int) *ChartServer {
	return &ChartServer{
		rootDir:      rootDir,
		basePort:     basePort,
		portAttempts: maxPortAttempts,
		logger:       internal.DefaultLogger.WithTag("Charts"),
	}
}

// WithPortAttempts overrides how many consecutive ports the scan probes
func (c *ChartServer) WithPortAttempts(attempts int) *ChartServer {
	if attempts > 0 {
		c.portAttempts = attempts
	}
	return c
}

// Start scans for a free port, logs the served chart URLs and blocks serving
func (c *ChartServer) Start() error {
	if err := os.MkdirAll(c.rootDir, 0o755); err != nil {
		return fmt.Errorf("failed to create chart directory %s: %w", c.rootDir, err)
	}

	listener, port, err := listenFirstFree(c.basePort, c.portAttempts)
	if err != nil {
		return err
	}

	c.logger.Info("chart server serving %s on http://127.0.0.1:%d", c.rootDir, port)
	for _, name := range c.availableCharts() {
		c.logger.Info("  - http://127.0.0.1:%d/%s", port, name)
	}

	return http.Serve(listener, c)
}

// ServeHTTP serves one chart file. HTML responses get their plotly/require
// asset references rewritten to the CDN; every response carries no-cache
// headers so a re-exported chart is never served stale.
func (c *ChartServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filePath, ok := c.resolve(r.URL.Path)
	if !ok {
		c.sendNotFound(w)
		return
	}

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		c.sendNotFound(w)
		return
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Internal server error: %v", err), http.StatusInternalServerError)
		return
	}

	if strings.HasSuffix(filePath, ".html") {
		content = plotlyAssetPattern.ReplaceAll(content, []byte(`$1="https://cdn.plot.ly/$2`))
	}

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(content)
}

// resolve maps a request path to a file under the chart root, rejecting
// anything that would escape it
func (c *ChartServer) resolve(urlPath string) (string, bool) {
	cleaned := path.Clean("/" + urlPath)
	rel := strings.TrimPrefix(cleaned, "/")
	if rel == "" {
		return "", false
	}

	full := filepath.Join(c.rootDir, filepath.FromSlash(rel))
	rootAbs, err := filepath.Abs(c.rootDir)
	if err != nil {
		return "", false
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", false
	}
	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

// sendNotFound lists the chart pages that do exist
func (c *ChartServer) sendNotFound(w http.ResponseWriter) {
	message := fmt.Sprintf("File not found. Available files: %s",
		strings.Join(c.availableCharts(), ", "))
	http.Error(w, message, http.StatusNotFound)
}

// availableCharts lists the .html files in the chart root, sorted by name
func (c *ChartServer) availableCharts() []string {
	entries, err := os.ReadDir(c.rootDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			names = append(names, entry.Name())
		}
	}
	return names
}

// listenFirstFree binds the first free TCP port in [basePort, basePort+maxAttempts)
func listenFirstFree(basePort, maxAttempts int) (net.Listener, int, error) {
	for port := basePort; port < basePort+maxAttempts; port++ {
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		return listener, port, nil
	}
	return nil, 0, fmt.Errorf("could not find an available port after %d attempts from %d", maxAttempts, basePort)
}
