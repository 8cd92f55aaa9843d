// MODUL: fetch
// ZWECK: Laedt Modelle, Netzbeschreibungen und Ark-Frames ueber HTTP(S) oder vom Dateisystem
// INPUT: URL oder Pfad
// OUTPUT: Bytes
// NEBENEFFEKTE: Netzwerk- und Dateizugriffe, Progress-Callbacks
// ABHAENGIGKEITEN: envconfig (Timeout)
// HINWEISE: Hoechstens eine verdraengbare Anfrage gleichzeitig (Begin); Get ist nie verdraengbar

package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"

	"github.com/arkcheck/arkcheck/envconfig"
)

const UserAgent = "arkcheck/1.0"

var (
	ErrFetchFailure = errors.New("fetch: retrieval failed")
	ErrSuperseded   = errors.New("fetch: superseded by a newer request")
)

// StatusError meldet einen fehlgeschlagenen Abruf. StatusCode ist 0 wenn
// keine HTTP-Antwort vorlag (Netzwerk- oder Dateifehler).
type StatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch: failed to load %s status: %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch: failed to load %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch: failed to load %s", e.URL)
	}
}

func (e *StatusError) Is(target error) bool { return target == ErrFetchFailure }
func (e *StatusError) Unwrap() error        { return e.Err }

// ProgressCallback wird waehrend eines Downloads aufgerufen; total ist -1
// wenn die Groesse unbekannt ist
type ProgressCallback func(downloaded, total int64)

// Option konfiguriert einen Fetcher
type Option func(*Fetcher)

// WithHTTPClient setzt einen eigenen HTTP-Client
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithProgress setzt den Progress-Callback fuer verdraengbare Anfragen
func WithProgress(fn ProgressCallback) Option {
	return func(f *Fetcher) { f.progress = fn }
}

// WithUserAgent setzt einen eigenen User-Agent
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

// Fetcher haelt das Handle der aktuell laufenden verdraengbaren Anfrage
type Fetcher struct {
	client    *http.Client
	userAgent string
	progress  ProgressCallback

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: envconfig.FetchTimeout()},
		userAgent: UserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetProgress ersetzt den Progress-Callback
func (f *Fetcher) SetProgress(fn ProgressCallback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = fn
}

// Request ist eine verdraengbare Anfrage. Alle Abrufe ueber denselben
// Request teilen sich einen Context; ein neueres Begin bricht ihn ab.
type Request struct {
	f      *Fetcher
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
}

// Begin bricht die laufende Anfrage ab und registriert eine neue
func (f *Fetcher) Begin(ctx context.Context) *Request {
	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	f.gen++
	f.cancel = cancel
	return &Request{f: f, ctx: ctx, cancel: cancel, gen: f.gen}
}

// Superseded meldet ob seit Begin eine neuere Anfrage gestartet wurde
func (r *Request) Superseded() bool {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.gen != r.gen
}

// Done gibt das Handle frei. Mehrfacher Aufruf ist erlaubt.
func (r *Request) Done() {
	r.f.mu.Lock()
	if r.f.gen == r.gen {
		r.f.cancel = nil
	}
	r.f.mu.Unlock()
	r.cancel()
}

// Fetch laedt source im Context der Anfrage. Wurde die Anfrage verdraengt,
// ist das Ergebnis immer ErrSuperseded.
func (r *Request) Fetch(source string) ([]byte, error) {
	if r.Superseded() {
		return nil, ErrSuperseded
	}

	r.f.mu.Lock()
	progress := r.f.progress
	r.f.mu.Unlock()

	data, err := r.f.read(r.ctx, source, progress)
	if r.Superseded() {
		return nil, ErrSuperseded
	}
	return data, err
}

// Get laedt source ohne das verdraengbare Handle zu beruehren
func (f *Fetcher) Get(ctx context.Context, source string) ([]byte, error) {
	return f.read(ctx, source, nil)
}

func (f *Fetcher) read(ctx context.Context, source string, progress ProgressCallback) ([]byte, error) {
	u, err := url.Parse(source)
	if err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return f.readHTTP(ctx, source, progress)
	}

	path := source
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	return readFile(ctx, path, progress)
}

func (f *Fetcher) readHTTP(ctx context.Context, source string, progress ProgressCallback) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &StatusError{URL: source, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &StatusError{URL: source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: source, StatusCode: resp.StatusCode}
	}

	data, err := readAll(resp.Body, resp.ContentLength, progress)
	if err != nil {
		return nil, &StatusError{URL: source, Err: err}
	}
	return data, nil
}

func readFile(ctx context.Context, path string, progress ProgressCallback) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StatusError{URL: path, Err: err}
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, &StatusError{URL: path, Err: err}
	}
	defer fh.Close()

	size := int64(-1)
	if fi, err := fh.Stat(); err == nil {
		size = fi.Size()
	}

	data, err := readAll(&ctxReader{ctx: ctx, r: fh}, size, progress)
	if err != nil {
		return nil, &StatusError{URL: path, Err: err}
	}
	return data, nil
}

// progressChunk ist die Blockgroesse zwischen zwei Progress-Meldungen
const progressChunk = 256 * 1024

func readAll(r io.Reader, total int64, progress ProgressCallback) ([]byte, error) {
	if progress == nil {
		return io.ReadAll(r)
	}

	var buf bytes.Buffer
	if total > 0 {
		buf.Grow(int(total))
	}

	var done int64
	chunk := make([]byte, progressChunk)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			done += int64(n)
			progress(done, total)
		}
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
