package infra

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Message states reported by stareMesaj.
const (
	ANAFStateOK         = "ok"
	ANAFStateNOK        = "nok"
	ANAFStateProcessing = "in prelucrare"
	ANAFStateXMLErrors  = "XML cu erori nepreluat de sistem"
)

// ErrANAFRejected wraps business-level refusals (ExecutionStatus=1). They are
// final: retrying the same XML will not change the answer.
var ErrANAFRejected = errors.New("anaf: rejected")

// ANAFConfig selects the SPV endpoints. With Mock set no request leaves the
// process.
type ANAFConfig struct {
	BaseURL     string
	TestBaseURL string
	Timeout     time.Duration
	Mock        bool
}

// ANAFStatus is the parsed stareMesaj answer.
type ANAFStatus struct {
	State      string   `json:"state"`
	DownloadID string   `json:"download_id,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// ANAFClient talks to the e-Factura REST API of ANAF SPV. Every request runs
// through the circuit breaker; only transport failures and 5xx answers count
// as breaker failures.
type ANAFClient struct {
	cfg        ANAFConfig
	httpClient *http.Client
	breaker    *CircuitBreaker
	metrics    *Metrics

	mu    sync.Mutex
	polls map[string]int
}

func NewANAFClient(cfg ANAFConfig, breaker *CircuitBreaker, metrics *Metrics) *ANAFClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCBConfig())
	}
	return &ANAFClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		metrics:    metrics,
		polls:      make(map[string]int),
	}
}

// Mock reports whether the client runs without contacting ANAF.
func (c *ANAFClient) Mock() bool { return c.cfg.Mock }

// BreakerState exposes the breaker for health checks.
func (c *ANAFClient) BreakerState() CBState { return c.breaker.State() }

func (c *ANAFClient) baseURL(test bool) string {
	if test {
		return strings.TrimRight(c.cfg.TestBaseURL, "/")
	}
	return strings.TrimRight(c.cfg.BaseURL, "/")
}

// uploadResponse is the respUploadFisier header.
type uploadResponse struct {
	XMLName         xml.Name    `xml:"header"`
	ExecutionStatus string      `xml:"ExecutionStatus,attr"`
	UploadIndex     string      `xml:"index_incarcare,attr"`
	Errors          []anafError `xml:"Errors"`
}

// statusResponse is the stareMesajFactura header.
type statusResponse struct {
	XMLName    xml.Name    `xml:"header"`
	State      string      `xml:"stare,attr"`
	DownloadID string      `xml:"id_descarcare,attr"`
	Errors     []anafError `xml:"Errors"`
}

type anafError struct {
	Message string `xml:"errorMessage,attr"`
}

func messages(errs []anafError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Message != "" {
			out = append(out, e.Message)
		}
	}
	return out
}

// Upload sends a UBL invoice for the given CIF and returns the upload index.
func (c *ANAFClient) Upload(ctx context.Context, token, cif string, doc []byte, test bool) (string, error) {
	cif = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(cif)), "RO")

	if c.cfg.Mock {
		h := fnv.New32a()
		h.Write([]byte(cif))
		h.Write(doc)
		index := strconv.FormatUint(uint64(h.Sum32()), 10)
		log.Info().Str("cif", cif).Str("index", index).Msg("anaf: mock upload")
		c.metrics.ANAF("upload", "ok")
		return index, nil
	}

	q := url.Values{"standard": {"UBL"}, "cif": {cif}}
	endpoint := c.baseURL(test) + "/upload?" + q.Encode()

	var resp uploadResponse
	err := c.do(ctx, http.MethodPost, endpoint, token, doc, &resp)
	if err != nil {
		c.metrics.ANAF("upload", "error")
		return "", err
	}
	if resp.ExecutionStatus != "0" {
		c.metrics.ANAF("upload", "rejected")
		return "", fmt.Errorf("%w: %s", ErrANAFRejected, strings.Join(messages(resp.Errors), "; "))
	}
	if resp.UploadIndex == "" {
		c.metrics.ANAF("upload", "error")
		return "", errors.New("anaf: no index_incarcare in upload response")
	}
	c.metrics.ANAF("upload", "ok")
	return resp.UploadIndex, nil
}

// Status polls stareMesaj for an upload index.
func (c *ANAFClient) Status(ctx context.Context, token, index string, test bool) (*ANAFStatus, error) {
	if c.cfg.Mock {
		c.mu.Lock()
		c.polls[index]++
		n := c.polls[index]
		if n > 1 {
			delete(c.polls, index)
		}
		c.mu.Unlock()
		c.metrics.ANAF("status", "ok")
		if n == 1 {
			return &ANAFStatus{State: ANAFStateProcessing}, nil
		}
		return &ANAFStatus{State: ANAFStateOK, DownloadID: "9" + index}, nil
	}

	endpoint := c.baseURL(test) + "/stareMesaj?" + url.Values{"id_incarcare": {index}}.Encode()

	var resp statusResponse
	if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &resp); err != nil {
		c.metrics.ANAF("status", "error")
		return nil, err
	}
	c.metrics.ANAF("status", "ok")
	return &ANAFStatus{State: resp.State, DownloadID: resp.DownloadID, Errors: messages(resp.Errors)}, nil
}

func (c *ANAFClient) do(ctx context.Context, method, endpoint, token string, body []byte, out any) error {
	var payload []byte
	err := c.breaker.Execute(func() error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("anaf: create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "text/plain")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("anaf: unreachable: %w", err)
		}
		defer resp.Body.Close()

		payload, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("anaf: read response: %w", err)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("anaf: server returned %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := xml.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: unexpected response: %s", ErrANAFRejected, truncate(string(payload), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
