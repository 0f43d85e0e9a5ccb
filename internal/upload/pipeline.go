package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// savePath is the fixed draft-area path every upload lands in.
const savePath = "/"

// defaultTimeout bounds a single upload exchange.
const defaultTimeout = 5 * time.Minute

// Pipeline uploads finalized payloads to the repository upload endpoint.
//
// One Pipeline is shared by all sessions of a process; it holds no
// per-attempt state and is safe for concurrent use.
type Pipeline struct {
	client   *resty.Client
	endpoint string
	sessKey  string
}

// Config configures a [Pipeline].
type Config struct {
	// Endpoint is the upload endpoint URL (without the action query).
	Endpoint string

	// SessKey is the opaque session token forwarded with every upload.
	SessKey string

	// HTTPClient overrides the underlying HTTP client. Optional; used in
	// tests to point at an httptest server transport.
	HTTPClient *http.Client

	// Timeout bounds a single upload exchange. Defaults to 5 minutes.
	Timeout time.Duration
}

// New creates a [Pipeline] with the given configuration.
func New(cfg Config) *Pipeline {
	var client *resty.Client
	if cfg.HTTPClient != nil {
		client = resty.NewWithClient(cfg.HTTPClient)
	} else {
		client = resty.New()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client.SetTimeout(timeout)

	return &Pipeline{
		client:   client,
		endpoint: cfg.Endpoint,
		sessKey:  cfg.SessKey,
	}
}

// errorEnvelope is the application-level error shape embedded in an
// otherwise successful response body. Presence of a non-empty error code
// signals rejection even under HTTP 200.
type errorEnvelope struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorcode"`
}

// Upload transfers the payload described by req and classifies the result.
// The progress callback, when non-nil, receives the sent/total fraction in
// [0,1] as the body is consumed; it is invoked from the transfer goroutine
// and must not block.
func (p *Pipeline) Upload(ctx context.Context, req Request, progress func(fraction float64)) Result {
	data, mimeType, err := req.Source.Fetch(ctx)
	if err != nil {
		return Result{
			Outcome: OutcomeFetchError,
			Err:     fmt.Errorf("upload: fetch payload: %w", err),
		}
	}

	total := int64(len(data))
	body := &progressReader{
		r:     bytes.NewReader(data),
		total: total,
		cb:    progress,
	}
	if progress != nil {
		progress(0)
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("action", "upload").
		SetMultipartField("repo_upload_file", req.Filename, mimeType, body).
		SetMultipartFormData(map[string]string{
			"sesskey":   p.sessKey,
			"repo_id":   strconv.FormatInt(req.Destination.RepositoryID, 10),
			"itemid":    strconv.FormatInt(req.Destination.DraftItemID, 10),
			"savepath":  savePath,
			"ctx_id":    strconv.FormatInt(req.Destination.ContextID, 10),
			"overwrite": "1",
		}).
		Post(p.endpoint)

	if err != nil {
		if ctx.Err() != nil {
			return Result{
				Outcome:    OutcomeAborted,
				BytesTotal: total,
				Err:        fmt.Errorf("upload: aborted: %w", ctx.Err()),
			}
		}
		return Result{
			Outcome:    OutcomeTransportError,
			BytesTotal: total,
			Err:        fmt.Errorf("upload: post %s: %w", p.endpoint, err),
		}
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return Result{
			Outcome:    OutcomeTransportError,
			HTTPStatus: status,
			BytesTotal: total,
			Err:        fmt.Errorf("upload: endpoint returned status %d", status),
		}
	}

	// HTTP success. The server still signals rejection by embedding an
	// error code in the JSON body; absence of the code means stored.
	var env errorEnvelope
	if jsonErr := json.Unmarshal(resp.Body(), &env); jsonErr == nil && env.ErrorCode != "" {
		slog.Warn("upload rejected by server",
			"errorcode", env.ErrorCode, "error", env.Error, "filename", req.Filename)
		return Result{
			Outcome:    OutcomeApplicationError,
			HTTPStatus: status,
			ErrorCode:  env.ErrorCode,
			BytesTotal: total,
		}
	}

	if progress != nil {
		progress(1)
	}
	return Result{
		Outcome:    OutcomeSuccess,
		HTTPStatus: status,
		BytesTotal: total,
	}
}

// progressReader reports the consumed fraction of a fixed-size body as it
// is read.
type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	cb    func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.cb != nil && p.total > 0 {
			frac := float64(p.sent) / float64(p.total)
			if frac > 1 {
				frac = 1
			}
			p.cb(frac)
		}
	}
	return n, err
}
