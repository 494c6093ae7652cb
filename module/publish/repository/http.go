package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/progress"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 512

// HTTPRepository talks the plain Maven repository protocol: GET/HEAD to
// read, PUT to upload and DELETE to remove, one file per request.
type HTTPRepository struct {
	name     string
	base     string
	client   *retryablehttp.Client
	auth     Modifier
	progress bool
}

var _ Repository = (*HTTPRepository)(nil)

// NewHTTPRepository creates a repository client for target. Transient
// failures are retried opts.Attempts times in total with exponential backoff.
func NewHTTPRepository(target Target, creds Credentials, opts Options) (*HTTPRepository, error) {
	auth, err := NewAuthorizer(target.Auth, creds)
	if err != nil {
		return nil, errors.NewValidationError("repository.auth", err.Error())
	}

	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 3
	}

	client := retryablehttp.NewClient()
	client.RetryMax = attempts - 1
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	if client.RetryWaitMax < client.RetryWaitMin {
		client.RetryWaitMax = client.RetryWaitMin
	}
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	client.Logger = newLogger()
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Warn().Str("method", req.Method).Str("url", req.URL.Redacted()).Int("attempt", attempt+1).
				Msg("Retrying request")
		}
	}

	return &HTTPRepository{
		name:     target.Name,
		base:     strings.TrimSuffix(target.URL, "/"),
		client:   client,
		auth:     auth,
		progress: opts.Progress,
	}, nil
}

func (r *HTTPRepository) Name() string { return r.name }
func (r *HTTPRepository) URL() string  { return r.base }

func (r *HTTPRepository) Get(ctx context.Context, p string) ([]byte, error) {
	resp, err := r.do(ctx, http.MethodGet, p, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.ErrNotFound
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.NewNetworkError("get", p, err)
		}
		return data, nil
	default:
		return nil, statusError("get", p, resp)
	}
}

func (r *HTTPRepository) Exists(ctx context.Context, p string) (bool, error) {
	resp, err := r.do(ctx, http.MethodHead, p, nil)
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusMethodNotAllowed:
		_, err := r.Get(ctx, p)
		if errors.Is(err, errors.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	default:
		return false, statusError("head", p, resp)
	}
}

func (r *HTTPRepository) Put(ctx context.Context, p string, data []byte) error {
	start := time.Now()
	resp, err := r.do(ctx, http.MethodPut, p, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("put", p, resp)
	}
	log.Debug().Str("path", p).Int("size", len(data)).Dur("duration", time.Since(start)).Msg("Uploaded")
	return nil
}

func (r *HTTPRepository) Delete(ctx context.Context, p string) error {
	resp, err := r.do(ctx, http.MethodDelete, p, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("delete", p, resp)
	}
	return nil
}

func (r *HTTPRepository) do(ctx context.Context, method, p string, data []byte) (*http.Response, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return nil, err
	}
	url := r.base + "/" + clean

	var body interface{}
	if data != nil {
		body = data
		if r.progress && method == http.MethodPut {
			body = retryablehttp.ReaderFunc(func() (io.Reader, error) {
				return newMeteredBody(data, path.Base(clean)), nil
			})
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, errors.NewNetworkError(strings.ToLower(method), clean, err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if err := r.auth.Modify(req.Request); err != nil {
		return nil, errors.NewAuthError(strings.ToLower(method), clean, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, errors.NewNetworkError(strings.ToLower(method), clean, err)
	}
	return resp, nil
}

// ResponseError is a definitive answer from the server: the request
// reached it and was refused.
type ResponseError struct {
	StatusCode int
	Detail     string
}

func (e *ResponseError) Error() string {
	return e.Detail
}

// Refused reports whether err carries a server response rejecting the
// request, as opposed to a transport failure with an unknown outcome.
func Refused(err error) bool {
	var re *ResponseError
	return errors.As(err, &re)
}

// statusError maps an unexpected response to the failure kind it represents.
func statusError(op, p string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := &ResponseError{StatusCode: resp.StatusCode, Detail: resp.Status}
	if msg := strings.TrimSpace(string(snippet)); msg != "" {
		detail.Detail = resp.Status + ": " + msg
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.NewAuthError(op, p, fmt.Errorf("%w: %w", errors.ErrUnauthorized, detail))
	case http.StatusConflict:
		return errors.NewConflictError(op, p, fmt.Errorf("%w: %w", errors.ErrConflict, detail))
	default:
		return errors.NewNetworkError(op, p, detail)
	}
}

// meteredBody feeds a pterm progress bar while the transport reads it. Len
// lets retryablehttp set Content-Length; the bar starts on the first Read
// so measuring the body does not draw one.
type meteredBody struct {
	data   []byte
	name   string
	reader io.Reader
	stop   func()
}

func newMeteredBody(data []byte, name string) *meteredBody {
	return &meteredBody{data: data, name: name}
}

func (b *meteredBody) Len() int { return len(b.data) }

func (b *meteredBody) Read(p []byte) (int, error) {
	if b.reader == nil {
		b.reader, b.stop = progress.Reader(int64(len(b.data)), bytes.NewReader(b.data), b.name)
	}
	n, err := b.reader.Read(p)
	if err == io.EOF {
		b.Close()
	}
	return n, err
}

func (b *meteredBody) Close() error {
	if b.stop != nil {
		b.stop()
		b.stop = nil
	}
	return nil
}
