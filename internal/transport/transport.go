package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sync"
	"time"
)

const (
	// probeTimeout bounds short read-only requests. Uploads carry no
	// timeout since transfer duration is unbounded.
	probeTimeout = 30 * time.Second

	chunkSize = 64 * 1024
)

// ErrCancelled aborts an in-flight transfer when the progress callback
// sets the cancel flag.
var ErrCancelled = errors.New("request cancelled")

// Progress is a snapshot of upload progress for one request.
type Progress struct {
	UploadTotal int64
	UploadNow   int64
}

// Fraction returns progress as a value in [0, 1].
func (p Progress) Fraction() float64 {
	if p.UploadTotal <= 0 {
		return 0
	}
	return float64(p.UploadNow) / float64(p.UploadTotal)
}

// CompleteFn receives the response body and HTTP status on success.
type CompleteFn func(body string, status int)

// ErrorFn receives the response body (when there is one), an error
// description and the HTTP status (0 when the request never reached the
// server).
type ErrorFn func(body string, errMsg string, status int)

// ProgressFn receives progress snapshots during an upload. Setting
// *cancel aborts the transfer cooperatively; the flag is shared across
// ticks of the same request.
type ProgressFn func(p Progress, cancel *bool)

type formField struct {
	name  string
	value string
}

type formFile struct {
	field    string
	path     string
	filename string
}

// Request is a single HTTP request under construction. Build it with
// Get/Post and the chainable setters, then call Perform. Exactly one of
// the complete/error callbacks fires per Perform; progress may fire any
// number of times before that, and callbacks are never invoked
// concurrently for one request.
type Request struct {
	method  string
	url     string
	headers map[string]string
	caFile  string
	timeout time.Duration
	fields  []formField
	file    *formFile

	onComplete CompleteFn
	onError    ErrorFn
	onProgress ProgressFn
}

// Get starts building a GET request.
func Get(url string) *Request {
	return &Request{
		method:  http.MethodGet,
		url:     url,
		headers: make(map[string]string),
		timeout: probeTimeout,
	}
}

// Post starts building a POST request. No timeout is applied so large
// uploads are not cut off mid-transfer.
func Post(url string) *Request {
	return &Request{
		method:  http.MethodPost,
		url:     url,
		headers: make(map[string]string),
	}
}

// Header sets a request header. An empty value is still sent.
func (r *Request) Header(name, value string) *Request {
	r.headers[name] = value
	return r
}

// CAFile overrides the trust store for this request with the PEM bundle
// at path.
func (r *Request) CAFile(path string) *Request {
	r.caFile = path
	return r
}

// Timeout overrides the default timeout for this request.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// FormField adds a multipart form field.
func (r *Request) FormField(name, value string) *Request {
	r.fields = append(r.fields, formField{name: name, value: value})
	return r
}

// FormFile attaches the file at path as a multipart part under
// fieldName, sent to the server as filename.
func (r *Request) FormFile(fieldName, path, filename string) *Request {
	r.file = &formFile{field: fieldName, path: path, filename: filename}
	return r
}

// OnComplete registers the success callback.
func (r *Request) OnComplete(fn CompleteFn) *Request {
	r.onComplete = fn
	return r
}

// OnError registers the failure callback.
func (r *Request) OnError(fn ErrorFn) *Request {
	r.onError = fn
	return r
}

// OnProgress registers the progress callback.
func (r *Request) OnProgress(fn ProgressFn) *Request {
	r.onProgress = fn
	return r
}

// Perform executes the request and blocks until it completes, fails or
// is cancelled from the progress callback.
func (r *Request) Perform() {
	client, err := r.buildClient()
	if err != nil {
		r.fail("", err.Error(), 0)
		return
	}

	var (
		body        io.Reader
		contentType string
		pipeReader  *io.PipeReader
		writeErr    error
		wg          sync.WaitGroup
	)

	if r.file != nil || len(r.fields) > 0 {
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		contentType = mw.FormDataContentType()
		body = pr
		pipeReader = pr

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.writeMultipart(mw); err != nil {
				writeErr = err
				pw.CloseWithError(err)
				return
			}
			pw.Close()
		}()
	}

	req, err := http.NewRequest(r.method, r.url, body)
	if err != nil {
		if pipeReader != nil {
			pipeReader.CloseWithError(err)
		}
		wg.Wait()
		r.fail("", err.Error(), 0)
		return
	}
	for name, value := range r.headers {
		req.Header.Set(name, value)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	// The body writer goroutine has exited by now (the transport closes
	// the request body either way); waiting here keeps progress and
	// completion callbacks from overlapping.
	wg.Wait()
	if err != nil {
		if errors.Is(writeErr, ErrCancelled) {
			r.fail("", ErrCancelled.Error(), 0)
			return
		}
		r.fail("", err.Error(), 0)
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		r.fail("", err.Error(), resp.StatusCode)
		return
	}
	if resp.StatusCode >= http.StatusBadRequest {
		r.fail(string(data), resp.Status, resp.StatusCode)
		return
	}
	if r.onComplete != nil {
		r.onComplete(string(data), resp.StatusCode)
	}
}

func (r *Request) fail(body, errMsg string, status int) {
	if r.onError != nil {
		r.onError(body, errMsg, status)
	}
}

func (r *Request) buildClient() (*http.Client, error) {
	client := &http.Client{Timeout: r.timeout}

	if r.caFile != "" {
		pem, err := os.ReadFile(r.caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", r.caFile)
		}
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}

	return client, nil
}

func (r *Request) writeMultipart(mw *multipart.Writer) error {
	for _, field := range r.fields {
		if err := mw.WriteField(field.name, field.value); err != nil {
			return err
		}
	}

	if r.file != nil {
		src, err := os.Open(r.file.path)
		if err != nil {
			return err
		}
		defer src.Close()

		info, err := src.Stat()
		if err != nil {
			return err
		}

		part, err := mw.CreateFormFile(r.file.field, r.file.filename)
		if err != nil {
			return err
		}
		if err := r.copyWithProgress(part, src, info.Size()); err != nil {
			return err
		}
	}

	return mw.Close()
}

// copyWithProgress streams src into dst in chunks, reporting progress
// after each chunk. The cancel flag persists across ticks; once set the
// copy stops with ErrCancelled.
func (r *Request) copyWithProgress(dst io.Writer, src io.Reader, total int64) error {
	buf := make([]byte, chunkSize)
	var sent int64
	cancel := false

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return err
			}
			sent += int64(n)
			if r.onProgress != nil {
				r.onProgress(Progress{UploadTotal: total, UploadNow: sent}, &cancel)
				if cancel {
					return ErrCancelled
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
