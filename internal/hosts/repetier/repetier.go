// Package repetier implements the print host client for Repetier-Server.
package repetier

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Nandox7/goprinthost/internal/config"
	"github.com/Nandox7/goprinthost/internal/hosts"
	"github.com/Nandox7/goprinthost/internal/transport"
	"github.com/sirupsen/logrus"
)

// brandPrefix is how a Repetier-Server identifies itself in the probe
// response. A server that omits the name entirely is accepted.
const brandPrefix = "Repetier-Server"

// Host talks to one Repetier-Server instance. The connection parameters
// are fixed at construction, so a single Host is safe to use from
// concurrent Test/Upload calls.
type Host struct {
	host        string
	apiKey      string
	caFile      string
	printerName string
	logger      *logrus.Logger
}

var _ hosts.PrintHost = (*Host)(nil)

// New creates a Host from the configured connection parameters.
func New(cfg config.PrintHostConfig, logger *logrus.Logger) *Host {
	return &Host{
		host:        cfg.URL,
		apiKey:      cfg.APIKey,
		caFile:      cfg.CAFile,
		printerName: cfg.PrinterName,
		logger:      logger,
	}
}

// GetName identifies the backend implementation.
func (h *Host) GetName() string { return "RepetierServer" }

// infoResponse mirrors the probe payload. Pointer fields distinguish
// absent members from empty ones; unknown fields are ignored.
type infoResponse struct {
	Version *string `json:"version"`
	Name    *string `json:"name"`
}

// decodeInfo parses a probe response body. It never panics on malformed
// input; decode failures are returned to the caller.
func decodeInfo(body string) (*infoResponse, error) {
	var info infoResponse
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// validateVersionText checks the reported identity against the expected
// brand. An absent identity passes, tolerating servers that do not
// identify themselves.
func validateVersionText(text *string) bool {
	if text == nil {
		return true
	}
	return strings.HasPrefix(*text, brandPrefix)
}

// Test probes the server and validates its identity. The returned error
// is a *hosts.Error classifying the failure.
func (h *Host) Test() error {
	name := h.GetName()
	url := h.MakeURL("printer/info")

	h.logger.Infof("%s: getting version at %s", name, url)

	var result error

	req := transport.Get(url)
	h.setAuth(req)
	req.OnError(func(body, errMsg string, status int) {
		h.logger.Errorf("%s: error getting version: %s, HTTP %d, body: `%s`", name, errMsg, status, body)
		result = &hosts.Error{
			Kind:    hosts.KindConnection,
			Message: hosts.FormatError(body, errMsg, status),
			Body:    body,
			Status:  status,
		}
	}).OnComplete(func(body string, status int) {
		h.logger.Debugf("%s: got version: %s", name, body)

		info, err := decodeInfo(body)
		if err != nil {
			result = &hosts.Error{
				Kind:    hosts.KindParse,
				Message: "Could not parse server response",
			}
			return
		}

		if info.Version == nil {
			result = &hosts.Error{
				Kind:   hosts.KindConnection,
				Body:   body,
				Status: status,
			}
			return
		}

		if !validateVersionText(info.Name) {
			text := brandPrefix
			if info.Name != nil {
				text = *info.Name
			}
			result = &hosts.Error{
				Kind:    hosts.KindVersionMismatch,
				Message: fmt.Sprintf("Mismatched type of print host: %s", text),
			}
		}
	}).Perform()

	return result
}

// Upload transfers a file to the server, probing first. It returns true
// iff the file was fully transmitted; cancellation from the progress
// callback yields false without invoking errorFn.
func (h *Host) Upload(data hosts.UploadRequest, progressFn hosts.ProgressFn, errorFn hosts.ErrorFn) bool {
	name := h.GetName()

	uploadFilename := filepath.Base(data.UploadPath)
	uploadParent := filepath.Dir(data.UploadPath)

	if err := h.Test(); err != nil {
		errorFn(err.Error())
		return false
	}

	target := "model"
	if data.StartPrint {
		target = "job"
	}
	url := h.MakeURL(fmt.Sprintf("printer/%s/%s", target, h.printerName))

	h.logger.Infof("%s: uploading file %s at %s, filename: %s, path: %s, print: %v",
		name, data.SourcePath, url, uploadFilename, uploadParent, data.StartPrint)

	res := true
	cancelled := false

	req := transport.Post(url)
	h.setAuth(req)
	req.FormField("a", "upload").
		FormFile("filename", data.SourcePath, uploadFilename).
		OnComplete(func(body string, status int) {
			h.logger.Debugf("%s: file uploaded: HTTP %d: %s", name, status, body)
		}).
		OnError(func(body, errMsg string, status int) {
			res = false
			if cancelled {
				return
			}
			h.logger.Errorf("%s: error uploading file: %s, HTTP %d, body: `%s`", name, errMsg, status, body)
			errorFn(hosts.FormatError(body, errMsg, status))
		}).
		OnProgress(func(p transport.Progress, cancel *bool) {
			progressFn(p, cancel)
			if *cancel {
				h.logger.Infof("%s: upload cancelled", name)
				cancelled = true
				res = false
			}
		}).
		Perform()

	return res
}

// SuccessMessage is the user-facing confirmation for a passing Test.
func (h *Host) SuccessMessage() string {
	return "Connection to RepetierServer works correctly."
}

// FailureMessage wraps a failure message with the backend's prefix and
// minimum supported version note.
func (h *Host) FailureMessage(msg string) string {
	return fmt.Sprintf("%s: %s\n\n%s",
		"Could not connect to RepetierServer",
		msg,
		"Note: Repetier-Server version at least 0.92.2 is required.")
}

// MakeURL joins path onto the configured host, prepending http:// when
// the host carries no scheme. Reapplying it to an already-normalized
// host changes nothing.
func (h *Host) MakeURL(path string) string {
	if strings.HasPrefix(h.host, "http://") || strings.HasPrefix(h.host, "https://") {
		if strings.HasSuffix(h.host, "/") {
			return h.host + path
		}
		return h.host + "/" + path
	}
	return "http://" + h.host + "/" + path
}

// setAuth attaches the API key header and, when configured, the CA trust
// override. The header is sent even when the key is empty.
func (h *Host) setAuth(req *transport.Request) {
	req.Header("X-Api-Key", h.apiKey)

	if h.caFile != "" {
		req.CAFile(h.caFile)
	}
}
