package debugsrv

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/ohler55/ojg/oj"

	"github.com/racedash/rsc-input-service-go/log"
)

// HTTPReporter sends client errors to a remote debug server. Fire and
// forget: a failing debug server must never affect the telemetry session.
type HTTPReporter struct {
	base string
	cli  *http.Client
	l    *log.Logger
}

func NewHTTPReporter(base string) *HTTPReporter {
	return &HTTPReporter{
		base: base,
		cli:  &http.Client{Timeout: 2 * time.Second},
		l:    log.Default().Named("reporter"),
	}
}

func (r *HTTPReporter) Report(kind string, reportErr error) {
	payload, err := oj.Marshal(map[string]string{
		"kind":    kind,
		"message": reportErr.Error(),
	})
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodPost, r.base+"/debug/report", bytes.NewReader(payload))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.cli.Do(req)
	if err != nil {
		r.l.Debug("could not deliver report", log.ErrorField(err))
		return
	}
	resp.Body.Close()
}
