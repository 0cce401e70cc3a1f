// Package digest emails the owners a periodic summary of recent enquiries.
package digest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hopeland/leasebot/internal/enquiry"
	"github.com/hopeland/leasebot/internal/logger"
	"github.com/hopeland/leasebot/internal/metrics"
)

const emptyWindow = "No enquiries in this window."

// Columns of the digest table, in order.
var Columns = []string{"Timestamp Local", "WA Number", "WA Name", "Category", "Unit ID", "Title", "Reviewed"}

var tableTmpl = template.Must(template.New("digest").Parse(`<p>Here are the enquiries from the last {{.Window}}.</p>
{{- if .Rows}}
<table cellspacing="0" cellpadding="0">
<tr>{{range .Columns}}<th style="text-align:left;padding:6px;border-bottom:1px solid #ccc">{{.}}</th>{{end}}</tr>
{{- range .Rows}}
<tr>{{range .}}<td style="padding:6px;border-bottom:1px solid #eee">{{.}}</td>{{end}}</tr>
{{- end}}
</table>
{{- else}}
<p>` + emptyWindow + `</p>
{{- end}}
`))

// Report is one rendered digest.
type Report struct {
	Subject string
	Text    string
	HTML    string
	Count   int
}

type Config struct {
	BusinessName string
	Owners       []string
	Window       time.Duration
}

// Service builds digests from the enquiry log and mails them.
type Service struct {
	reader  enquiry.Reader
	sender  EmailSender
	cfg     Config
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(cfg Config, reader enquiry.Reader, sender EmailSender, m *metrics.Metrics, log zerolog.Logger) *Service {
	if cfg.Window <= 0 {
		cfg.Window = 6 * time.Hour
	}
	return &Service{
		reader:  reader,
		sender:  sender,
		cfg:     cfg,
		metrics: m,
		log:     logger.Component(log, "digest"),
		now:     time.Now,
	}
}

// Build renders the digest for the window ending now.
func (s *Service) Build(ctx context.Context) (Report, error) {
	entries, err := s.reader.Since(ctx, s.now().Add(-s.cfg.Window))
	if err != nil {
		return Report{}, fmt.Errorf("reading enquiries: %w", err)
	}
	return Render(s.cfg.BusinessName, s.cfg.Window, entries)
}

// SendOnce builds the digest and mails it to every owner. A stub sender or
// an empty owner list counts as skipped and returns ErrEmailDisabled.
func (s *Service) SendOnce(ctx context.Context) (Report, error) {
	report, err := s.Build(ctx)
	if err != nil {
		s.metrics.ObserveDigest("failed")
		return Report{}, err
	}

	if len(s.cfg.Owners) == 0 {
		s.log.Warn().Msg("no owner emails configured, digest not sent")
		s.metrics.ObserveDigest("skipped")
		return report, ErrEmailDisabled
	}

	var errs []error
	for _, to := range s.cfg.Owners {
		err := s.sender.Send(ctx, EmailMessage{
			To:      to,
			Subject: report.Subject,
			Body:    report.Text,
			HTML:    report.HTML,
		})
		if errors.Is(err, ErrEmailDisabled) {
			s.metrics.ObserveDigest("skipped")
			return report, err
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
		}
	}
	if len(errs) > 0 {
		s.metrics.ObserveDigest("failed")
		return report, errors.Join(errs...)
	}

	s.metrics.ObserveDigest("sent")
	s.log.Info().Int("rows", report.Count).Int("owners", len(s.cfg.Owners)).Msg("digest sent")
	return report, nil
}

// Render formats entries into the subject, plain text and HTML bodies.
func Render(business string, window time.Duration, entries []enquiry.Entry) (Report, error) {
	span := formatWindow(window)
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = row(e)
	}

	var html bytes.Buffer
	err := tableTmpl.Execute(&html, struct {
		Window  string
		Columns []string
		Rows    [][]string
	}{span, Columns, rows})
	if err != nil {
		return Report{}, fmt.Errorf("rendering digest: %w", err)
	}

	return Report{
		Subject: fmt.Sprintf("%s WhatsApp enquiries — last %s (%d)", business, span, len(entries)),
		Text:    renderText(rows),
		HTML:    html.String(),
		Count:   len(entries),
	}, nil
}

func row(e enquiry.Entry) []string {
	reviewed := ""
	if e.Reviewed {
		reviewed = "yes"
	}
	return []string{e.TimestampLocal, e.SubjectID, e.SubjectName, e.Category, e.ListingID, e.ListingTitle, reviewed}
}

// renderText keeps the columns owners scan on a phone: time, number, unit, title.
func renderText(rows [][]string) string {
	if len(rows) == 0 {
		return emptyWindow
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = strings.Join([]string{r[0], r[1], r[4], r[5]}, " | ")
	}
	return strings.Join(lines, "\n")
}

func formatWindow(d time.Duration) string {
	hours := d.Hours()
	if hours == 1 {
		return "1 hour"
	}
	return strconv.FormatFloat(hours, 'f', -1, 64) + " hours"
}
