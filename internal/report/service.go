package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/signintech/gopdf"

	"medintake/internal/engine"
	"medintake/internal/intake"
)

// Notifier delivers clinician-facing notifications. Defined here to decouple
// from the webhook implementation.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
	SendDocument(ctx context.Context, fileName string, data []byte) error
}

// Service synthesizes the intake summary from the turn history and ships it
// to the clinician channel as a PDF. It implements engine.ReportTrigger.
type Service struct {
	gen      engine.TextGenerator
	notifier Notifier
	log      zerolog.Logger
}

func NewService(gen engine.TextGenerator, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{gen: gen, notifier: notifier, log: log}
}

// GenerateReport implements engine.ReportTrigger. Errors propagate to the
// orchestrator, which substitutes its completion notice.
func (s *Service) GenerateReport(ctx context.Context, history engine.History) (string, error) {
	out, err := s.gen.GenerateText(ctx, reportPrompt(history), engine.GenerateOptions{MaxTokens: 600, Temperature: 0.3})
	if err != nil {
		return "", errors.Wrap(err, "report generation")
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("report generation returned empty output")
	}
	return out, nil
}

func reportPrompt(history engine.History) string {
	var b strings.Builder
	b.WriteString("You are a medical intake assistant preparing a clinician-facing summary. ")
	b.WriteString("This is an intake summary, not a diagnosis.\n\nConversation:\n")
	for _, t := range history {
		speaker := "Patient"
		if t.Role == engine.RoleClinicianAgent {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Text)
	}
	b.WriteString(`
Write a structured summary with these sections:
CHIEF COMPLAINT
HISTORY OF PRESENT ILLNESS
RELEVANT MEDICAL HISTORY
ASSESSMENT CONTEXT

Use only information the patient actually provided. Be concise and professional.`)
	return b.String()
}

// SendClinicianReport renders the completed conversation as a PDF and posts
// it to the clinician webhook. When PDF rendering is unavailable (missing
// fonts), the report is delivered as a plain message instead.
func (s *Service) SendClinicianReport(ctx context.Context, c intake.Conversation) error {
	pdfData, err := s.buildPDF(c)
	if err != nil {
		s.log.Warn().Err(err).
			Str("conversation_id", c.ID.String()).
			Msg("pdf rendering failed, sending plain report")
		return s.notifier.SendMessage(ctx, c.Report)
	}

	fileName := fmt.Sprintf("intake_%s.pdf", c.ID.String())
	if err := s.notifier.SendDocument(ctx, fileName, pdfData); err != nil {
		return errors.Wrap(err, "send report document")
	}
	s.log.Info().
		Str("conversation_id", c.ID.String()).
		Int("pdf_bytes", len(pdfData)).
		Msg("clinician report sent")
	return nil
}

// fontPaths are the common DejaVuSans locations across our base images.
var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

func (s *Service) buildPDF(c intake.Conversation) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, errors.Wrap(fontErr, "load PDF font")
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Patient Intake Summary")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Patient ID: %s", c.PatientID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Conversation ID: %s", c.ID))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Summary:")
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, paragraph := range strings.Split(c.Report, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			pdf.Br(8)
			continue
		}
		lines, _ := pdf.SplitText(paragraph, 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
	}
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Transcript:")
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 10); err != nil {
		return nil, err
	}
	for _, t := range c.History {
		speaker := "Patient"
		if t.Role == engine.RoleClinicianAgent {
			speaker = "Assistant"
		}
		lines, _ := pdf.SplitText(fmt.Sprintf("%s: %s", speaker, t.Text), 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
		pdf.Br(4)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "write PDF")
	}
	return buf.Bytes(), nil
}
