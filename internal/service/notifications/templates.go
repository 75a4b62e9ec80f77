package notifications

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// PaymentView данные платежа для шаблона
type PaymentView struct {
	Amount     float64
	Currency   string
	ReceiptURL string
}

// TemplateData снимок данных записи для шаблона письма
type TemplateData struct {
	ClientName         string
	AppointmentID      int64
	Type               domain.AppointmentType
	Start              time.Time
	End                time.Time
	PaymentDeadline    time.Time
	MeetingURL         string
	CancelledByAdmin   bool
	CancellationReason string
	RefundDue          bool
	Payment            *PaymentView
}

var typeNames = map[domain.AppointmentType]string{
	domain.TypeInitialConsultation:       "Первичная консультация",
	domain.TypeComprehensiveConsultation: "Расширенная консультация",
	domain.TypeFollowUp:                  "Повторная консультация",
}

// emailTemplates темы писем рендерятся без HTML-экранирования, тела - с ним
type emailTemplates struct {
	subjects *texttemplate.Template
	bodies   *htmltemplate.Template
}

func parseTemplates(loc *time.Location) (*emailTemplates, error) {
	funcs := map[string]interface{}{
		"formatDate": func(t time.Time) string {
			return t.In(loc).Format("02.01.2006 15:04")
		},
		"formatTime": func(t time.Time) string {
			return t.In(loc).Format(domain.TimeFormat)
		},
		"formatMoney": func(amount float64, currency string) string {
			return fmt.Sprintf("%.2f %s", amount, strings.ToUpper(currency))
		},
		"typeName": func(t domain.AppointmentType) string {
			if name, ok := typeNames[t]; ok {
				return name
			}
			return string(t)
		},
	}

	subjects, err := texttemplate.New("subjects").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	bodies, err := htmltemplate.New("bodies").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &emailTemplates{subjects: subjects, bodies: bodies}, nil
}

// render формирует тему и тело письма для события
func render(tmpl *emailTemplates, event domain.NotificationEvent, data *TemplateData) (string, string, error) {
	var subject, body bytes.Buffer

	if err := tmpl.subjects.ExecuteTemplate(&subject, string(event)+".subject", data); err != nil {
		return "", "", err
	}
	if err := tmpl.bodies.ExecuteTemplate(&body, string(event)+".body", data); err != nil {
		return "", "", err
	}

	return strings.TrimSpace(subject.String()), body.String(), nil
}
