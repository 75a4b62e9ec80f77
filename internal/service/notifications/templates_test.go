package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

func TestRender_SubjectKeepsSpecialCharacters(t *testing.T) {
	tmpl, err := parseTemplates(time.UTC)
	require.NoError(t, err)

	_, err = tmpl.subjects.New("greeting.subject").Parse(`Привет, {{.ClientName}}`)
	require.NoError(t, err)
	_, err = tmpl.bodies.New("greeting.body").Parse(`<p>{{.ClientName}}</p>`)
	require.NoError(t, err)

	subject, body, err := render(tmpl, domain.NotificationEvent("greeting"), &TemplateData{ClientName: "Tom & Jerry's"})
	require.NoError(t, err)

	assert.Equal(t, "Привет, Tom & Jerry's", subject)
	assert.Equal(t, "<p>Tom &amp; Jerry&#39;s</p>", body)
}

func TestRender_BundledSubjects(t *testing.T) {
	tmpl, err := parseTemplates(time.UTC)
	require.NoError(t, err)

	data := &TemplateData{
		ClientName:      "Anna",
		Type:            domain.TypeFollowUp,
		Start:           time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		End:             time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
		PaymentDeadline: time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC),
	}
	subject, body, err := render(tmpl, domain.EventBookingCreated, data)
	require.NoError(t, err)
	assert.Equal(t, "Запись создана: 01.06.2024 10:00", subject)
	assert.Contains(t, body, "Anna")
}
