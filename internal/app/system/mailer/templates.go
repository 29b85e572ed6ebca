// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// SiteName appears in subjects and headers.
const SiteName = "BloodLink"

// Line is one label/value row in a message body.
type Line struct {
	Label string
	Value string
}

type layoutData struct {
	SiteName string
	Heading  string
	Intro    string
	Lines    []Line
	Footer   string
}

var layoutTmpl = template.Must(template.New("layout").Parse(layoutHTML))

// build renders both bodies from the same content.
func build(to, subject, heading, intro string, lines []Line, footer string) Email {
	var text strings.Builder
	text.WriteString(heading + "\n\n")
	text.WriteString(intro + "\n\n")
	for _, l := range lines {
		fmt.Fprintf(&text, "%s: %s\n", l.Label, l.Value)
	}
	if footer != "" {
		text.WriteString("\n" + footer + "\n")
	}

	var html bytes.Buffer
	_ = layoutTmpl.Execute(&html, layoutData{
		SiteName: SiteName,
		Heading:  heading,
		Intro:    intro,
		Lines:    lines,
		Footer:   footer,
	})

	return Email{
		To:       to,
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}
}

// RegistrationData fills the event registration confirmation.
type RegistrationData struct {
	Name       string
	EventTitle string
	EventDate  string
	TimeSlot   string
	Location   string
	Token      string
}

// BuildRegistrationConfirmation confirms an event registration and carries
// the check-in code.
func BuildRegistrationConfirmation(to string, d RegistrationData) Email {
	return build(to,
		fmt.Sprintf("%s: registration confirmed for %s", SiteName, d.EventTitle),
		"Registration confirmed",
		fmt.Sprintf("Hi %s, thank you for registering to donate blood. Show this code at the venue to check in.", d.Name),
		[]Line{
			{"Check-in code", d.Token},
			{"Event", d.EventTitle},
			{"Date", d.EventDate},
			{"Time slot", d.TimeSlot},
			{"Location", d.Location},
		},
		"If you can no longer attend, please cancel your registration so another donor can take the slot.")
}

// BloodRequestData fills the donor-match alert.
type BloodRequestData struct {
	BloodGroup       string
	Quantity         int
	Urgency          string
	HospitalName     string
	HospitalLocation string
	Link             string
}

// BuildBloodRequestMatch alerts a donor whose blood group matches a request.
func BuildBloodRequestMatch(to string, d BloodRequestData) Email {
	lines := []Line{
		{"Blood group", d.BloodGroup},
		{"Units needed", fmt.Sprintf("%d", d.Quantity)},
		{"Urgency", d.Urgency},
		{"Hospital", d.HospitalName},
		{"Location", d.HospitalLocation},
	}
	if d.Link != "" {
		lines = append(lines, Line{"Respond", d.Link})
	}
	return build(to,
		fmt.Sprintf("%s: urgent need for %s blood", SiteName, d.BloodGroup),
		"A patient needs your blood group",
		"A new blood request matches your blood group. If you are able to donate, please accept the request.",
		lines,
		"You are receiving this because your profile lists a matching blood group.")
}

// AcceptedData fills the request-accepted broadcast.
type AcceptedData struct {
	DonorName    string
	BloodGroup   string
	HospitalName string
}

// BuildRequestAccepted tells users a donor has accepted a request.
func BuildRequestAccepted(to string, d AcceptedData) Email {
	return build(to,
		fmt.Sprintf("%s: a blood request was accepted", SiteName),
		"A donor stepped forward",
		fmt.Sprintf("%s accepted a request for %s blood.", d.DonorName, d.BloodGroup),
		[]Line{{"Hospital", d.HospitalName}},
		"Thank you for being part of the community.")
}

// VerifiedData fills the donation-verified message.
type VerifiedData struct {
	Name           string
	EventTitle     string
	TotalDonations int
}

// BuildDonationVerified thanks a donor after check-in verification.
func BuildDonationVerified(to string, d VerifiedData) Email {
	return build(to,
		fmt.Sprintf("%s: thank you for donating", SiteName),
		"Donation recorded",
		fmt.Sprintf("Hi %s, your donation at %s has been verified.", d.Name, d.EventTitle),
		[]Line{{"Total donations", fmt.Sprintf("%d", d.TotalDonations)}},
		"You can download your donation certificate from your profile.")
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Heading}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px 20px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #b91c1c;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 28px 32px;">
              <h2 style="margin: 0 0 12px; font-size: 18px; color: #111827;">{{.Heading}}</h2>
              <p style="margin: 0 0 20px; font-size: 15px; color: #374151; line-height: 1.5;">{{.Intro}}</p>
              <table role="presentation" width="100%" cellspacing="0" cellpadding="6" style="font-size: 14px; color: #374151;">
                {{range .Lines}}{{if .Value}}<tr>
                  <td style="font-weight: 600; width: 40%;">{{.Label}}</td>
                  <td>{{.Value}}</td>
                </tr>{{end}}{{end}}
              </table>
            </td>
          </tr>
          {{if .Footer}}<tr>
            <td style="padding: 20px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #6b7280; text-align: center;">{{.Footer}}</p>
            </td>
          </tr>{{end}}
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
