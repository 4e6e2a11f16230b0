package templates

import (
	"bytes"
	"fmt"
	"html/template"
)

// Render returns subject, plain-text and HTML bodies for a named
// template. Data keys are template-specific.
var tpls = template.Must(template.New("emails").Parse(`
{{define "welcome_html"}}
<html><body>
<h2>Welcome to {{.AppName}}</h2>
<p>Hi {{.Firstname}},</p>
<p>Your account {{.Email}} has been created. Finish setting up
two-factor authentication from the enrollment page before your first
login.</p>
<p>Good luck!</p>
</body></html>
{{end}}

{{define "winner_html"}}
<html><body>
<h2>You won round {{.Round}}!</h2>
<p>Hi {{.Firstname}},</p>
<p>Your draw <strong>{{.Numbers}}</strong> matched the winning draw for
lottery round {{.Round}}.</p>
<p>Log in to see your results.</p>
</body></html>
{{end}}
`))

func Render(name string, data map[string]any) (subject, text, html string, err error) {
	switch name {
	case "welcome":
		subject = fmt.Sprintf("Welcome to %v", data["AppName"])
		text = fmt.Sprintf("Hi %v, your account %v has been created.", data["Firstname"], data["Email"])
	case "winner":
		subject = fmt.Sprintf("Lottery round %v: you won!", data["Round"])
		text = fmt.Sprintf("Hi %v, your draw %v matched the winning draw for round %v.",
			data["Firstname"], data["Numbers"], data["Round"])
	default:
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}

	var buf bytes.Buffer
	if err := tpls.ExecuteTemplate(&buf, name+"_html", data); err != nil {
		return "", "", "", err
	}
	return subject, text, buf.String(), nil
}
