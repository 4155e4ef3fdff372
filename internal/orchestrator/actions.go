package orchestrator

import "regexp"

// quickLinks maps recurring visitor topics to tappable suggestions rendered
// under informational replies.
var quickLinks = []struct {
	re     *regexp.Regexp
	action Action
}{
	{
		re:     regexp.MustCompile(`(?i)parchegg|navetta`),
		action: Action{Type: "link", Label: "Info Parcheggi", URL: "https://lucinedinatale.it/info-parcheggi"},
	},
	{
		re:     regexp.MustCompile(`(?i)come (si )?arriv|indicazioni|dove si trova|dove siete`),
		action: Action{Type: "link", Label: "Come Arrivare", URL: "https://maps.google.com/?q=Lucine+di+Natale+Leggiuno"},
	},
	{
		re:     regexp.MustCompile(`(?i)prezz|costa(no)?|bigliett`),
		action: Action{Type: "link", Label: "Acquista Biglietti", URL: "https://lucinedinatale.it/products/biglietto-parco-lucine-di-natale-2025"},
	},
}

// suggestActions returns quick links matching the visitor's message.
func suggestActions(message string) []Action {
	var out []Action
	for _, q := range quickLinks {
		if q.re.MatchString(message) {
			out = append(out, q.action)
		}
		if len(out) == maxActions {
			break
		}
	}
	return out
}
