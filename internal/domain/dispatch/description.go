package dispatch

import (
	"bytes"
	"html"
	"html/template"
	"strings"
)

// LineBreak is the marker inserted for every line ending in history text
const LineBreak = "<br>"

// NormalizeHistory turns CRLF and then bare LF into LineBreak. CRLF goes
// first so a Windows line ending yields a single break. Applying it to its
// own output is a no-op.
func NormalizeHistory(text string) string {
	text = strings.ReplaceAll(text, "\r\n", LineBreak)
	return strings.ReplaceAll(text, "\n", LineBreak)
}

// DescriptionInput carries the fields rendered into a marker description
type DescriptionInput struct {
	OrderID               string
	ClientID              Text
	ClientName            Text
	Login                 Text
	Password              Text
	Panel                 Text
	TechnicalLocationNote Text
	Address               Text
	HistoryText           Text
}

// DescriptionInputFor builds the description input of an order. Login,
// password, panel and address have no CRM source and stay unset.
func DescriptionInputFor(order OrderRecord) DescriptionInput {
	return DescriptionInput{
		OrderID:               order.OrderID,
		ClientID:              order.ClientID,
		ClientName:            order.ClientName,
		Login:                 Unset(),
		Password:              Unset(),
		Panel:                 Unset(),
		TechnicalLocationNote: order.TechnicalLocationNote,
		Address:               Unset(),
		HistoryText:           order.HistoryText,
	}
}

const descriptionTemplate = `<b>ORDEM DE SERVIÇO {{.OrderID}}</b>` + LineBreak +
	`Cliente: {{.ClientID}} - {{.ClientName}}` + LineBreak +
	`Login: {{.Login}}` + LineBreak +
	`Senha: {{.Password}}` + LineBreak +
	`Painel: {{.Panel}}` + LineBreak +
	`Localização: {{.Location}}` + LineBreak +
	`Endereço: {{.Address}}` + LineBreak +
	`Histórico:` + LineBreak + `{{.History}}`

type descriptionView struct {
	OrderID    string
	ClientID   string
	ClientName string
	Login      string
	Password   string
	Panel      string
	Location   string
	Address    string
	History    template.HTML
}

// DescriptionFormatter renders marker descriptions
type DescriptionFormatter struct {
	tmpl *template.Template
}

// NewDescriptionFormatter parses the description template
func NewDescriptionFormatter() *DescriptionFormatter {
	return &DescriptionFormatter{
		tmpl: template.Must(template.New("description").Parse(descriptionTemplate)),
	}
}

// Render produces the HTML description. It never fails: unset fields render
// as UnsetText and a template error falls back to the escaped history alone.
func (f *DescriptionFormatter) Render(in DescriptionInput) string {
	orderID := in.OrderID
	if strings.TrimSpace(orderID) == "" {
		orderID = UnsetText
	}
	view := descriptionView{
		OrderID:    orderID,
		ClientID:   in.ClientID.String(),
		ClientName: in.ClientName.String(),
		Login:      in.Login.String(),
		Password:   in.Password.String(),
		Panel:      in.Panel.String(),
		Location:   in.TechnicalLocationNote.String(),
		Address:    in.Address.String(),
		History:    template.HTML(SanitizeHistory(in.HistoryText.String())),
	}

	var buf bytes.Buffer
	if err := f.tmpl.Execute(&buf, view); err != nil {
		return string(view.History)
	}
	return buf.String()
}

// SanitizeHistory normalizes line endings and HTML-escapes the text between
// the inserted line breaks. Existing entities are decoded first, so running
// it over its own output returns the same string.
func SanitizeHistory(text string) string {
	parts := strings.Split(NormalizeHistory(text), LineBreak)
	for i, p := range parts {
		parts[i] = template.HTMLEscapeString(html.UnescapeString(p))
	}
	return strings.Join(parts, LineBreak)
}
