package orders

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"amount": func(l domain.CartLine) int64 { return l.Amount() },
}).Parse(`INVOICE {{.ID}}
Date: {{.CreatedAt.Format "02 Jan 2006 15:04"}}
Status: {{.Status}}
{{with .AddressSnapshot}}Ship to: {{.Name}}, {{.House}}, {{.Mandal}}, {{.District}}, {{.State}} {{.Pincode}} ({{.Phone}})
{{end}}
{{range .Items}}{{.Name}} x{{.Quantity}} @ Rs.{{.Price}} = Rs.{{amount .}}
{{end}}
Subtotal: Rs.{{.Pricing.Subtotal}}
Delivery: Rs.{{.Pricing.Delivery}}
Discount: -Rs.{{.Pricing.Discount}}{{with .Pricing.CouponCode}} ({{.}}){{end}}
GST: Rs.{{.Pricing.GST}}
Total: Rs.{{.Pricing.Total}}
{{with .Payment}}Payment: {{.Method}} / {{.Status}}{{with .GatewayRef}}
Txn: {{.}}{{end}}
{{end}}`))

// Invoice формирует текстовый счёт. Доступен только когда счёт виден по правилам статуса.
func (s *Service) Invoice(order domain.Order) ([]byte, error) {
	if !domain.InvoiceVisible(order) {
		return nil, domain.Reject(domain.ReasonActionNotAllowed, domain.MessageActionNotAllowed)
	}
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, order); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", order.ID, err)
	}
	return buf.Bytes(), nil
}
