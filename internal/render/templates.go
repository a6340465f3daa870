package render

import (
	"fmt"
	"strconv"

	"trainingportal-backend/internal/utils"
)

func drawProformaInvoice(d *document, data *Data) {
	app := data.Details.Application
	d.title("Pro-forma Invoice")

	d.field("Invoice No.:", fmt.Sprintf("PF-%06d", app.ID))
	d.field("Date:", data.IssuedAt.Format("2 January 2006"))
	d.billTo(data.Details)
	d.pdf.Ln(4)

	count := participantCount(data.Details)
	unit := data.FeeCents / int64(count)
	description := sessionTitle(data.Details)
	if dates := sessionDates(data.Details); dates != "" {
		description += " (" + dates + ")"
	}

	d.table(
		[]float64{0.52, 0.12, 0.18, 0.18},
		[]string{"Description", "Qty", "Unit price", "Amount"},
		[][]string{{
			description,
			strconv.Itoa(count),
			utils.FormatMoney(unit, app.Currency),
			utils.FormatMoney(data.FeeCents, app.Currency),
		}},
		[]string{"L", "C", "R", "R"},
	)

	d.field("Total due:", utils.FormatMoney(data.FeeCents, app.Currency))
	d.field("Delivery mode:", string(app.DeliveryMode))
	if data.Invoice != nil {
		d.field("Payment ref.:", data.Invoice.InvoiceNumber)
		d.field("Pay online:", data.Invoice.InvoiceLink)
	}
	if d.cfg.PaymentTerms != "" {
		d.pdf.Ln(4)
		d.paragraph(d.cfg.PaymentTerms)
	}
}

func drawOfferLetter(d *document, data *Data) {
	app := data.Details.Application
	d.field("Date:", data.IssuedAt.Format("2 January 2006"))
	d.field("Reference:", fmt.Sprintf("OL-%06d", app.ID))
	d.pdf.Ln(4)

	name := "Applicant"
	if data.Details.Owner != nil && data.Details.Owner.Name != "" {
		name = data.Details.Owner.Name
	}
	d.paragraph("Dear " + name + ",")
	d.title("Offer of admission")

	body := fmt.Sprintf(
		"We are pleased to confirm that your application to attend %s has been approved.",
		sessionTitle(data.Details),
	)
	d.paragraph(body)

	if s := data.Details.Session; s != nil {
		d.field("Dates:", sessionDates(data.Details))
		if s.Venue != "" {
			d.field("Venue:", s.Venue)
		}
	}
	d.field("Delivery mode:", string(app.DeliveryMode))
	d.field("Fee:", utils.FormatMoney(data.FeeCents, app.Currency))
	d.pdf.Ln(3)

	if len(data.Details.Participants) > 0 {
		rows := make([][]string, 0, len(data.Details.Participants))
		for i, p := range data.Details.Participants {
			rows = append(rows, []string{strconv.Itoa(i + 1), p.Name, p.Designation, p.Email})
		}
		d.table(
			[]float64{0.08, 0.32, 0.25, 0.35},
			[]string{"#", "Participant", "Designation", "Email"},
			rows,
			[]string{"C", "L", "L", "L"},
		)
	}

	if data.Message != "" {
		d.paragraph(data.Message)
	}
	d.paragraph("Admission is confirmed on receipt of the full fee. Payment instructions are included in the accompanying pro-forma invoice.")
	d.signature()
}

func drawReceipt(d *document, data *Data) {
	app := data.Details.Application
	p := data.Payment
	d.title("Official Receipt")

	d.field("Receipt No.:", fmt.Sprintf("RC-%06d-%d", app.ID, p.ID))
	d.field("Date paid:", p.PaidAt.Format("2 January 2006 15:04"))
	d.billTo(data.Details)
	d.field("Channel:", p.Channel)
	if data.Invoice != nil {
		d.field("Invoice No.:", data.Invoice.InvoiceNumber)
	}
	d.pdf.Ln(4)

	rows := make([][]string, 0, len(p.References))
	for _, ref := range p.References {
		rows = append(rows, []string{
			ref.Reference,
			ref.PaidAt.Format("2006-01-02 15:04"),
			utils.FormatMoney(ref.AmountCents, ref.Currency),
		})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{"-", p.PaidAt.Format("2006-01-02 15:04"), utils.FormatMoney(p.AmountCents, p.Currency)})
	}
	d.table(
		[]float64{0.45, 0.3, 0.25},
		[]string{"Payment reference", "Paid at", "Amount"},
		rows,
		[]string{"L", "L", "R"},
	)

	paid := data.Details.PaidCents()
	d.field("Amount received:", utils.FormatMoney(p.AmountCents, p.Currency))
	d.field("Total paid:", utils.FormatMoney(paid, app.Currency))
	if balance := app.FeeCents - paid; balance > 0 {
		d.field("Balance due:", utils.FormatMoney(balance, app.Currency))
	}
	d.field("For:", sessionTitle(data.Details))
}
