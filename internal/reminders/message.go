package reminders

import (
	"fmt"
	"strings"

	"tuition_tracker_echo/internal/models"
)

// MessageFormat renders the reminder body sent to parents.
type MessageFormat struct {
	Organization   string
	CurrencySymbol string
}

func (f MessageFormat) Body(record models.PaymentRecord) string {
	name := ""
	if record.Student != nil {
		name = record.Student.Name
	}

	amount := "the due amount"
	if record.Amount.Valid {
		amount = f.CurrencySymbol + record.Amount.Decimal.StringFixed(2)
	}

	var b strings.Builder
	b.WriteString("Dear Parent/Student,\n")
	fmt.Fprintf(&b, "Tuition fees for %s are due. Kindly settle the payment of %s by %s %d.\n",
		name, amount, record.Month, record.Year)
	b.WriteString("Thank you,\n")
	b.WriteString(f.Organization)
	return b.String()
}
