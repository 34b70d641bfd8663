package extract

import (
	"regexp"
	"strings"
)

var (
	shiftKeywords   = regexp.MustCompile(`\b(TILL|SHIFT|PUMP|REGISTER|SAFE LOANS|NIGHT AUDIT)\b`)
	lotteryKeywords = regexp.MustCompile(`\b(MEGA|LOTO|LOTTO|SCRATCH|JACKPOT)\b`)
	idKeywords      = regexp.MustCompile(`\b(DL|DOB|LICENSE)\b`)
	invoiceKeyword  = regexp.MustCompile(`\bINVOICE\b`)
)

// ClassifyText guesses the document type from keywords. Report keywords win
// over ID keywords, which win over INVOICE; anything else is a receipt.
// Empty text is unknown.
func ClassifyText(text string) DocType {
	upper := strings.ToUpper(text)
	switch {
	case strings.TrimSpace(upper) == "":
		return DocTypeUnknown
	case shiftKeywords.MatchString(upper):
		return DocTypeShiftReport
	case lotteryKeywords.MatchString(upper):
		return DocTypeLotteryReport
	case idKeywords.MatchString(upper):
		return DocTypeID
	case invoiceKeyword.MatchString(upper):
		return DocTypeInvoice
	default:
		return DocTypeReceipt
	}
}
