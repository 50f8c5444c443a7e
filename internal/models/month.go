package models

import (
	"strings"
	"time"
)

// Month is one of the twelve three-letter month codes stored on payment records.
type Month string

const (
	MonthJAN Month = "JAN"
	MonthFEB Month = "FEB"
	MonthMAR Month = "MAR"
	MonthAPR Month = "APR"
	MonthMAY Month = "MAY"
	MonthJUN Month = "JUN"
	MonthJUL Month = "JUL"
	MonthAUG Month = "AUG"
	MonthSEP Month = "SEP"
	MonthOCT Month = "OCT"
	MonthNOV Month = "NOV"
	MonthDEC Month = "DEC"
)

// Months lists the codes in calendar order.
var Months = [12]Month{
	MonthJAN, MonthFEB, MonthMAR, MonthAPR, MonthMAY, MonthJUN,
	MonthJUL, MonthAUG, MonthSEP, MonthOCT, MonthNOV, MonthDEC,
}

// MonthOf returns the code for a calendar month.
func MonthOf(m time.Month) Month {
	return Months[m-1]
}

// ParseMonth accepts a code in any letter case.
func ParseMonth(s string) (Month, bool) {
	m := Month(strings.ToUpper(strings.TrimSpace(s)))
	if m.Index() < 0 {
		return "", false
	}
	return m, true
}

// Index is the zero-based position of the month, or -1 for an unknown code.
func (m Month) Index() int {
	for i, code := range Months {
		if code == m {
			return i
		}
	}
	return -1
}

// Time converts the code back into a time.Month. Unknown codes yield 0.
func (m Month) Time() time.Month {
	return time.Month(m.Index() + 1)
}

func (m Month) Valid() bool {
	return m.Index() >= 0
}
