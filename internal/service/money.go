package service

import "strconv"

// formatRupiah renders a whole-rupiah amount with dot thousand
// separators, e.g. 15000 -> "Rp15.000".
func formatRupiah(amount int64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}

	if negative {
		return "-Rp" + string(out)
	}
	return "Rp" + string(out)
}
