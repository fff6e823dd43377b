package engine

import (
	"strconv"

	"github.com/dustin/go-humanize"
)

func money(n int) string {
	return "$" + humanize.Comma(int64(n))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
