package repository

import "strconv"

// itoa numbers positional placeholders in dynamically assembled queries.
func itoa(n int) string {
	return strconv.Itoa(n)
}
