package rest

import "fmt"

// APIError is a non-2xx response from the exchange. Status and body are
// kept verbatim so callers can log what the venue actually said.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance http %d: %s", e.Status, e.Body)
}
