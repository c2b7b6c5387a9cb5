package qps

import "strings"

// TicketParam is the query parameter the Qlik hub and apps read the ticket
// from.
const TicketParam = "qlikTicket"

// ComposeRedirect appends the ticket to a redirect target, using & when the
// target already carries a query string. The target is taken as-is: existing
// query parameters are not re-encoded.
func ComposeRedirect(target, ticket string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + TicketParam + "=" + ticket
}
