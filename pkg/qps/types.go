package qps

import "encoding/json"

// Attribute is a single-key mapping in a ticket request. The proxy service
// takes attributes as an ordered list of these, tolerates duplicate names
// and empty values, and echoes them back on the ticket.
type Attribute map[string]interface{}

// TicketRequest is the payload for RequestTicket. Attribute order is
// preserved exactly as supplied.
type TicketRequest struct {
	UserDirectory string      `json:"UserDirectory"`
	UserID        string      `json:"UserId"`
	Attributes    []Attribute `json:"Attributes"`
	TargetID      string      `json:"TargetId,omitempty"`

	// ProxyURI overrides the client's base URL for this request. Module
	// logins carry the proxy REST URI of the target installation so the
	// ticket is issued where the deep link resolves.
	ProxyURI string `json:"-"`
}

// Ticket is the result of a successful ticket request. TargetURI is only
// set when the request carried a TargetId; it is the service-computed deep
// link for module logins.
type Ticket struct {
	Value     string
	TargetURI string
}

// ticketResponse mirrors the proxy service's ticket payload.
//
//	{
//	  "UserDirectory": "google",
//	  "UserId": "Ana Li;123",
//	  "Attributes": [],
//	  "Ticket": "mH-8E7tqt5ZLq-LF",
//	  "TargetUri": null
//	}
type ticketResponse struct {
	UserDirectory string          `json:"UserDirectory"`
	UserID        string          `json:"UserId"`
	Attributes    json.RawMessage `json:"Attributes"`
	Ticket        string          `json:"Ticket"`
	TargetURI     string          `json:"TargetUri"`
}
