package deriv

import (
	"encoding/json"

	"github.com/yanun0323/errors"
)

// Inbound msg_type discriminants.
const (
	MsgTypeAuthorize    = "authorize"
	MsgTypeBalance      = "balance"
	MsgTypeTick         = "tick"
	MsgTypeBuy          = "buy"
	MsgTypeOpenContract = "proposal_open_contract"
)

// APIError is the error object any inbound message may carry, either
// alongside or instead of its payload.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Message is the parsed inbound envelope. Exactly one payload pointer is
// non-nil for a well-formed message of a known type; unknown types parse
// with all payloads nil and are skipped by the controller.
type Message struct {
	MsgType      string               `json:"msg_type"`
	Error        *APIError            `json:"error"`
	Tick         *TickPayload         `json:"tick"`
	Buy          *BuyPayload          `json:"buy"`
	OpenContract *OpenContractPayload `json:"proposal_open_contract"`
	Balance      *BalancePayload      `json:"balance"`
}

type TickPayload struct {
	Symbol string  `json:"symbol"`
	Quote  float64 `json:"quote"`
}

type BuyPayload struct {
	ContractID int64   `json:"contract_id"`
	BuyPrice   float64 `json:"buy_price"`
	LongCode   string  `json:"longcode"`
}

type OpenContractPayload struct {
	ContractID int64   `json:"contract_id"`
	IsSold     int     `json:"is_sold"`
	Profit     float64 `json:"profit"`
}

// Sold reports whether the contract reached its terminal settled state.
func (p *OpenContractPayload) Sold() bool { return p != nil && p.IsSold != 0 }

type BalancePayload struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// ParseMessage decodes one inbound frame. Callers treat a returned error
// as a droppable malformed frame, never as a session fault.
func ParseMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, errors.Wrap(err, "parse inbound frame")
	}
	return msg, nil
}
