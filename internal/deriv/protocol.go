package deriv

import (
	"strconv"

	"github.com/yanun0323/errors"
)

// DefaultEndpoint is the public Deriv websocket endpoint with the demo app id.
const DefaultEndpoint = "wss://ws.derivws.com/websockets/v3?app_id=1089"

var ErrUnknownMode = errors.New("deriv: unknown trade mode")

// ContractKind is the venue's binary contract vocabulary. Rise/fall are
// kept in their generic form internally and translated to the venue's
// CALL/PUT names only when a buy request is built.
type ContractKind string

const (
	ContractDigitEven  ContractKind = "DIGITEVEN"
	ContractDigitOdd   ContractKind = "DIGITODD"
	ContractDigitDiff  ContractKind = "DIGITDIFF"
	ContractDigitOver  ContractKind = "DIGITOVER"
	ContractDigitUnder ContractKind = "DIGITUNDER"
	ContractRise       ContractKind = "RISE"
	ContractFall       ContractKind = "FALL"
)

// APIType returns the contract_type string the venue expects.
func (k ContractKind) APIType() string {
	switch k {
	case ContractRise:
		return "CALL"
	case ContractFall:
		return "PUT"
	default:
		return string(k)
	}
}

// NeedsBarrier reports whether the kind is parameterized by a digit barrier.
func (k ContractKind) NeedsBarrier() bool {
	switch k {
	case ContractDigitDiff, ContractDigitOver, ContractDigitUnder:
		return true
	default:
		return false
	}
}

// TradeMode selects which signal family the engine evaluates.
type TradeMode string

const (
	ModeAuto     TradeMode = "auto"
	ModeOver     TradeMode = "over"
	ModeUnder    TradeMode = "under"
	ModeDiffers  TradeMode = "differs"
	ModeEvenOdd  TradeMode = "evenodd"
	ModeRiseFall TradeMode = "risefall"
)

// ParseTradeMode converts a config string into a TradeMode.
func ParseTradeMode(s string) (TradeMode, error) {
	switch TradeMode(s) {
	case ModeAuto, ModeOver, ModeUnder, ModeDiffers, ModeEvenOdd, ModeRiseFall:
		return TradeMode(s), nil
	default:
		return "", errors.Wrap(ErrUnknownMode, s)
	}
}

// VolatilityIndices lists the synthetic index feeds covered by the "all"
// instrument selection, in the order they are subscribed.
var VolatilityIndices = []string{
	"R_10", "R_25", "R_50", "R_75", "R_100",
	"1HZ10V", "1HZ25V", "1HZ50V", "1HZ75V", "1HZ100V",
}

// ExpandSymbols resolves an instrument selection into concrete symbols.
func ExpandSymbols(selection string) []string {
	if selection == "" || selection == "all" {
		out := make([]string, len(VolatilityIndices))
		copy(out, VolatilityIndices)
		return out
	}
	return []string{selection}
}

// Outbound request shapes. Fields not set are absent on the wire.

type AuthorizeRequest struct {
	Authorize string `json:"authorize"`
}

type PingRequest struct {
	Ping int `json:"ping"`
}

func NewPingRequest() PingRequest { return PingRequest{Ping: 1} }

type BalanceRequest struct {
	Balance   int `json:"balance"`
	Subscribe int `json:"subscribe"`
}

func NewBalanceRequest() BalanceRequest { return BalanceRequest{Balance: 1, Subscribe: 1} }

type TicksRequest struct {
	Ticks     string `json:"ticks"`
	Subscribe int    `json:"subscribe"`
}

func NewTicksRequest(symbol string) TicksRequest {
	return TicksRequest{Ticks: symbol, Subscribe: 1}
}

type ForgetAllRequest struct {
	ForgetAll string `json:"forget_all"`
}

// NewForgetTicksRequest cancels every active tick subscription at once.
func NewForgetTicksRequest() ForgetAllRequest { return ForgetAllRequest{ForgetAll: "ticks"} }

type BuyParameters struct {
	Amount       float64 `json:"amount"`
	Basis        string  `json:"basis"`
	ContractType string  `json:"contract_type"`
	Currency     string  `json:"currency"`
	Duration     int     `json:"duration"`
	DurationUnit string  `json:"duration_unit"`
	Symbol       string  `json:"symbol"`
	Barrier      string  `json:"barrier,omitempty"`
}

type BuyRequest struct {
	Buy        int           `json:"buy"`
	Price      float64       `json:"price"`
	Parameters BuyParameters `json:"parameters"`
}

// NewBuyRequest builds a one-tick stake-basis buy. The barrier is only
// attached for kinds parameterized by a digit.
func NewBuyRequest(symbol string, kind ContractKind, barrier int, hasBarrier bool, stake float64) BuyRequest {
	req := BuyRequest{
		Buy:   1,
		Price: stake,
		Parameters: BuyParameters{
			Amount:       stake,
			Basis:        "stake",
			ContractType: kind.APIType(),
			Currency:     "USD",
			Duration:     1,
			DurationUnit: "t",
			Symbol:       symbol,
		},
	}
	if hasBarrier && kind.NeedsBarrier() {
		req.Parameters.Barrier = strconv.Itoa(barrier)
	}
	return req
}

type OpenContractRequest struct {
	ProposalOpenContract int   `json:"proposal_open_contract"`
	ContractID           int64 `json:"contract_id"`
	Subscribe            int   `json:"subscribe"`
}

// NewOpenContractRequest subscribes to the settlement stream of one order.
func NewOpenContractRequest(contractID int64) OpenContractRequest {
	return OpenContractRequest{ProposalOpenContract: 1, ContractID: contractID, Subscribe: 1}
}
