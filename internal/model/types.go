package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID   string    `json:"request_id"`
	Timestamp   time.Time `json:"timestamp"`
	Command     string    `json:"command"`
	SourceChain string    `json:"source_chain,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
}

// Amounts are base-unit decimal strings; byte payloads are 0x-prefixed hex.

type Plan struct {
	SourceChain          string             `json:"source_chain"`
	DestinationChain     string             `json:"destination_chain"`
	HoldingAccount       string             `json:"holding_account"`
	DestinationContract  string             `json:"destination_contract"`
	Signer               string             `json:"signer"`
	MinSettlementOut     string             `json:"min_settlement_out"`
	AssumedSettlementOut string             `json:"assumed_settlement_out"`
	Tokens               []TokenQuote       `json:"tokens"`
	Skipped              []SkippedToken     `json:"skipped"`
	Executors            []ExecutorCall     `json:"executors"`
	Bridge               BridgeCall         `json:"bridge"`
	Validation           Validation         `json:"validation"`
	Warnings             []PreflightWarning `json:"warnings"`
}

type TokenQuote struct {
	Symbol     string `json:"symbol"`
	Token      string `json:"token"`
	Balance    string `json:"balance"`
	AssumedOut string `json:"assumed_out"`
	MinOut     string `json:"min_out"`
	Executor   string `json:"executor"`
	Shape      string `json:"shape"`
}

type SkippedToken struct {
	Symbol string `json:"symbol"`
	Token  string `json:"token"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type ExecutorCall struct {
	Executor string `json:"executor"`
	Value    string `json:"value"`
	Data     string `json:"data"`
}

type BridgeCall struct {
	Tool            string            `json:"tool,omitempty"`
	CallTarget      string            `json:"call_target"`
	CallData        string            `json:"call_data"`
	NativeValue     string            `json:"native_value"`
	BridgeAmount    string            `json:"bridge_amount"`
	ContractBalance string            `json:"contract_balance"`
	ToAmountMin     string            `json:"to_amount_min,omitempty"`
	Diagnostics     BridgeDiagnostics `json:"diagnostics"`
}

type BridgeDiagnostics struct {
	Selector string          `json:"selector,omitempty"`
	Method   string          `json:"method,omitempty"`
	Args     []DiagnosticArg `json:"args,omitempty"`
	Note     string          `json:"note,omitempty"`
}

type DiagnosticArg struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Validation struct {
	Tokens              []TokenValidation `json:"tokens"`
	NativeBalance       string            `json:"native_balance"`
	RequiredNative      string            `json:"required_native"`
	HasSufficientNative bool              `json:"has_sufficient_native"`
	TargetMatchesRouter bool              `json:"target_matches_router"`
}

type TokenValidation struct {
	Symbol       string `json:"symbol"`
	Token        string `json:"token"`
	Required     string `json:"required"`
	Balance      string `json:"balance"`
	Allowance    string `json:"allowance"`
	HasAllowance bool   `json:"has_allowance"`
}

type PreflightWarning struct {
	Kind    string `json:"kind"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

type Execution struct {
	Mode           string `json:"mode"`
	From           string `json:"from"`
	Contract       string `json:"contract"`
	Calldata       string `json:"calldata"`
	Value          string `json:"value"`
	Gas            uint64 `json:"gas"`
	GasLimit       uint64 `json:"gas_limit"`
	FallbackGas    bool   `json:"fallback_gas"`
	GasPrice       string `json:"gas_price"`
	MaxPriorityFee string `json:"max_priority_fee"`
	MaxFee         string `json:"max_fee"`
	EstimatedCost  string `json:"estimated_cost"`
	Status         string `json:"status"`
	TxHash         string `json:"tx_hash,omitempty"`
	BlockNumber    uint64 `json:"block_number,omitempty"`
	GasUsed        uint64 `json:"gas_used,omitempty"`
}

type Run struct {
	Plan      Plan      `json:"plan"`
	Execution Execution `json:"execution"`
}

type DecodedRoute struct {
	Version   string         `json:"version"`
	Shape     string         `json:"shape"`
	Method    string         `json:"method"`
	Inputs    []RouteInput   `json:"inputs"`
	Outputs   []RouteOutput  `json:"outputs"`
	Executors []ExecutorCall `json:"executors"`
}

type RouteInput struct {
	Token      string `json:"token"`
	AmountIn   string `json:"amount_in"`
	TransferTo string `json:"transfer_to"`
}

type RouteOutput struct {
	Token        string `json:"token"`
	Recipient    string `json:"recipient"`
	AmountOutMin string `json:"amount_out_min"`
}
