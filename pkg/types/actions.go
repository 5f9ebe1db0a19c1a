package types

// ActionKind identifies the work a PendingAction asks the session worker to do.
type ActionKind int

const (
	ActionDummy ActionKind = iota
	ActionRefresh
	ActionTestWithRefresh
	ActionConnectPrinterModels
	ActionConnectStatus
	ActionAvatar
	ActionDataByID
	// ActionCodeExchange trades an authorization code for tokens.
	ActionCodeExchange
)

var actionNames = map[ActionKind]string{
	ActionDummy:                "dummy",
	ActionRefresh:              "refresh",
	ActionTestWithRefresh:      "test_with_refresh",
	ActionConnectPrinterModels: "connect_printer_models",
	ActionConnectStatus:        "connect_status",
	ActionAvatar:               "avatar",
	ActionDataByID:             "data_by_id",
	ActionCodeExchange:         "code_exchange",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// SuccessFunc receives the raw response body of a finished action.
type SuccessFunc func(body []byte)

// FailureFunc receives the error of a failed action.
type FailureFunc func(err error)

// PendingAction is one entry of the session's FIFO action queue.
type PendingAction struct {
	Kind      ActionKind
	OnSuccess SuccessFunc
	OnFailure FailureFunc
	Payload   string
}
