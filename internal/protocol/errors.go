package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Action/business layer.
	ErrBadRequest       = "E_BAD_REQUEST"
	ErrNotFound         = "E_NOT_FOUND"
	ErrNoSpace          = "E_NO_SPACE"
	ErrInvalidOperation = "E_INVALID_OPERATION"
	ErrUnimplemented    = "E_UNIMPLEMENTED"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrNotFound:         {},
	ErrNoSpace:          {},
	ErrInvalidOperation: {},
	ErrUnimplemented:    {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
