package bridge

import (
	"fmt"

	"vozflow/apperr"
	"vozflow/log"
)

// Result is the envelope every bridge operation returns, in process and on
// the wire.
type Result struct {
	OK    bool        `json:"ok"`
	Data  any         `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Kind  apperr.Kind `json:"kind,omitempty"`
}

func okResult(data any) Result { return Result{OK: true, Data: data} }

func errResult(err error) Result {
	return Result{Error: apperr.Message(err), Kind: apperr.KindOf(err)}
}

// guard runs fn and converts both errors and panics into a failed Result.
func guard(op string, fn func() (any, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("bridge %s panicked: %v", op, r)
			res = Result{Error: fmt.Sprintf("%s: internal error", op)}
		}
	}()
	data, err := fn()
	if err != nil {
		return errResult(err)
	}
	return okResult(data)
}
