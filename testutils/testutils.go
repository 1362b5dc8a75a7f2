package testutils

import (
	"context"
	"encoding/json"
	"sync"

	oerrors "github.com/pushchain/chain-orchestrator/orchestrator/errors"
)

// FakeRPC is an rpcpool.Caller answering JSON-RPC methods from canned
// values, errors or handlers. A canned error value is returned as the call
// error; a nil value decodes as JSON null.
type FakeRPC struct {
	mu        sync.Mutex
	responses map[string]any
	handlers  map[string]func(params []any) (any, error)
	calls     []Call
}

// Call is one recorded request.
type Call struct {
	Method string
	Params []any
}

func NewFakeRPC() *FakeRPC {
	return &FakeRPC{
		responses: map[string]any{},
		handlers:  map[string]func(params []any) (any, error){},
	}
}

// On sets the canned response for method.
func (f *FakeRPC) On(method string, value any) *FakeRPC {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[method] = value
	return f
}

// Handle installs a handler for method, taking precedence over On.
func (f *FakeRPC) Handle(method string, h func(params []any) (any, error)) *FakeRPC {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
	return f
}

func (f *FakeRPC) Call(_ context.Context, result any, method string, params ...any) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Params: params})
	handler, hasHandler := f.handlers[method]
	value, hasValue := f.responses[method]
	f.mu.Unlock()

	if hasHandler {
		var err error
		if value, err = handler(params); err != nil {
			return err
		}
	} else if !hasValue {
		return oerrors.NewNetworkError("fake", "no response for "+method, nil)
	}
	if err, ok := value.(error); ok {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(raw, result)
}

// Called returns how many times method was requested.
func (f *FakeRPC) Called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the most recent request for method.
func (f *FakeRPC) LastCall(method string) (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Method == method {
			return f.calls[i], true
		}
	}
	return Call{}, false
}
