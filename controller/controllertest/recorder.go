// Package controllertest provides helpers for testing code that talks to a
// controller.
package controllertest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/func/avictl/controller"
	"github.com/func/avictl/object"
	"github.com/google/go-cmp/cmp"
)

type client interface {
	GetByName(ctx context.Context, typ, name string, scope controller.Scope, params url.Values) (*object.Object, error)
	Get(ctx context.Context, path string, scope controller.Scope, params url.Values) (*object.Object, error)
	Create(ctx context.Context, typ string, payload *object.Object, scope controller.Scope) (*object.Object, error)
	Update(ctx context.Context, typ, uuid string, payload *object.Object, scope controller.Scope) (*object.Object, error)
	DeleteByName(ctx context.Context, typ, name string, scope controller.Scope) (*controller.Response, error)
	Do(ctx context.Context, req *controller.Request) (*controller.Response, error)
}

// A Recorder acts as a wrapper to a controller client. It records all calls
// for test or debugging purposes.
type Recorder struct {
	Client client

	mu     sync.Mutex
	Events Events
}

// Events is a collection of events.
type Events []Event

// Methods returns the called methods in order.
func (ee Events) Methods() []string {
	out := make([]string, len(ee))
	for i, e := range ee {
		out[i] = e.Method
	}
	return out
}

// Writes returns the successful calls that may have modified the
// controller.
func (ee Events) Writes() Events {
	var out Events
	for _, e := range ee {
		if e.Err != nil {
			continue
		}
		switch e.Method {
		case "Create", "Update", "DeleteByName":
			out = append(out, e)
		case "Do":
			if r, ok := e.Data.(*controller.Request); ok && r.Method != http.MethodGet {
				out = append(out, e)
			}
		}
	}
	return out
}

// Diff returns a diff of events. Returns an empty string if the events are equal.
func (ee Events) Diff(other Events) string {
	return cmp.Diff(ee, other, cmp.Comparer(func(a, b Event) bool {
		return a.Equals(b)
	}))
}

// String returns a string of all events that have occurred.
//
// If no events have been recorded, returns
//
//	<no events>
func (ee Events) String() string {
	if len(ee) == 0 {
		return "<no events>"
	}
	ss := make([]string, len(ee))
	for i, e := range ee {
		ss[i] = e.String()
	}
	return fmt.Sprintf("%v", ss)
}

// An Event is a recorded call.
type Event struct {
	Method string      // Called method.
	Target string      // Type and name, or path.
	Data   interface{} // Payload or request, depending on the method.
	Err    error       // Error that was returned from call.
}

// Equals returns true if the two events are equal. Errors are compared by
// message.
func (ev Event) Equals(other Event) bool {
	if ev.Method != other.Method || ev.Target != other.Target {
		return false
	}
	if !cmp.Equal(ev.Data, other.Data) {
		return false
	}
	if (ev.Err == nil) != (other.Err == nil) {
		return false
	}
	return ev.Err == nil || ev.Err.Error() == other.Err.Error()
}

func (ev Event) String() string {
	var buf bytes.Buffer
	buf.WriteString(ev.Method)
	buf.WriteString("(")
	buf.WriteString(ev.Target)
	buf.WriteString(")")
	if ev.Data != nil {
		fmt.Fprintf(&buf, " data: %v", ev.Data)
	}
	if ev.Err != nil {
		buf.WriteString(" -> ")
		buf.WriteString(ev.Err.Error())
	}
	return buf.String()
}

func (r *Recorder) record(ev Event) {
	r.mu.Lock()
	r.Events = append(r.Events, ev)
	r.mu.Unlock()
}

// Reset clears recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.Events = nil
	r.mu.Unlock()
}

// GetByName calls the corresponding method on the underlying client and
// records the event.
func (r *Recorder) GetByName(ctx context.Context, typ, name string, scope controller.Scope, params url.Values) (*object.Object, error) {
	obj, err := r.Client.GetByName(ctx, typ, name, scope, params)
	r.record(Event{Method: "GetByName", Target: typ + "/" + name, Err: err})
	return obj, err
}

// Get calls the corresponding method on the underlying client and records the
// event.
func (r *Recorder) Get(ctx context.Context, path string, scope controller.Scope, params url.Values) (*object.Object, error) {
	obj, err := r.Client.Get(ctx, path, scope, params)
	r.record(Event{Method: "Get", Target: path, Err: err})
	return obj, err
}

// Create calls the corresponding method on the underlying client and records
// the event.
//
// The payload is set as event data.
func (r *Recorder) Create(ctx context.Context, typ string, payload *object.Object, scope controller.Scope) (*object.Object, error) {
	obj, err := r.Client.Create(ctx, typ, payload, scope)
	r.record(Event{Method: "Create", Target: typ, Data: payload.Clone(), Err: err})
	return obj, err
}

// Update calls the corresponding method on the underlying client and records
// the event.
//
// The payload is set as event data.
func (r *Recorder) Update(ctx context.Context, typ, uuid string, payload *object.Object, scope controller.Scope) (*object.Object, error) {
	obj, err := r.Client.Update(ctx, typ, uuid, payload, scope)
	r.record(Event{Method: "Update", Target: typ + "/" + uuid, Data: payload.Clone(), Err: err})
	return obj, err
}

// DeleteByName calls the corresponding method on the underlying client and
// records the event.
func (r *Recorder) DeleteByName(ctx context.Context, typ, name string, scope controller.Scope) (*controller.Response, error) {
	resp, err := r.Client.DeleteByName(ctx, typ, name, scope)
	r.record(Event{Method: "DeleteByName", Target: typ + "/" + name, Err: err})
	return resp, err
}

// Do calls the corresponding method on the underlying client and records the
// event.
//
// The request is set as event data.
func (r *Recorder) Do(ctx context.Context, req *controller.Request) (*controller.Response, error) {
	resp, err := r.Client.Do(ctx, req)
	r.record(Event{Method: "Do", Target: req.Method + " " + req.Path, Data: req, Err: err})
	return resp, err
}
