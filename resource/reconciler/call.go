package reconciler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/func/avictl/compare"
	"github.com/func/avictl/controller"
	"github.com/func/avictl/object"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// SettlePolicy returns how long to wait after patching path before reading
// the object back.
type SettlePolicy func(path string) time.Duration

// DefaultSettle waits one second for pools, whose patched state is applied
// asynchronously, and not at all for anything else.
func DefaultSettle(path string) time.Duration {
	if strings.HasPrefix(strings.TrimPrefix(path, "/"), "pool") {
		return time.Second
	}
	return 0
}

// A CallRequest is a single ad-hoc REST call.
type CallRequest struct {
	// Method is one of get, post, put, patch or delete, in any case.
	Method string
	// Path relative to /api/.
	Path   string
	Params url.Values

	// Data is the request body. DataJSON is used if Data is nil.
	Data     *object.Object
	DataJSON string

	// Timeout overrides the session timeout.
	Timeout time.Duration
	Scope   controller.Scope
}

// A CallOutcome is the result of a call.
type CallOutcome struct {
	Changed    bool
	StatusCode int
	Object     *object.Object
	// Body is the raw response body of a failed call.
	Body []byte
	Err  error
}

// Call issues an ad-hoc call. Writes are skipped when they would not change
// the object:
//
//	get     never changed.
//	post    changed on success.
//	put     compares with the existing object and only writes when it
//	        differs. Posts to the collection if the object does not exist.
//	patch   compares the object before and after the patch.
//	delete  deleting a missing object is not a change.
//
// Statuses of 400 and above are errors carrying the response body.
func (r *Reconciler) Call(ctx context.Context, req *CallRequest) *CallOutcome {
	method := strings.ToLower(req.Method)
	logger := r.logger().With(
		zap.String("id", ksuid.New().String()),
		zap.String("method", method),
		zap.String("path", req.Path),
	)
	if r.DryRun {
		logger = logger.With(zap.Bool("dry_run", true))
	}

	out := r.call(ctx, logger, method, req)

	r.Metrics.observeCall(method, out)
	if out.Err != nil {
		logger.Info("Failed", zap.Int("status", out.StatusCode), zap.Error(out.Err))
		return out
	}
	logger.Info("Done", zap.Int("status", out.StatusCode), zap.Bool("changed", out.Changed))
	return out
}

func (r *Reconciler) call(ctx context.Context, logger *zap.Logger, method string, req *CallRequest) *CallOutcome {
	data := req.Data
	if data == nil && req.DataJSON != "" {
		obj, err := object.ParseJSON([]byte(req.DataJSON))
		if err != nil {
			return &CallOutcome{Err: errors.Wrap(err, "parse data")}
		}
		data = obj
	}
	c := &caller{r: r, req: req, logger: logger, data: data}

	switch method {
	case "get":
		return c.do(ctx, http.MethodGet, req.Path, nil, req.Params, false)
	case "post":
		if r.DryRun {
			return &CallOutcome{Changed: true, Object: data}
		}
		return c.do(ctx, http.MethodPost, req.Path, data, req.Params, true)
	case "put":
		return c.put(ctx)
	case "patch":
		return c.patch(ctx)
	case "delete":
		return c.delete(ctx)
	}
	return &CallOutcome{Err: errors.Errorf("unsupported method %q, must be get, post, put, patch or delete", req.Method)}
}

type caller struct {
	r      *Reconciler
	req    *CallRequest
	logger *zap.Logger
	data   *object.Object
}

// do sends a request. Changed is set to changed if the call succeeds.
func (c *caller) do(ctx context.Context, method, path string, body *object.Object, params url.Values, changed bool) *CallOutcome {
	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &CallOutcome{Err: errors.Wrap(err, "encode data")}
		}
		raw = b
	}
	resp, err := c.r.Controller.Do(ctx, &controller.Request{
		Method:  method,
		Path:    path,
		Params:  params,
		Body:    raw,
		Scope:   c.req.Scope,
		Timeout: c.req.Timeout,
	})
	if err != nil {
		return &CallOutcome{Err: err}
	}
	out := &CallOutcome{StatusCode: resp.StatusCode}
	if err := controller.StatusError(resp); err != nil {
		out.Err = err
		out.Body = resp.Body
		return out
	}
	obj, err := resp.Object()
	if err != nil {
		// Not every endpoint returns an object.
		c.logger.Debug("Response is not an object", zap.Error(err))
	}
	out.Object = obj
	out.Changed = changed
	return out
}

func (c *caller) fetchParams() url.Values {
	q := url.Values{}
	for k, v := range c.req.Params {
		q[k] = v
	}
	for k, v := range getParams {
		q[k] = v
	}
	return q
}

func (c *caller) put(ctx context.Context) *CallOutcome {
	existing := c.do(ctx, http.MethodGet, c.req.Path, nil, c.fetchParams(), false)
	if existing.StatusCode == http.StatusNotFound {
		path := collection(c.req.Path)
		c.logger.Debug("Not found, posting", zap.String("collection", path))
		if c.r.DryRun {
			return &CallOutcome{Changed: true, Object: c.data}
		}
		return c.do(ctx, http.MethodPost, path, c.payload(), c.req.Params, true)
	}
	if existing.Err != nil {
		return existing
	}
	if existing.Object != nil && c.data != nil {
		diff := compare.Objects(normalizeGeneric(c.data), existing.Object)
		if diff.Equal {
			c.logger.Debug("Up to date")
			return existing
		}
		c.logger.Debug("Differs", zap.Strings("fields", diff.Paths()))
	}
	if c.r.DryRun {
		return &CallOutcome{Changed: true, StatusCode: existing.StatusCode, Object: existing.Object}
	}
	return c.do(ctx, http.MethodPut, c.req.Path, c.payload(), c.req.Params, true)
}

// payload is the data to write with absent markers removed. A put replaces
// the object, so leaving a field out clears it.
func (c *caller) payload() *object.Object {
	if c.data == nil {
		return nil
	}
	return stripPayload(c.data, nil)
}

func (c *caller) patch(ctx context.Context) *CallOutcome {
	before := c.do(ctx, http.MethodGet, c.req.Path, nil, c.fetchParams(), false)
	if before.Err != nil && before.StatusCode != http.StatusNotFound {
		return before
	}
	if c.r.DryRun {
		return &CallOutcome{Changed: true, StatusCode: before.StatusCode, Object: before.Object}
	}
	patched := c.do(ctx, http.MethodPatch, c.req.Path, c.data, c.req.Params, true)
	if patched.Err != nil {
		return patched
	}

	settle := c.r.Settle
	if settle == nil {
		settle = DefaultSettle
	}
	if d := settle(c.req.Path); d > 0 {
		c.logger.Debug("Settling", zap.Duration("duration", d))
		select {
		case <-ctx.Done():
			return &CallOutcome{StatusCode: patched.StatusCode, Err: ctx.Err()}
		case <-time.After(d):
		}
	}

	after := c.do(ctx, http.MethodGet, c.req.Path, nil, c.fetchParams(), false)
	if after.Err != nil {
		return after
	}
	patched.Object = after.Object
	patched.Changed = !sameObject(before.Object, after.Object)
	return patched
}

func (c *caller) delete(ctx context.Context) *CallOutcome {
	if c.r.DryRun {
		existing := c.do(ctx, http.MethodGet, c.req.Path, nil, c.req.Params, false)
		if existing.StatusCode == http.StatusNotFound {
			return &CallOutcome{StatusCode: http.StatusOK}
		}
		if existing.Err != nil {
			return existing
		}
		return &CallOutcome{Changed: true, StatusCode: existing.StatusCode, Object: existing.Object}
	}
	out := c.do(ctx, http.MethodDelete, c.req.Path, c.data, c.req.Params, true)
	if out.StatusCode == http.StatusNotFound {
		return &CallOutcome{StatusCode: http.StatusOK}
	}
	return out
}

// collection returns the collection of an object path: pool/pool-1 -> pool.
func collection(path string) string {
	p := strings.Trim(strings.TrimPrefix(strings.TrimPrefix(path, "/"), "api/"), "/")
	if i := strings.Index(p, "/"); i >= 0 {
		return p[:i]
	}
	return p
}

// sameObject reports whether two fetched objects are equal in both
// directions.
func sameObject(a, b *object.Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return compare.Equal(a, b) && compare.Equal(b, a)
}
