package reconciler

import (
	"context"
	"net/url"
	"time"

	"github.com/func/avictl/compare"
	"github.com/func/avictl/controller"
	"github.com/func/avictl/object"
	"github.com/func/avictl/resource"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Controller is the part of the controller client the reconciler uses.
type Controller interface {
	GetByName(ctx context.Context, typ, name string, scope controller.Scope, params url.Values) (*object.Object, error)
	Get(ctx context.Context, path string, scope controller.Scope, params url.Values) (*object.Object, error)
	Create(ctx context.Context, typ string, payload *object.Object, scope controller.Scope) (*object.Object, error)
	Update(ctx context.Context, typ, uuid string, payload *object.Object, scope controller.Scope) (*object.Object, error)
	DeleteByName(ctx context.Context, typ, name string, scope controller.Scope) (*controller.Response, error)
	Do(ctx context.Context, req *controller.Request) (*controller.Response, error)
}

// State is the desired existence of an object.
type State string

// States.
const (
	Present State = "present"
	Absent  State = "absent"
)

// Action is the write performed by a reconciliation.
type Action int

// Actions.
const (
	None Action = iota
	Create
	Update
	Delete
)

func (a Action) String() string {
	switch a {
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	}
	return "none"
}

// A Request describes the desired state of one object.
type Request struct {
	Type string
	Name string

	// State defaults to Present.
	State State

	// Desired fields. The name is always set from Name. Ignored when State is
	// Absent.
	Desired *object.Object

	// Sensitive fields in addition to the ones marked in the type's schema.
	// They are not compared, and only sent on create.
	Sensitive []string

	Scope controller.Scope
}

// An Outcome is the result of a reconciliation.
type Outcome struct {
	Changed bool
	Action  Action

	// Object is the object on the controller after the reconciliation. In dry
	// run mode it is the existing object, or the payload that would be created.
	// Nil after a delete.
	Object *object.Object

	// Diff is set when an existing object was compared.
	Diff compare.Result

	Err error
}

// identity fields are set by the controller and never compared or sent.
var identity = []string{"url", "uuid", "_last_modified"}

// getParams are used when fetching an object to compare.
var getParams = url.Values{
	"include_refs": {"true"},
	"include_name": {"true"},
}

// A Reconciler reconciles controller objects.
//
// See package doc for details.
type Reconciler struct {
	Controller Controller

	// Registry provides schemas. Types not in the registry, or any type if the
	// registry is nil, are handled without a schema.
	Registry *resource.Registry

	// DryRun computes changes without writing them.
	DryRun bool

	// Settle returns the time to wait after a patch before reading the object
	// back. If not set, DefaultSettle is used.
	Settle SettlePolicy

	// Logger logs reconciliation updates. If not set, logs are discarded.
	Logger *zap.Logger

	// Metrics records results. Optional.
	Metrics *Metrics
}

func (r *Reconciler) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Reconcile drives one object to its desired state.
//
// Errors are reported in the Outcome. Controller errors carry the
// controller's message verbatim.
//
// Reconciling the same object concurrently is not safe; see package doc.
func (r *Reconciler) Reconcile(ctx context.Context, req *Request) *Outcome {
	start := time.Now()
	logger := r.logger().With(
		zap.String("id", ksuid.New().String()),
		zap.String("type", req.Type),
		zap.String("name", req.Name),
	)
	if r.DryRun {
		logger = logger.With(zap.Bool("dry_run", true))
	}

	var out *Outcome
	switch {
	case req.Type == "" || req.Name == "":
		out = &Outcome{Err: errors.New("type and name are required")}
	case req.State == "" || req.State == Present:
		out = r.present(ctx, logger, req)
	case req.State == Absent:
		out = r.absent(ctx, logger, req)
	default:
		out = &Outcome{Err: errors.Errorf("invalid state %q, must be %s or %s", req.State, Present, Absent)}
	}

	r.Metrics.observe(req.Type, out, time.Since(start))
	if out.Err != nil {
		logger.Info("Failed", zap.Error(out.Err))
		return out
	}
	logger.Info("Done", zap.Stringer("action", out.Action), zap.Bool("changed", out.Changed))
	return out
}

func (r *Reconciler) absent(ctx context.Context, logger *zap.Logger, req *Request) *Outcome {
	if r.DryRun {
		existing, err := r.Controller.GetByName(ctx, req.Type, req.Name, req.Scope, nil)
		if controller.IsNotFound(err) {
			return &Outcome{}
		}
		if err != nil {
			return &Outcome{Err: err}
		}
		return &Outcome{Changed: true, Action: Delete, Object: existing}
	}

	resp, err := r.Controller.DeleteByName(ctx, req.Type, req.Name, req.Scope)
	if controller.IsNotFound(err) {
		logger.Debug("Already absent")
		return &Outcome{}
	}
	if err != nil {
		return &Outcome{Err: err}
	}
	logger.Debug("Deleted", zap.Int("status", resp.StatusCode))
	return &Outcome{Changed: true, Action: Delete}
}

func (r *Reconciler) present(ctx context.Context, logger *zap.Logger, req *Request) *Outcome {
	desired, sensitive, err := r.normalize(req)
	if err != nil {
		return &Outcome{Err: err}
	}

	existing, err := r.Controller.GetByName(ctx, req.Type, req.Name, req.Scope, getParams)
	if controller.IsNotFound(err) {
		payload := stripPayload(desired, nil)
		if r.DryRun {
			return &Outcome{Changed: true, Action: Create, Object: payload}
		}
		created, err := r.Controller.Create(ctx, req.Type, payload, req.Scope)
		if err != nil {
			return &Outcome{Err: err}
		}
		logger.Debug("Created")
		return &Outcome{Changed: true, Action: Create, Object: created}
	}
	if err != nil {
		return &Outcome{Err: err}
	}

	diff := compare.Objects(desired, existing, compare.Sensitive(sensitive...))
	if diff.Equal {
		logger.Debug("Up to date")
		return &Outcome{Object: existing, Diff: diff}
	}
	logger.Debug("Differs", zap.Strings("fields", diff.Paths()))

	uuid, ok := existing.GetString("uuid")
	if !ok {
		return &Outcome{Err: errors.Errorf("%s %s: controller object has no uuid", req.Type, req.Name)}
	}
	if r.DryRun {
		return &Outcome{Changed: true, Action: Update, Object: existing, Diff: diff}
	}
	updated, err := r.Controller.Update(ctx, req.Type, uuid, stripPayload(desired, sensitive), req.Scope)
	if err != nil {
		return &Outcome{Err: err}
	}
	logger.Debug("Updated", zap.String("uuid", uuid))
	return &Outcome{Changed: true, Action: Update, Object: updated, Diff: diff}
}

// normalize returns the normalized desired object and the sensitive fields.
func (r *Reconciler) normalize(req *Request) (*object.Object, []string, error) {
	desired := req.Desired.Clone()
	if desired == nil {
		desired = object.New()
	}
	desired.Set("name", object.StringValue(req.Name))

	var sensitive []string
	if s := r.schema(req.Type); s != nil {
		out, err := s.Normalize(desired)
		if err != nil {
			return nil, nil, err
		}
		desired = out
		sensitive = s.SensitiveFields()
	} else {
		desired = normalizeGeneric(desired)
	}
	return desired, append(sensitive, req.Sensitive...), nil
}
