package emulator

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/func/avictl/compare"
	"github.com/func/avictl/object"
	"github.com/func/avictl/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Objects visible from every tenant live here.
const sharedTenant = "admin"

// httpError is an error with a status code, written to the client verbatim.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	var herr *httpError
	if errors.As(err, &herr) {
		writeError(w, herr.status, herr.msg)
		return
	}
	if errors.Cause(err) == storage.ErrNotFound {
		writeError(w, http.StatusNotFound, "Object not found")
		return
	}
	s.logger.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

func tenantOf(r *http.Request) (string, error) {
	t := r.Header.Get("X-Avi-Tenant-UUID")
	if t == "" {
		t = r.Header.Get("X-Avi-Tenant")
	}
	if t == "" {
		t = sharedTenant
	}
	if strings.Contains(t, "/") {
		return "", badRequest("Invalid tenant %q", t)
	}
	return t, nil
}

func baseOf(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func includeName(r *http.Request) bool {
	v := r.URL.Query().Get("include_name")
	return v != "" && v != "false" && v != "0"
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ := chi.URLParam(r, "type")
	tenant, err := tenantOf(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	recs, err := s.store.List(ctx, tenant, typ)
	if err != nil {
		s.fail(w, err)
		return
	}
	name, filter := r.URL.Query()["name"]
	results := make([]*object.Object, 0, len(recs))
	for _, rec := range recs {
		if filter && nameOf(rec.Object) != name[0] {
			continue
		}
		out, err := s.render(ctx, r, rec)
		if err != nil {
			s.fail(w, err)
			return
		}
		results = append(results, out)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant, err := tenantOf(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	rec, err := s.store.Get(ctx, tenant, chi.URLParam(r, "type"), chi.URLParam(r, "uuid"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, r, http.StatusOK, rec)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ := chi.URLParam(r, "type")
	tenant, err := tenantOf(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.prepare(ctx, tenant, typ, "", body); err != nil {
		s.fail(w, err)
		return
	}
	id := typ + "-" + uuid.New().String()
	rec, err := s.store.Put(ctx, tenant, typ, id, body)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.objects.WithLabelValues(typ, "create").Inc()
	s.respond(w, r, http.StatusCreated, rec)
}

func (s *Server) replace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ, id := chi.URLParam(r, "type"), chi.URLParam(r, "uuid")
	tenant, err := tenantOf(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.store.Get(ctx, tenant, typ, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	// Write-only fields are kept unless replaced.
	for _, f := range s.writeOnly(typ) {
		if v, ok := existing.Object.Get(f); ok && !body.Has(f) {
			body.Set(f, v)
		}
	}
	if err := s.prepare(ctx, tenant, typ, id, body); err != nil {
		s.fail(w, err)
		return
	}
	rec, err := s.store.Put(ctx, tenant, typ, id, body)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.objects.WithLabelValues(typ, "update").Inc()
	s.respond(w, r, http.StatusOK, rec)
}

func (s *Server) patch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ, id := chi.URLParam(r, "type"), chi.URLParam(r, "uuid")
	tenant, err := tenantOf(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.store.Get(ctx, tenant, typ, id)
	if err != nil {
		s.fail(w, err)
		return
	}
	obj := existing.Object.Clone()
	for _, op := range body.Keys() {
		v, _ := body.Get(op)
		if v.Kind() != object.Map {
			s.fail(w, badRequest("Patch operation %s must be a dict", op))
			return
		}
		fields := v.Obj()
		if err := s.resolveRefs(ctx, tenant, fields); err != nil {
			s.fail(w, err)
			return
		}
		if err := applyPatch(obj, op, fields); err != nil {
			s.fail(w, err)
			return
		}
	}
	if err := s.prepare(ctx, tenant, typ, id, obj); err != nil {
		s.fail(w, err)
		return
	}
	rec, err := s.store.Put(ctx, tenant, typ, id, obj)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.objects.WithLabelValues(typ, "patch").Inc()
	s.respond(w, r, http.StatusOK, rec)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	typ := chi.URLParam(r, "type")
	tenant, err := tenantOf(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.Delete(ctx, tenant, typ, chi.URLParam(r, "uuid")); err != nil {
		s.fail(w, err)
		return
	}
	s.objects.WithLabelValues(typ, "delete").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(r *http.Request) (*object.Object, error) {
	obj, err := object.Decode(r.Body)
	if err != nil {
		return nil, badRequest("Invalid JSON: %v", err)
	}
	return obj, nil
}

func nameOf(obj *object.Object) string {
	n, _ := obj.GetString("name")
	return n
}

// prepare validates an object about to be stored under id, or a new object if
// id is empty. Controller-managed fields are dropped and references are
// resolved.
func (s *Server) prepare(ctx context.Context, tenant, typ, id string, obj *object.Object) error {
	for _, f := range []string{"uuid", "url", "_last_modified", "tenant_ref"} {
		obj.Delete(f)
	}
	name := nameOf(obj)
	if name == "" {
		return badRequest("name: This field is required.")
	}
	other, err := s.findByName(ctx, tenant, typ, name)
	if err != nil && errors.Cause(err) != storage.ErrNotFound {
		return err
	}
	if other != nil && other.UUID != id {
		return &httpError{
			status: http.StatusConflict,
			msg:    fmt.Sprintf("Object of type %s with name %s already exists", typ, name),
		}
	}
	return s.resolveRefs(ctx, tenant, obj)
}

func (s *Server) findByName(ctx context.Context, tenant, typ, name string) (*storage.Record, error) {
	recs, err := s.store.List(ctx, tenant, typ)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if nameOf(rec.Object) == name {
			return rec, nil
		}
	}
	return nil, storage.ErrNotFound
}

// lookup finds an object in the tenant, falling back to the shared tenant.
func (s *Server) lookup(ctx context.Context, tenant string, ref compare.Ref) (*storage.Record, error) {
	tenants := []string{tenant}
	if tenant != sharedTenant {
		tenants = append(tenants, sharedTenant)
	}
	for _, t := range tenants {
		var rec *storage.Record
		var err error
		if ref.UUID != "" {
			rec, err = s.store.Get(ctx, t, ref.Type, ref.UUID)
		} else {
			rec, err = s.findByName(ctx, t, ref.Type, ref.Name)
		}
		if err == nil {
			return rec, nil
		}
		if errors.Cause(err) != storage.ErrNotFound {
			return nil, err
		}
	}
	return nil, storage.ErrNotFound
}

// resolveRefs rewrites every reference in obj to its stored form,
// /api/<type>/<uuid>. Fails if a referenced object does not exist.
func (s *Server) resolveRefs(ctx context.Context, tenant string, obj *object.Object) error {
	return mapRefs(obj, func(field, raw string) (string, error) {
		ref := compare.ParseRef(raw)
		if ref.Type == "" {
			ref.Type = strings.Replace(strings.TrimSuffix(strings.TrimSuffix(field, "_refs"), "_ref"), "_", "", -1)
		}
		if ref.Type == "tenant" {
			n := ref.Name
			if n == "" {
				n = ref.UUID
			}
			return "/api/tenant/" + n, nil
		}
		rec, err := s.lookup(ctx, tenant, ref)
		if errors.Cause(err) == storage.ErrNotFound {
			return "", badRequest("%s: Cannot find object of type %s with reference %s", field, ref.Type, raw)
		}
		if err != nil {
			return "", err
		}
		return "/api/" + ref.Type + "/" + rec.UUID, nil
	})
}

// mapRefs replaces the values of all reference fields in obj, recursively.
func mapRefs(obj *object.Object, fn func(field, ref string) (string, error)) error {
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		switch {
		case compare.IsRefField(k) && v.Kind() == object.String:
			out, err := fn(k, v.Str())
			if err != nil {
				return err
			}
			obj.Set(k, object.StringValue(out))
		case compare.IsRefField(k) && v.Kind() == object.List:
			elems := v.Elems()
			out := make([]object.Value, len(elems))
			for i, e := range elems {
				out[i] = e
				if e.Kind() != object.String {
					continue
				}
				ref, err := fn(k, e.Str())
				if err != nil {
					return err
				}
				out[i] = object.StringValue(ref)
			}
			obj.Set(k, object.ListValue(out...))
		case v.Kind() == object.Map:
			if err := mapRefs(v.Obj(), fn); err != nil {
				return err
			}
		case v.Kind() == object.List:
			for _, e := range v.Elems() {
				if e.Kind() != object.Map {
					continue
				}
				if err := mapRefs(e.Obj(), fn); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func applyPatch(obj *object.Object, op string, fields *object.Object) error {
	switch op {
	case "replace":
		fields.Range(func(k string, v object.Value) bool {
			obj.Set(k, v)
			return true
		})
	case "add":
		fields.Range(func(k string, v object.Value) bool {
			cur, ok := obj.Get(k)
			if ok && cur.Kind() == object.List && v.Kind() == object.List {
				elems := cur.Elems()
				for _, e := range v.Elems() {
					if !containsValue(elems, e) {
						elems = append(elems, e)
					}
				}
				obj.Set(k, object.ListValue(elems...))
				return true
			}
			obj.Set(k, v)
			return true
		})
	case "delete":
		fields.Range(func(k string, v object.Value) bool {
			cur, ok := obj.Get(k)
			if ok && cur.Kind() == object.List && v.Kind() == object.List {
				var keep []object.Value
				for _, e := range cur.Elems() {
					if !containsValue(v.Elems(), e) {
						keep = append(keep, e)
					}
				}
				obj.Set(k, object.ListValue(keep...))
				return true
			}
			obj.Delete(k)
			return true
		})
	default:
		return badRequest("Invalid patch operation %q, expected add, replace or delete", op)
	}
	return nil
}

func containsValue(list []object.Value, v object.Value) bool {
	for _, e := range list {
		if e.Equal(v) {
			return true
		}
	}
	return false
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, rec *storage.Record) {
	out, err := s.render(r.Context(), r, rec)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, status, out)
}

// render returns the object as the controller would return it: write-only
// fields removed, controller fields added and references made absolute.
func (s *Server) render(ctx context.Context, r *http.Request, rec *storage.Record) (*object.Object, error) {
	base := baseOf(r)
	withName := includeName(r)

	out := rec.Object.Clone()
	for _, f := range s.writeOnly(rec.Type) {
		out.Delete(f)
	}
	err := mapRefs(out, func(_, ref string) (string, error) {
		abs := base + ref
		if !withName {
			return abs, nil
		}
		parsed := compare.ParseRef(ref)
		if parsed.Type == "tenant" {
			return abs + "#" + parsed.UUID, nil
		}
		target, err := s.lookup(ctx, rec.Tenant, parsed)
		if err != nil {
			// Dangling reference; the target was deleted.
			return abs, nil
		}
		return abs + "#" + nameOf(target.Object), nil
	})
	if err != nil {
		return nil, err
	}

	path := "/api/" + rec.Type + "/" + rec.UUID
	out.Set("url", object.StringValue(base+path))
	out.Set("uuid", object.StringValue(rec.UUID))
	out.Set("_last_modified", object.StringValue(strconv.FormatInt(rec.Modified.UnixNano()/1000, 10)))
	tenantRef := base + "/api/tenant/" + rec.Tenant
	if withName {
		tenantRef += "#" + rec.Tenant
	}
	out.Set("tenant_ref", object.StringValue(tenantRef))
	return out, nil
}
