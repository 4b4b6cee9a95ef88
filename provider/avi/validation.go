package avi

import (
	"github.com/func/avictl/compare"
	"github.com/func/avictl/resource/schema"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/validator.v9"
)

// AddValidators adds controller specific validator rules:
//
//	avi_ref  a reference to another object, /api/<type>?name=<name> or
//	         /api/<type>/<uuid>
func AddValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("avi_ref", func(fl validator.FieldLevel) bool {
		return validRef(fl.Field().String()) == nil
	}); err != nil {
		return errors.Wrap(err, "register avi_ref")
	}
	schema.SetFormat("avi_ref", "must be a reference like /api/<type>?name=<name>")
	return nil
}

func validRef(s string) error {
	ref := compare.ParseRef(s)
	if ref.Type == "" {
		return errors.Errorf("%q has no /api/<type> path", s)
	}
	if ref.Name == "" && ref.UUID == "" {
		return errors.Errorf("%q names neither an object name nor a uuid", s)
	}
	return nil
}
