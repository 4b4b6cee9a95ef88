package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/go-playground/validator.v9"
)

var check = validator.New()

var (
	formatsMu sync.RWMutex
	formats   = map[string]string{
		"gte":   "must be %v or more",
		"gt":    "must be more than %v",
		"lte":   "must be %v or less",
		"lt":    "must be less than %v",
		"min":   "must be at least %v",
		"max":   "must be at most %v",
		"len":   "must have length %v",
		"oneof": "must be one of: [%v]",
		"url":   "must be a valid url",
		"ip":    "must be a valid ip address",
		"cidr":  "must be a valid cidr",
	}
)

// Validator returns the validator used for field rules. Custom rules can be
// registered on it before schemas are used.
func Validator() *validator.Validate {
	return check
}

// SetFormat sets the error message for a validator tag. A %v verb in format
// is replaced by the tag parameter.
func SetFormat(tag, format string) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	formats[tag] = format
}

func validate(v interface{}, rules string) error {
	err := check.Var(v, rules)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	formatsMu.RLock()
	format, ok := formats[fe.Tag()]
	formatsMu.RUnlock()
	if !ok {
		return errors.Errorf("failed %q rule", fe.Tag())
	}
	if !strings.Contains(format, "%") {
		return errors.New(format)
	}
	return fmt.Errorf(format, fe.Param())
}
